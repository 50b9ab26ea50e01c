// Package convai is a WebSocket client for an ElevenLabs-style
// conversational-AI agent session. The provider's callback-flavored protocol
// (agent text, user transcripts, audio, tool calls, pings) is surfaced as a
// single ordered event stream read by one consumer, which keeps transcript
// ordering trivial.
package convai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// defaultBaseURL is the provider's WebSocket endpoint.
const defaultBaseURL = "wss://api.elevenlabs.io"

// Default TTS voice settings for telephony calls. Higher stability keeps
// the tone consistent; the lower similarity boost reduces robotic artifacts
// on narrowband audio.
const (
	defaultStability       = 0.5
	defaultSimilarityBoost = 0.7
)

// Config describes one agent session. The override fields are optional; a
// zero value leaves the agent's dashboard configuration in effect.
type Config struct {
	APIKey  string
	AgentID string
	BaseURL string // ws:// or wss:// endpoint; defaults to the provider

	Prompt       string // system prompt override
	FirstMessage string // opening line spoken as soon as the session starts
	Language     string
	VoiceID      string
	ModelID      string
	OutputFormat string // "ulaw_8000" for telephony media streams
}

// EventType discriminates session events.
type EventType int

const (
	// EventAudio carries a base64-encoded synthesized audio chunk.
	EventAudio EventType = iota
	// EventAgentResponse carries the agent's utterance text.
	EventAgentResponse
	// EventUserTranscript carries the transcribed user utterance.
	EventUserTranscript
	// EventToolCall asks the client to run a named tool and reply with
	// SendToolResult.
	EventToolCall
	// EventInterruption signals that the user spoke over the agent; queued
	// outbound audio should be discarded.
	EventInterruption
)

// Event is one item of the session's ordered event stream.
type Event struct {
	Type EventType

	Text       string          // agent/user text
	AudioB64   string          // base64 audio payload, provider output format
	ToolName   string          // tool call only
	ToolCallID string          // tool call only
	ToolParams json.RawMessage // tool call only; opaque parameter bag
}

// Session is a live agent session. Events must be consumed from Events()
// by a single goroutine; Send* methods are safe for concurrent use.
type Session struct {
	conn   *websocket.Conn
	logger *slog.Logger

	events  chan Event
	done    chan struct{} // closed when the read loop exits
	closing chan struct{} // closed by Close; unblocks a stalled emit

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// Dial opens a session for the configured agent and sends the
// session-initiation payload with the per-call overrides.
func Dial(ctx context.Context, cfg Config, logger *slog.Logger) (*Session, error) {
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	u := fmt.Sprintf("%s/v1/convai/conversation?agent_id=%s", base, cfg.AgentID)

	header := http.Header{}
	if cfg.APIKey != "" {
		header.Set("xi-api-key", cfg.APIKey)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("convai: dialing session (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("convai: dialing session: %w", err)
	}

	s := &Session{
		conn:    conn,
		logger:  logger.With("subsystem", "convai"),
		events:  make(chan Event, 64),
		done:    make(chan struct{}),
		closing: make(chan struct{}),
	}

	if err := s.sendInitiation(cfg); err != nil {
		conn.Close()
		return nil, err
	}

	go s.readLoop()
	return s, nil
}

// Events returns the ordered event stream. The channel is closed when the
// session ends from either side.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Done is closed once the session's read loop has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// SendAudio forwards one base64-encoded caller audio chunk to the agent.
func (s *Session) SendAudio(audioB64 string) error {
	return s.writeJSON(map[string]string{"user_audio_chunk": audioB64})
}

// SendToolResult replies to a tool call. The agent waits for this before
// continuing the conversation.
func (s *Session) SendToolResult(toolCallID, result string, isError bool) error {
	return s.writeJSON(toolResultMessage{
		Type:       "client_tool_result",
		ToolCallID: toolCallID,
		Result:     result,
		IsError:    isError,
	})
}

// End requests a graceful session end and waits, bounded by ctx, for the
// provider to acknowledge by closing its side. The connection is closed on
// every path.
func (s *Session) End(ctx context.Context) error {
	s.writeMu.Lock()
	err := s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"),
		time.Now().Add(2*time.Second))
	s.writeMu.Unlock()
	if err != nil {
		s.Close()
		return fmt.Errorf("convai: sending close: %w", err)
	}

	select {
	case <-s.done:
		s.Close()
		return nil
	case <-ctx.Done():
		s.Close()
		return fmt.Errorf("convai: waiting for session end: %w", ctx.Err())
	}
}

// Close tears the connection down immediately. Safe to call more than once.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closing)
		err = s.conn.Close()
	})
	return err
}

// sendInitiation sends the conversation_initiation_client_data payload
// carrying the per-call overrides.
func (s *Session) sendInitiation(cfg Config) error {
	msg := initiationMessage{Type: "conversation_initiation_client_data"}

	override := &configOverride{}
	if cfg.Prompt != "" || cfg.FirstMessage != "" || cfg.Language != "" {
		override.Agent = &agentOverride{
			FirstMessage: cfg.FirstMessage,
			Language:     cfg.Language,
		}
		if cfg.Prompt != "" {
			override.Agent.Prompt = &promptOverride{Prompt: cfg.Prompt}
		}
	}
	if cfg.VoiceID != "" || cfg.ModelID != "" || cfg.OutputFormat != "" {
		override.TTS = &ttsOverride{
			VoiceID:      cfg.VoiceID,
			ModelID:      cfg.ModelID,
			OutputFormat: cfg.OutputFormat,
			VoiceSettings: &voiceSettings{
				Stability:       defaultStability,
				SimilarityBoost: defaultSimilarityBoost,
			},
		}
	}
	if override.Agent != nil || override.TTS != nil {
		msg.ConversationConfigOverride = override
	}

	if err := s.writeJSON(msg); err != nil {
		return fmt.Errorf("convai: sending initiation: %w", err)
	}
	return nil
}

// readLoop pumps provider messages into the event channel. Pings are
// answered inline so the consumer never sees them. The loop exits on any
// read error, closing both done and the event channel.
func (s *Session) readLoop() {
	defer close(s.done)
	defer close(s.events)

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("session closed by provider")
			} else {
				s.logger.Debug("session read ended", "error", err)
			}
			return
		}

		var msg serverMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Warn("discarding malformed session message", "error", err)
			continue
		}

		switch msg.Type {
		case "conversation_initiation_metadata":
			if msg.Metadata != nil {
				s.logger.Info("session started", "conversation_id", msg.Metadata.ConversationID)
			}
		case "ping":
			if msg.PingEvent != nil {
				if err := s.writeJSON(pongMessage{Type: "pong", EventID: msg.PingEvent.EventID}); err != nil {
					s.logger.Debug("pong failed", "error", err)
				}
			}
		case "audio":
			if msg.AudioEvent != nil {
				s.emit(Event{Type: EventAudio, AudioB64: msg.AudioEvent.AudioBase64})
			}
		case "agent_response":
			if msg.AgentResponseEvent != nil {
				s.emit(Event{Type: EventAgentResponse, Text: msg.AgentResponseEvent.AgentResponse})
			}
		case "user_transcript":
			if msg.UserTranscriptionEvent != nil {
				s.emit(Event{Type: EventUserTranscript, Text: msg.UserTranscriptionEvent.UserTranscript})
			}
		case "client_tool_call":
			if msg.ToolCall != nil {
				s.emit(Event{
					Type:       EventToolCall,
					ToolName:   msg.ToolCall.ToolName,
					ToolCallID: msg.ToolCall.ToolCallID,
					ToolParams: msg.ToolCall.Parameters,
				})
			}
		case "interruption":
			s.emit(Event{Type: EventInterruption})
		default:
			s.logger.Debug("unhandled session message", "type", msg.Type)
		}
	}
}

// emit delivers an event unless the session is already closing.
func (s *Session) emit(ev Event) {
	select {
	case s.events <- ev:
	case <-s.closing:
	}
}

func (s *Session) writeJSON(v any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(v)
}
