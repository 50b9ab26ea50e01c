// Package bridge relays audio and events between a telephony media-stream
// WebSocket and a conversational-AI engine session, and dispatches the
// engine's tool calls against live process state. One bridge session exists
// per connected call.
package bridge

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/gasguard/gasguard/internal/convai"
	"github.com/gasguard/gasguard/internal/state"
)

// State is the bridge session lifecycle phase.
type State int

const (
	// StateAccepting covers the window between the WebSocket upgrade and
	// both relay pumps running.
	StateAccepting State = iota
	// StateActive means audio is being relayed in both directions.
	StateActive
	// StateEnding means an end was requested and the engine session is
	// being wound down.
	StateEnding
	// StateClosed means all resources are released.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateAccepting:
		return "accepting"
	case StateActive:
		return "active"
	case StateEnding:
		return "ending"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Speaker identifies a transcript entry's origin.
type Speaker string

const (
	SpeakerAgent Speaker = "agent"
	SpeakerUser  Speaker = "user"
)

// TranscriptEntry is one utterance in arrival order.
type TranscriptEntry struct {
	Speaker Speaker   `json:"speaker"`
	Text    string    `json:"text"`
	At      time.Time `json:"at"`
}

// EngineSession is the slice of the engine client the bridge drives.
// *convai.Session satisfies it.
type EngineSession interface {
	Events() <-chan convai.Event
	SendAudio(audioB64 string) error
	SendToolResult(toolCallID, result string, isError bool) error
	End(ctx context.Context) error
	Close() error
}

// CallEnder hangs up in-progress calls at the telephony provider.
// *telephony.Client satisfies it.
type CallEnder interface {
	EndInProgressCalls(ctx context.Context) (int, error)
}

// CallInfo carries the per-call parameters threaded through the inbound
// call webhook into the media-stream URL.
type CallInfo struct {
	CustomerName   string
	Language       string
	InitialReading string
}

// defaultEndAckTimeout bounds how long session teardown waits for the
// engine to acknowledge a close.
const defaultEndAckTimeout = 5 * time.Second

// Session bridges one media stream to one engine session.
type Session struct {
	id         string
	conn       *websocket.Conn
	engine     EngineSession
	store      *state.Store
	thresholds state.Thresholds
	ender      CallEnder
	logger     *slog.Logger
	info       CallInfo
	startedAt  time.Time

	endAckTimeout time.Duration

	mu         sync.Mutex
	st         State
	streamSid  string
	transcript []TranscriptEntry

	endRequested chan struct{}
	endOnce      sync.Once
}

// NewSession wires a bridge session over an already-upgraded media-stream
// connection and an already-dialed engine session. Run must be called to
// start relaying; the session takes ownership of both connections.
func NewSession(conn *websocket.Conn, engine EngineSession, store *state.Store, thresholds state.Thresholds, ender CallEnder, info CallInfo, logger *slog.Logger) *Session {
	id := uuid.NewString()
	return &Session{
		id:            id,
		conn:          conn,
		engine:        engine,
		store:         store,
		thresholds:    thresholds,
		ender:         ender,
		info:          info,
		startedAt:     time.Now(),
		endAckTimeout: defaultEndAckTimeout,
		logger:        logger.With("subsystem", "bridge", "session_id", id),
		endRequested:  make(chan struct{}),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Info returns the per-call parameters.
func (s *Session) Info() CallInfo { return s.info }

// StartedAt returns when the session was created.
func (s *Session) StartedAt() time.Time { return s.startedAt }

// State returns the current lifecycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st
}

// Transcript returns a copy of the conversation so far, in arrival order.
func (s *Session) Transcript() []TranscriptEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TranscriptEntry, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// Run relays until the call hangs up, the engine session ends, a tool call
// requests termination, or ctx is canceled. It tears down both connections
// on every exit path and only returns once the session is closed.
func (s *Session) Run(ctx context.Context) {
	s.logger.Info("bridge session starting",
		"customer", s.info.CustomerName,
		"language", s.info.Language,
		"initial_reading", s.info.InitialReading)
	s.setState(StateActive)

	relayCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer cancel()
		s.pumpTelephony()
	}()
	go func() {
		defer wg.Done()
		defer cancel()
		s.pumpEngine(relayCtx)
	}()

	select {
	case <-relayCtx.Done():
	case <-s.endRequested:
		cancel()
	}

	s.setState(StateEnding)

	endCtx, endCancel := context.WithTimeout(context.Background(), s.endAckTimeout)
	if err := s.engine.End(endCtx); err != nil {
		s.logger.Warn("engine session end", "error", err)
	}
	endCancel()
	s.engine.Close()

	// Closing the media connection unblocks a pump stuck in ReadMessage.
	s.conn.Close()
	wg.Wait()

	s.setState(StateClosed)
	s.logger.Info("bridge session closed", "transcript_entries", len(s.Transcript()))
}

// requestEnd signals Run to begin teardown. Safe to call more than once.
func (s *Session) requestEnd() {
	s.endOnce.Do(func() { close(s.endRequested) })
}

// pumpTelephony reads media-stream frames and forwards caller audio to the
// engine. A malformed frame is logged and skipped; a transport error ends
// the relay.
func (s *Session) pumpTelephony() {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Info("media stream closed by provider")
			} else {
				s.logger.Debug("media stream read ended", "error", err)
			}
			return
		}

		var msg streamMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Warn("discarding malformed media frame", "error", err)
			continue
		}

		switch msg.Event {
		case eventConnected:
			s.logger.Debug("media stream connected")
		case eventStart:
			if msg.Start != nil {
				s.mu.Lock()
				s.streamSid = msg.Start.StreamSid
				s.mu.Unlock()
				s.logger.Info("media stream started",
					"stream_sid", msg.Start.StreamSid,
					"call_sid", msg.Start.CallSid)
			}
		case eventMedia:
			if msg.Media == nil || msg.Media.Payload == "" {
				continue
			}
			if err := s.engine.SendAudio(msg.Media.Payload); err != nil {
				s.logger.Debug("forwarding caller audio failed", "error", err)
				return
			}
		case eventStop:
			s.logger.Info("media stream stopped")
			return
		case eventMark:
			// Playback marks are not used.
		default:
			s.logger.Debug("unhandled media frame", "event", msg.Event)
		}
	}
}

// pumpEngine consumes the engine's ordered event stream: audio goes out to
// the caller, text goes into the transcript, tool calls are dispatched, and
// an interruption flushes the provider's playback buffer.
func (s *Session) pumpEngine(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-s.engine.Events():
			if !ok {
				s.logger.Info("engine session ended")
				return
			}
			switch ev.Type {
			case convai.EventAudio:
				if err := s.writeStream(outboundMedia(s.currentStreamSid(), ev.AudioB64)); err != nil {
					s.logger.Debug("forwarding agent audio failed", "error", err)
					return
				}
			case convai.EventInterruption:
				if err := s.writeStream(outboundClear(s.currentStreamSid())); err != nil {
					s.logger.Debug("clearing playback buffer failed", "error", err)
					return
				}
			case convai.EventAgentResponse:
				s.appendTranscript(SpeakerAgent, ev.Text)
				s.logger.Info("agent said", "text", ev.Text)
			case convai.EventUserTranscript:
				s.appendTranscript(SpeakerUser, ev.Text)
				s.logger.Info("caller said", "text", ev.Text)
			case convai.EventToolCall:
				s.dispatchTool(ev)
			}
		}
	}
}

func (s *Session) currentStreamSid() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamSid
}

// writeStream sends one frame to the media connection. Frames produced
// before the provider's start announcement have no stream id yet and are
// dropped.
func (s *Session) writeStream(msg streamMessage) error {
	if msg.StreamSid == "" {
		s.logger.Debug("dropping outbound frame before stream start", "event", msg.Event)
		return nil
	}
	return s.conn.WriteJSON(msg)
}

func (s *Session) appendTranscript(speaker Speaker, text string) {
	if text == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript = append(s.transcript, TranscriptEntry{
		Speaker: speaker,
		Text:    text,
		At:      time.Now(),
	})
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.st = st
	s.mu.Unlock()
}
