package convai

import "encoding/json"

// Wire types for the provider's session protocol. Only the fields this
// client reads or writes are modeled; unknown fields are ignored.

// initiationMessage is the first client message on a new session.
type initiationMessage struct {
	Type                       string          `json:"type"`
	ConversationConfigOverride *configOverride `json:"conversation_config_override,omitempty"`
}

type configOverride struct {
	Agent *agentOverride `json:"agent,omitempty"`
	TTS   *ttsOverride   `json:"tts,omitempty"`
}

type agentOverride struct {
	Prompt       *promptOverride `json:"prompt,omitempty"`
	FirstMessage string          `json:"first_message,omitempty"`
	Language     string          `json:"language,omitempty"`
}

type promptOverride struct {
	Prompt string `json:"prompt"`
}

type ttsOverride struct {
	VoiceID       string         `json:"voice_id,omitempty"`
	ModelID       string         `json:"model_id,omitempty"`
	OutputFormat  string         `json:"output_format,omitempty"`
	VoiceSettings *voiceSettings `json:"voice_settings,omitempty"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// toolResultMessage replies to a client_tool_call.
type toolResultMessage struct {
	Type       string `json:"type"`
	ToolCallID string `json:"tool_call_id"`
	Result     string `json:"result"`
	IsError    bool   `json:"is_error"`
}

// pongMessage answers a server ping.
type pongMessage struct {
	Type    string `json:"type"`
	EventID int    `json:"event_id"`
}

// serverMessage is the envelope for every provider-to-client message.
type serverMessage struct {
	Type string `json:"type"`

	Metadata               *initiationMetadata     `json:"conversation_initiation_metadata_event,omitempty"`
	AudioEvent             *audioEvent             `json:"audio_event,omitempty"`
	AgentResponseEvent     *agentResponseEvent     `json:"agent_response_event,omitempty"`
	UserTranscriptionEvent *userTranscriptionEvent `json:"user_transcription_event,omitempty"`
	PingEvent              *pingEvent              `json:"ping_event,omitempty"`
	ToolCall               *toolCallEvent          `json:"client_tool_call,omitempty"`
}

type initiationMetadata struct {
	ConversationID string `json:"conversation_id"`
}

type audioEvent struct {
	AudioBase64 string `json:"audio_base_64"`
	EventID     int    `json:"event_id"`
}

type agentResponseEvent struct {
	AgentResponse string `json:"agent_response"`
}

type userTranscriptionEvent struct {
	UserTranscript string `json:"user_transcript"`
}

type pingEvent struct {
	EventID int `json:"event_id"`
}

type toolCallEvent struct {
	ToolName   string          `json:"tool_name"`
	ToolCallID string          `json:"tool_call_id"`
	Parameters json.RawMessage `json:"parameters"`
}
