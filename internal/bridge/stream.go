package bridge

// Wire types for the telephony provider's media-stream WebSocket protocol.
// Frames are JSON envelopes; audio payloads are base64-encoded mu-law at
// 8 kHz in both directions, so the relay never touches raw samples.

// streamMessage is the envelope for every media-stream frame.
type streamMessage struct {
	Event     string       `json:"event"`
	StreamSid string       `json:"streamSid,omitempty"`
	Start     *streamStart `json:"start,omitempty"`
	Media     *streamMedia `json:"media,omitempty"`
	Mark      *streamMark  `json:"mark,omitempty"`
}

// streamStart announces the stream after the provider connects.
type streamStart struct {
	StreamSid        string            `json:"streamSid"`
	CallSid          string            `json:"callSid"`
	CustomParameters map[string]string `json:"customParameters,omitempty"`
}

// streamMedia carries one audio frame.
type streamMedia struct {
	Track     string `json:"track,omitempty"`
	Chunk     string `json:"chunk,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   string `json:"payload"`
}

type streamMark struct {
	Name string `json:"name"`
}

// mediaEvent values we handle.
const (
	eventConnected = "connected"
	eventStart     = "start"
	eventMedia     = "media"
	eventMark      = "mark"
	eventStop      = "stop"
	eventClear     = "clear"
)

// outboundMedia builds a provider-bound audio frame.
func outboundMedia(streamSid, payloadB64 string) streamMessage {
	return streamMessage{
		Event:     eventMedia,
		StreamSid: streamSid,
		Media:     &streamMedia{Payload: payloadB64},
	}
}

// outboundClear builds a frame asking the provider to drop buffered audio,
// used when the caller interrupts the agent mid-sentence.
func outboundClear(streamSid string) streamMessage {
	return streamMessage{Event: eventClear, StreamSid: streamSid}
}
