// Package telephony implements the Twilio Media Streams wire protocol:
// decoding the inbound text-framed JSON messages and emitting the single
// outbound media frame type the bridge produces.
package telephony

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Media Streams event names.
const (
	EventConnected = "connected"
	EventStart     = "start"
	EventMedia     = "media"
	EventStop      = "stop"
	EventMark      = "mark"
)

// ErrMalformedFrame reports a message that could not be decoded. The frame is
// dropped; the connection stays up.
var ErrMalformedFrame = errors.New("malformed media-stream frame")

// Message is one decoded inbound Media Streams frame. Exactly one payload
// field is set depending on Event; unrecognized events carry only Event.
type Message struct {
	Event     string        `json:"event"`
	StreamSID string        `json:"streamSid,omitempty"`
	Start     *StartPayload `json:"start,omitempty"`
	Media     *MediaPayload `json:"media,omitempty"`
	Stop      *StopPayload  `json:"stop,omitempty"`
}

// StartPayload carries the stream metadata Twilio sends once per call.
type StartPayload struct {
	StreamSID    string            `json:"streamSid"`
	AccountSID   string            `json:"accountSid"`
	CallSID      string            `json:"callSid"`
	Tracks       []string          `json:"tracks"`
	MediaFormat  MediaFormat       `json:"mediaFormat"`
	CustomParams map[string]string `json:"customParameters"`
}

// MediaFormat describes the audio encoding of the stream.
type MediaFormat struct {
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sampleRate"`
	Channels   int    `json:"channels"`
}

// MediaPayload carries one base64-encoded audio chunk.
type MediaPayload struct {
	Track     string `json:"track"`
	Chunk     string `json:"chunk"`
	Timestamp string `json:"timestamp"`
	Payload   string `json:"payload"`
}

// StopPayload carries the stream-end notification.
type StopPayload struct {
	AccountSID string `json:"accountSid"`
	CallSID    string `json:"callSid"`
}

// ParseFrame decodes one inbound text frame.
func ParseFrame(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	return &msg, nil
}

// MediaFrame is the outbound frame addressed to the caller's stream.
type MediaFrame struct {
	Event     string     `json:"event"`
	StreamSID string     `json:"streamSid"`
	Media     MediaAudio `json:"media"`
}

// MediaAudio wraps the base64 audio payload of an outbound frame.
type MediaAudio struct {
	Payload string `json:"payload"`
}

// NewMediaFrame builds the outbound media frame for a stream.
func NewMediaFrame(streamSID, payload string) MediaFrame {
	return MediaFrame{
		Event:     EventMedia,
		StreamSID: streamSID,
		Media:     MediaAudio{Payload: payload},
	}
}
