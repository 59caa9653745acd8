// Package realtime implements the client side of the OpenAI Realtime API:
// dialing the WebSocket endpoint, sending the session configuration and
// audio/text messages, and decoding the inbound event stream.
package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Inbound event type discriminants the bridge reacts to. Anything else is
// passed through as an unrecognized event and logged at debug level.
const (
	TypeSessionCreated = "session.created"
	TypeSessionUpdated = "session.updated"
	TypeAudioDelta     = "response.audio.delta"
	TypeContentStart   = "response.content.start"
	TypeContentPart    = "response.content.part"
	TypeContentDone    = "response.content.done"
	TypeResponseDone   = "response.done"
	TypeError          = "error"
)

// ErrMalformedEvent reports an inbound message that could not be decoded.
var ErrMalformedEvent = errors.New("malformed realtime event")

// Event is one decoded inbound Realtime event. Type is always set; the other
// fields are populated per type (Delta for audio deltas, Text for content
// parts, Err for error events).
type Event struct {
	Type string `json:"type"`

	// Delta is the base64 audio payload of a response.audio.delta event.
	Delta string `json:"delta,omitempty"`

	// Text is the fragment carried by a response.content.part event.
	Text string `json:"text,omitempty"`

	// Err describes an error event from the remote service.
	Err *ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail is the error body of a Realtime error event.
type ErrorDetail struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ParseEvent decodes one inbound Realtime message.
func ParseEvent(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	return ev, nil
}
