package session

import (
	"encoding/base64"
	"fmt"

	"github.com/agentplexus/voicebridge/telephony"
)

// Pure frame translation between the two transports. Audio bytes are never
// re-encoded; only the envelopes change.

// inboundAudio extracts the base64 payload to append to the remote input
// buffer for one inbound media frame. It reports false for frames with no
// audio.
func inboundAudio(m *telephony.MediaPayload) (string, bool) {
	if m == nil || m.Payload == "" {
		return "", false
	}
	return m.Payload, true
}

// outboundAudio converts a Realtime audio delta into the outbound telephony
// payload: the transport base64 is decoded and the envelope re-encoded,
// which also validates the delta.
func outboundAudio(delta string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(delta)
	if err != nil {
		return "", fmt.Errorf("invalid audio delta: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
