package realtime

import (
	"encoding/json"
	"io"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSocket struct {
	mu      sync.Mutex
	inbound [][]byte
	writes  []string
	closes  int
}

func (s *stubSocket) ReadMessage() (int, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.inbound) == 0 {
		return 0, nil, io.EOF
	}
	data := s.inbound[0]
	s.inbound = s.inbound[1:]
	return websocket.TextMessage, data, nil
}

func (s *stubSocket) WriteJSON(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.writes = append(s.writes, string(data))
	return nil
}

func (s *stubSocket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

func TestSendSessionUpdate(t *testing.T) {
	sock := &stubSocket{}
	conn := NewConn(sock)

	err := conn.SendSessionUpdate(SessionConfig{
		Voice:            "alloy",
		Instructions:     "be brief",
		InputFormat:      "g711_ulaw",
		OutputFormat:     "g711_ulaw",
		Temperature:      0.8,
		MaxTokens:        4096,
		TopP:             1.0,
		FrequencyPenalty: 0,
		PresencePenalty:  0,
	})
	require.NoError(t, err)
	require.Len(t, sock.writes, 1)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(sock.writes[0]), &got))
	assert.Equal(t, "session.update", got["type"])

	sess, ok := got["session"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"type": "server_vad"}, sess["turn_detection"])
	assert.Equal(t, "g711_ulaw", sess["input_audio_format"])
	assert.Equal(t, "g711_ulaw", sess["output_audio_format"])
	assert.Equal(t, "alloy", sess["voice"])
	assert.Equal(t, "be brief", sess["instructions"])
	assert.Equal(t, []any{"text", "audio"}, sess["modalities"])
	assert.Equal(t, 0.8, sess["temperature"])
	assert.Equal(t, float64(4096), sess["max_tokens"])
	assert.Equal(t, 1.0, sess["top_p"])
}

func TestSendAudioAppend(t *testing.T) {
	sock := &stubSocket{}
	conn := NewConn(sock)

	require.NoError(t, conn.SendAudioAppend("AAA="))
	require.Len(t, sock.writes, 1)
	assert.JSONEq(t, `{"type":"input_audio_buffer.append","audio":"AAA="}`, sock.writes[0])
}

func TestSendText(t *testing.T) {
	sock := &stubSocket{}
	conn := NewConn(sock)

	require.NoError(t, conn.SendText("goodbye"))
	require.Len(t, sock.writes, 1)
	assert.JSONEq(t, `{"type":"text","text":"goodbye"}`, sock.writes[0])
}

func TestSendAfterClose(t *testing.T) {
	sock := &stubSocket{}
	conn := NewConn(sock)

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())
	assert.Equal(t, 1, sock.closes)

	err := conn.SendText("late")
	require.Error(t, err)
	assert.Empty(t, sock.writes)
}

func TestParseEventVariants(t *testing.T) {
	tests := []struct {
		name string
		data string
		want Event
	}{
		{
			name: "session created",
			data: `{"type":"session.created"}`,
			want: Event{Type: TypeSessionCreated},
		},
		{
			name: "audio delta",
			data: `{"type":"response.audio.delta","delta":"AAA="}`,
			want: Event{Type: TypeAudioDelta, Delta: "AAA="},
		},
		{
			name: "content part",
			data: `{"type":"response.content.part","text":"hello"}`,
			want: Event{Type: TypeContentPart, Text: "hello"},
		},
		{
			name: "unknown type preserved",
			data: `{"type":"rate_limits.updated"}`,
			want: Event{Type: "rate_limits.updated"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEvent([]byte(tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseEventError(t *testing.T) {
	got, err := ParseEvent([]byte(`{"type":"error","error":{"type":"invalid_request_error","code":"bad","message":"nope"}}`))
	require.NoError(t, err)
	assert.Equal(t, TypeError, got.Type)
	require.NotNil(t, got.Err)
	assert.Equal(t, "nope", got.Err.Message)
}

func TestParseEventMalformed(t *testing.T) {
	_, err := ParseEvent([]byte(`{{`))
	require.ErrorIs(t, err, ErrMalformedEvent)
}
