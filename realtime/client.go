package realtime

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/agentplexus/voicebridge"
)

// SessionConfig is the fixed configuration sent once per session via
// session.update. None of it is derived from caller input.
type SessionConfig struct {
	Voice            string
	Instructions     string
	InputFormat      string
	OutputFormat     string
	Temperature      float64
	MaxTokens        int
	TopP             float64
	FrequencyPenalty float64
	PresencePenalty  float64
}

type sessionUpdate struct {
	Type    string        `json:"type"`
	Session sessionParams `json:"session"`
}

type sessionParams struct {
	TurnDetection     turnDetection `json:"turn_detection"`
	InputAudioFormat  string        `json:"input_audio_format"`
	OutputAudioFormat string        `json:"output_audio_format"`
	Voice             string        `json:"voice"`
	Instructions      string        `json:"instructions"`
	Modalities        []string      `json:"modalities"`
	Temperature       float64       `json:"temperature"`
	MaxTokens         int           `json:"max_tokens"`
	TopP              float64       `json:"top_p"`
	FrequencyPenalty  float64       `json:"frequency_penalty"`
	PresencePenalty   float64       `json:"presence_penalty"`
}

type turnDetection struct {
	Type string `json:"type"`
}

type audioAppend struct {
	Type  string `json:"type"`
	Audio string `json:"audio"`
}

type textMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Socket is the subset of *websocket.Conn the client needs. It is an
// interface so session tests can stand in a fake remote.
type Socket interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v any) error
	Close() error
}

// Conn is one Realtime API session connection with serialized writes and an
// idempotent close.
type Conn struct {
	sock Socket

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    atomic.Bool
}

// NewConn wraps an established Realtime socket.
func NewConn(sock Socket) *Conn {
	return &Conn{sock: sock}
}

// Dial opens a Realtime API connection for the given model.
func Dial(ctx context.Context, endpoint, model, apiKey string) (*Conn, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid realtime endpoint: %w", err)
	}
	q := u.Query()
	q.Set("model", model)
	u.RawQuery = q.Encode()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+apiKey)
	header.Set("OpenAI-Beta", voicebridge.RealtimeBetaHeader)

	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("realtime dial failed (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("realtime dial failed: %w", err)
	}
	return NewConn(ws), nil
}

// ReadEvent blocks for the next inbound event. A non-nil error with no raw
// bytes means the transport failed or closed; ErrMalformedEvent means one
// undecodable message, returned with its raw bytes so the caller can log it.
func (c *Conn) ReadEvent() (Event, []byte, error) {
	_, data, err := c.sock.ReadMessage()
	if err != nil {
		return Event{}, nil, err
	}
	ev, err := ParseEvent(data)
	if err != nil {
		return Event{}, data, err
	}
	return ev, data, nil
}

// SendSessionUpdate sends the one-time session configuration: server-driven
// voice activity detection, telephony audio encoding on both directions, and
// the fixed persona and generation parameters.
func (c *Conn) SendSessionUpdate(cfg SessionConfig) error {
	return c.send(sessionUpdate{
		Type: "session.update",
		Session: sessionParams{
			TurnDetection:     turnDetection{Type: "server_vad"},
			InputAudioFormat:  cfg.InputFormat,
			OutputAudioFormat: cfg.OutputFormat,
			Voice:             cfg.Voice,
			Instructions:      cfg.Instructions,
			Modalities:        []string{"text", "audio"},
			Temperature:       cfg.Temperature,
			MaxTokens:         cfg.MaxTokens,
			TopP:              cfg.TopP,
			FrequencyPenalty:  cfg.FrequencyPenalty,
			PresencePenalty:   cfg.PresencePenalty,
		},
	})
}

// SendAudioAppend forwards one base64 audio chunk into the remote input
// buffer. The payload is passed through verbatim.
func (c *Conn) SendAudioAppend(audio string) error {
	return c.send(audioAppend{Type: "input_audio_buffer.append", Audio: audio})
}

// SendText sends an advisory text message (time-limit warning, farewell).
func (c *Conn) SendText(text string) error {
	return c.send(textMessage{Type: "text", Text: text})
}

func (c *Conn) send(v any) error {
	if c.closed.Load() {
		return fmt.Errorf("realtime connection is closed")
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.sock.WriteJSON(v)
}

// Close closes the connection exactly once. Closing an already-closed
// connection is a no-op.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		_ = c.sock.Close()
	})
	return nil
}
