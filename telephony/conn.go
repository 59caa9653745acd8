package telephony

import (
	"sync"
)

// Socket is the subset of *websocket.Conn the telephony side needs. It is an
// interface so session tests can stand in a fake peer.
type Socket interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v any) error
	Close() error
}

// Conn wraps the Media Streams WebSocket with serialized writes and an
// idempotent close.
type Conn struct {
	sock Socket

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// NewConn wraps an accepted Media Streams socket.
func NewConn(sock Socket) *Conn {
	return &Conn{sock: sock}
}

// ReadFrame blocks for the next inbound frame. A non-nil error with a nil
// message means the transport failed or closed; ErrMalformedFrame means one
// undecodable frame, returned with its raw bytes so the caller can log it.
func (c *Conn) ReadFrame() (*Message, []byte, error) {
	_, data, err := c.sock.ReadMessage()
	if err != nil {
		return nil, nil, err
	}
	msg, err := ParseFrame(data)
	if err != nil {
		return nil, data, err
	}
	return msg, data, nil
}

// WriteMedia sends one outbound audio frame addressed to the stream.
func (c *Conn) WriteMedia(streamSID, payload string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.sock.WriteJSON(NewMediaFrame(streamSID, payload))
}

// Close closes the underlying socket exactly once. Closing an already-closed
// connection is a no-op.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		_ = c.sock.Close()
	})
	return nil
}
