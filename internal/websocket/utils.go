package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn wraps a websocket connection with a write lock so the event
// fan-out goroutine and the request handlers can share it safely.
type Conn struct {
	raw *websocket.Conn
	mu  sync.Mutex
}

// NewConn wraps an upgraded connection.
func NewConn(raw *websocket.Conn) *Conn {
	return &Conn{raw: raw}
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.raw.Close()
}

// WriteEvent sends an enveloped event over the WebSocket.
func (c *Conn) WriteEvent(event Event, data interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.raw.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.raw.WriteJSON(EventEnvelope{Event: event, Data: data})
}

// WriteError sends a typed ErrorResponse over the WebSocket.
func (c *Conn) WriteError(errMsg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.raw.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.raw.WriteJSON(ErrorResponse{Event: EventError, Error: errMsg})
}

// ReadJSON reads and decodes a message into the provided structure.
// It sets a read deadline.
func (c *Conn) ReadJSON(v interface{}) error {
	c.raw.SetReadDeadline(time.Now().Add(5 * time.Minute))
	return c.raw.ReadJSON(v)
}
