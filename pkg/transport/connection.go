package transport

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

func deadlineNow() time.Time {
	return time.Now().Add(writeWait)
}

// Connection is the capability set every accepted or dialed connection
// provides: receive a frame, send a frame, close with a code and reason,
// and register a close-observer (§3 Connection).
type Connection interface {
	// Path is the request path the connection was accepted on (empty for
	// client-side connections).
	Path() string

	// Receive blocks for the next frame. It returns ErrConnectionClosed
	// once the peer has gone away.
	Receive() ([]byte, error)

	// Send writes a frame. Safe to call concurrently with itself and with
	// Receive.
	Send(frame []byte) error

	// Close sends a close frame with the given code and reason and tears
	// down the underlying socket.
	Close(code int, reason string) error

	// OnClose registers an observer invoked exactly once, when the
	// connection transitions to closed (by either peer).
	OnClose(observer func(code int, reason string))
}

// wsConnection adapts a *websocket.Conn to the Connection interface.
// gorilla/websocket requires a single writer at a time, so Send is
// serialized with its own mutex, independent of the read side.
type wsConnection struct {
	path string
	conn *websocket.Conn

	writeMu sync.Mutex

	closeMu   sync.Mutex
	closed    bool
	observers []func(code int, reason string)
}

func newWSConnection(path string, conn *websocket.Conn) *wsConnection {
	return &wsConnection{path: path, conn: conn}
}

func (c *wsConnection) Path() string { return c.path }

func (c *wsConnection) Receive() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		c.fireClosed(closeCodeAndReason(err))
		return nil, ErrConnectionClosed
	}
	return data, nil
}

func (c *wsConnection) Send(frame []byte) error {
	c.closeMu.Lock()
	closed := c.closed
	c.closeMu.Unlock()
	if closed {
		return ErrConnectionClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return ErrConnectionClosed
	}
	return nil
}

func (c *wsConnection) Close(code int, reason string) error {
	c.writeMu.Lock()
	msg := websocket.FormatCloseMessage(code, reason)
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, deadlineNow())
	c.writeMu.Unlock()

	err := c.conn.Close()
	c.fireClosed(code, reason)
	return err
}

func (c *wsConnection) OnClose(observer func(code int, reason string)) {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if c.closed {
		// Already closed: fire immediately so a late registration never
		// misses the notification.
		go observer(websocket.CloseAbnormalClosure, "already closed")
		return
	}
	c.observers = append(c.observers, observer)
}

func (c *wsConnection) fireClosed(code int, reason string) {
	c.closeMu.Lock()
	if c.closed {
		c.closeMu.Unlock()
		return
	}
	c.closed = true
	observers := c.observers
	c.closeMu.Unlock()

	for _, obs := range observers {
		obs(code, reason)
	}
}

func closeCodeAndReason(err error) (int, string) {
	if ce, ok := err.(*websocket.CloseError); ok {
		return ce.Code, ce.Text
	}
	return websocket.CloseAbnormalClosure, err.Error()
}
