package transport

import (
	"sync"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/theia-log/theia/pkg/logger"
	"github.com/theia-log/theia/pkg/model"
)

// FrameHandler receives each frame delivered on a Client's background
// receive loop.
type FrameHandler func(frame []byte)

// CloseHandler is invoked once when a Client's connection closes, with the
// close code and reason (§4.7.2).
type CloseHandler func(code int, reason string)

// Client connects to one endpoint of a collector, sends framed messages,
// and delivers received frames to a handler on a background goroutine
// (§4.7.2).
type Client struct {
	url     string
	handler FrameHandler

	mu          sync.Mutex
	conn        *wsConnection
	open        bool
	closeHandls []CloseHandler

	serializer model.EventSerializer
}

// NewClient builds a client that will deliver incoming frames to handler
// once Connect succeeds.
func NewClient(url string, handler FrameHandler) *Client {
	return &Client{url: url, handler: handler}
}

// Connect opens the connection synchronously and launches the background
// receive loop.
func (c *Client) Connect() error {
	raw, _, err := websocket.DefaultDialer.Dial(c.url, nil)
	if err != nil {
		return errors.Wrapf(err, "connecting to %s", c.url)
	}

	conn := newWSConnection("", raw)
	conn.OnClose(func(code int, reason string) {
		c.mu.Lock()
		c.open = false
		handlers := append([]CloseHandler(nil), c.closeHandls...)
		c.mu.Unlock()
		for _, h := range handlers {
			h(code, reason)
		}
	})

	c.mu.Lock()
	c.conn = conn
	c.open = true
	c.mu.Unlock()

	go c.receiveLoop(conn)
	return nil
}

func (c *Client) receiveLoop(conn *wsConnection) {
	for {
		frame, err := conn.Receive()
		if err != nil {
			return
		}
		if c.handler != nil {
			c.handler(frame)
		}
	}
}

// OnClose registers a handler invoked when the connection closes.
func (c *Client) OnClose(handler CloseHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeHandls = append(c.closeHandls, handler)
}

// Send writes frame to the connection. It is safe to call from any
// goroutine.
func (c *Client) Send(frame []byte) error {
	c.mu.Lock()
	conn := c.conn
	open := c.open
	c.mu.Unlock()
	if !open || conn == nil {
		return errors.Wrap(ErrConnectionClosed, "send on closed client")
	}
	if err := conn.Send(frame); err != nil {
		logger.Warnf("transport: send failed: %v", err)
		return err
	}
	return nil
}

// SendEvent serializes event per §4.1 and sends it as one frame.
func (c *Client) SendEvent(event model.Event) error {
	return c.Send(c.serializer.Serialize(event))
}

// Close sends a normal close and disables further receiving.
func (c *Client) Close(reason string) error {
	c.mu.Lock()
	conn := c.conn
	c.open = false
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close(websocket.CloseNormalClosure, reason)
}
