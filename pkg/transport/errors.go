// Package transport implements the framed duplex connection used by the
// collector's three endpoints (§4.7): a Server that dispatches incoming
// frames to per-path action chains, and a Client that connects, sends
// frames, and delivers received frames to a handler. Framing and
// heartbeats are delegated to gorilla/websocket.
package transport

import "github.com/pkg/errors"

// ErrConnectionClosed is a control-flow signal, not an error: it is
// returned by Connection.Receive once the peer has closed the underlying
// socket, normally or abruptly (§7).
var ErrConnectionClosed = errors.New("transport: connection closed")
