package transport

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/theia-log/theia/pkg/logger"
)

// stopDrainTimeout bounds how long Stop waits for tracked connections to
// close after being notified (§4.7.1).
const stopDrainTimeout = 10 * time.Second

// ActionHandler is one link in a path's handler chain: it receives the
// request path, the raw frame, the originating connection, and the prior
// handler's response (empty for the first handler), and returns the
// response to chain to the next handler (or to send back, if it's last).
type ActionHandler func(path string, frame []byte, conn Connection, prevResp []byte) ([]byte, error)

// Server owns a registry mapping path to an ordered action-handler chain
// and the set of currently accepted connections (§4.7.1).
type Server struct {
	addr     string
	upgrader websocket.Upgrader

	mu      sync.Mutex
	actions map[string][]ActionHandler

	connMu sync.Mutex
	conns  map[*wsConnection]struct{}

	httpServer *http.Server
	listener   net.Listener

	wg sync.WaitGroup
}

// NewServer creates a Server that will listen on addr once Start is
// called.
func NewServer(addr string) *Server {
	return &Server{
		addr:     addr,
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		actions:  make(map[string][]ActionHandler),
		conns:    make(map[*wsConnection]struct{}),
	}
}

// OnAction appends handler to path's chain, in registration order.
func (s *Server) OnAction(path string, handler ActionHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions[path] = append(s.actions[path], handler)
}

// Start binds the listener and begins accepting connections. It blocks
// until the listener is ready, matching the source's synchronous start().
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.serveHTTP)
	s.httpServer = &http.Server{Handler: mux}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.Errorf("transport: server stopped serving: %v", err)
		}
	}()
	return nil
}

// Addr returns the address the listener is bound to. Valid only after
// Start has returned successfully.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	_, known := s.actions[r.URL.Path]
	s.mu.Unlock()
	if !known {
		http.NotFound(w, r)
		return
	}

	raw, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Errorf("transport: upgrade failed for %s: %v", r.URL.Path, err)
		return
	}
	conn := newWSConnection(r.URL.Path, raw)

	s.connMu.Lock()
	s.conns[conn] = struct{}{}
	s.connMu.Unlock()

	go s.runConnection(conn)
}

// runConnection is the per-connection receive loop: receive a frame,
// dispatch it through the path's action chain, send back the final
// non-empty response. A ConnectionClosed, or any other error, removes the
// connection and fires its close-observers (§4.7.1, §7).
func (s *Server) runConnection(conn *wsConnection) {
	defer func() {
		s.removeConnection(conn)
		// A receive failure has already fired the observers (fireClosed is
		// a no-op then); this covers the exits after a failed send.
		conn.fireClosed(websocket.CloseAbnormalClosure, "connection loop exited")
	}()

	for {
		frame, err := conn.Receive()
		if err != nil {
			return
		}

		s.mu.Lock()
		handlers := append([]ActionHandler(nil), s.actions[conn.Path()]...)
		s.mu.Unlock()

		resp, err := s.dispatch(handlers, conn, frame)
		if err != nil {
			errFrame, _ := json.Marshal(map[string]string{"error": err.Error()})
			if sendErr := conn.Send(errFrame); sendErr != nil {
				return
			}
			continue
		}
		if len(resp) > 0 {
			if sendErr := conn.Send(resp); sendErr != nil {
				return
			}
		}
	}
}

func (s *Server) dispatch(handlers []ActionHandler, conn Connection, frame []byte) (resp []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &handlerPanic{value: r}
		}
	}()

	for _, h := range handlers {
		resp, err = h(conn.Path(), frame, conn, resp)
		if err != nil {
			return nil, err
		}
	}
	return resp, nil
}

func (s *Server) removeConnection(conn *wsConnection) {
	s.connMu.Lock()
	delete(s.conns, conn)
	s.connMu.Unlock()
}

// Stop notifies every tracked connection with a normal close (code 1000,
// reason "server stop") and waits up to stopDrainTimeout for them to
// drain; after the timeout it proceeds regardless (§4.7.1).
func (s *Server) Stop() error {
	s.connMu.Lock()
	conns := make([]*wsConnection, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.connMu.Unlock()

	for _, c := range conns {
		c.Close(websocket.CloseNormalClosure, "server stop")
	}

	drained := make(chan struct{})
	go func() {
		for {
			s.connMu.Lock()
			n := len(s.conns)
			s.connMu.Unlock()
			if n == 0 {
				close(drained)
				return
			}
			time.Sleep(50 * time.Millisecond)
		}
	}()

	select {
	case <-drained:
	case <-time.After(stopDrainTimeout):
		logger.Warnf("transport: stop timed out waiting for connections to drain")
	}

	if s.httpServer != nil {
		_ = s.httpServer.Close()
	}
	s.wg.Wait()
	return nil
}

type handlerPanic struct{ value interface{} }

func (p *handlerPanic) Error() string {
	if err, ok := p.value.(error); ok {
		return err.Error()
	}
	return "internal error"
}
