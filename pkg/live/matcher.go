// Package live implements the live matcher: a registry of (connection,
// criteria) filters that every ingested event is piped through, forwarding
// serialized hits to the matching connections (§4.8).
package live

import (
	"errors"
	"sync"

	"github.com/theia-log/theia/pkg/logger"
	"github.com/theia-log/theia/pkg/model"
	"github.com/theia-log/theia/pkg/transport"
)

// Filter pairs a connection with the criteria an event must satisfy to be
// forwarded to it.
type Filter struct {
	Conn     transport.Connection
	Criteria model.Criteria
}

// ErrorHandler reacts to a failed send to a filter's connection. The
// default handler removes the filter when err is ErrConnectionClosed and
// logs otherwise (§4.8).
type ErrorHandler func(m *Matcher, f Filter, err error)

// Matcher maintains connection -> Filter and pipes each ingested event to
// every filter it matches. In the collector, AddFilter and the close
// observers that call RemoveFilter run on connection goroutines while Pipe
// runs on the store goroutine, so the filters map and Pipe's snapshot read
// are guarded by a mutex.
type Matcher struct {
	serializer model.EventSerializer

	mu      sync.RWMutex
	filters map[transport.Connection]Filter

	onError ErrorHandler
}

// NewMatcher builds an empty matcher using the default error handler.
func NewMatcher() *Matcher {
	m := &Matcher{filters: make(map[transport.Connection]Filter)}
	m.onError = defaultErrorHandler
	return m
}

// AddFilter inserts f, replacing any prior filter registered for the same
// connection.
func (m *Matcher) AddFilter(f Filter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filters[f.Conn] = f
}

// RemoveFilter drops the filter registered for conn, if any.
func (m *Matcher) RemoveFilter(conn transport.Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.filters, conn)
}

// Count returns the number of currently registered filters, for the
// admin/diagnostics surface.
func (m *Matcher) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.filters)
}

// Pipe iterates a snapshot of the current filters (taken atomically so
// error handlers may safely mutate the map) and, for each filter whose
// criteria event satisfies, serializes it and sends it on the filter's
// connection. Send errors are handed to the error handler (§4.8). Unlike
// the source, Serialize here cannot itself fail (it is pure byte
// formatting over an already-validated Event), so the
// {"error":true,"message":"..."} fallback payload the source sends on a
// serialization failure has no code path to exercise and is omitted.
func (m *Matcher) Pipe(event model.Event) {
	for _, f := range m.snapshot() {
		if !f.Criteria.Match(event) {
			continue
		}

		payload := m.serializer.Serialize(event)
		if sendErr := f.Conn.Send(payload); sendErr != nil {
			m.onError(m, f, sendErr)
		}
	}
}

func (m *Matcher) snapshot() []Filter {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Filter, 0, len(m.filters))
	for _, f := range m.filters {
		out = append(out, f)
	}
	return out
}

func defaultErrorHandler(m *Matcher, f Filter, err error) {
	if errors.Is(err, transport.ErrConnectionClosed) {
		m.RemoveFilter(f.Conn)
		return
	}
	logger.Warnf("live: send failed for connection on %s: %v", f.Conn.Path(), err)
}
