// Package collector wires the framed transport server, the event store,
// and the live matcher into the orchestrator described in §4.9: it owns
// their lifecycle and bridges the server's connection-handling context
// with the store's (potentially blocking) persistence context.
package collector

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"

	"github.com/theia-log/theia/pkg/live"
	"github.com/theia-log/theia/pkg/logger"
	"github.com/theia-log/theia/pkg/model"
	"github.com/theia-log/theia/pkg/storeapi"
	"github.com/theia-log/theia/pkg/transport"
)

// Collector constructs the store, server, and live matcher described in
// §4.9, and runs two cooperative contexts: the server's connection-
// handling goroutines, and a single store-context goroutine that serializes
// all store work so CPU/disk-bound persistence never blocks the accept
// loop (the Go analogue of the source's two asyncio event loops talking
// over call_soon_threadsafe).
type Collector struct {
	server  *transport.Server
	store   storeapi.EventStore // nil selects non-persistent mode
	matcher *live.Matcher

	storeWork chan func()
	stopWork  chan struct{}
	wg        sync.WaitGroup

	onIngested func(model.Event)
}

// New builds a Collector listening on addr. store may be nil to run in
// non-persistent mode, in which case /find replies with an error instead
// of streaming (§4.7.3, §9).
func New(addr string, store storeapi.EventStore) *Collector {
	c := &Collector{
		server:    transport.NewServer(addr),
		store:     store,
		matcher:   live.NewMatcher(),
		storeWork: make(chan func(), 256),
		stopWork:  make(chan struct{}),
	}
	c.server.OnAction("/event", c.onEvent)
	c.server.OnAction("/live", c.onLive)
	c.server.OnAction("/find", c.onFind)
	return c
}

// Matcher exposes the live matcher for the admin/diagnostics surface.
func (c *Collector) Matcher() *live.Matcher { return c.matcher }

// OnIngested registers a hook invoked (from the store context) with every
// ingested event, after it has been saved (when a store is configured) and
// the live matcher has been fed. Events whose save fails are not passed to
// the hook. Intended
// for wiring an outer diagnostics recorder without pkg/collector depending
// on it.
func (c *Collector) OnIngested(hook func(model.Event)) {
	c.onIngested = hook
}

// Run starts the store-context worker goroutine and the transport server,
// and blocks the caller not at all — callers select on a stop signal (e.g.
// a process signal) and then call Stop.
func (c *Collector) Run() error {
	c.wg.Add(1)
	go c.runStoreLoop()

	if err := c.server.Start(); err != nil {
		return errors.Wrap(err, "starting transport server")
	}
	return nil
}

func (c *Collector) runStoreLoop() {
	defer c.wg.Done()
	for {
		select {
		case <-c.stopWork:
			return
		case work := <-c.storeWork:
			work()
		}
	}
}

// Stop shuts down the server (draining connections up to its timeout),
// stops the store-context loop, then closes the store (§4.9).
func (c *Collector) Stop() error {
	if err := c.server.Stop(); err != nil {
		logger.Warnf("collector: server stop: %v", err)
	}
	close(c.stopWork)
	c.wg.Wait()
	if c.store != nil {
		return c.store.Close()
	}
	return nil
}

// onEvent handles /event: the frame must be a serialized event. It crosses
// to the store context, which persists the event and then, still on the
// store goroutine, pipes it through the live matcher. An event whose save
// fails is not piped. No reply is sent (§4.7.3).
func (c *Collector) onEvent(path string, frame []byte, conn transport.Connection, prev []byte) ([]byte, error) {
	var parser model.EventParser
	event, err := parser.ParseEvent(bufio.NewReader(bytes.NewReader(frame)), false)
	if err != nil {
		return nil, errors.Wrap(err, "parsing ingested event")
	}

	c.storeWork <- func() {
		if c.store != nil {
			if err := c.store.Save(context.Background(), event); err != nil {
				logger.Errorf("collector: save failed for event %s: %v", event.ID, err)
				return
			}
		}
		c.matcher.Pipe(event)
		if c.onIngested != nil {
			c.onIngested(event)
		}
	}
	return nil, nil
}

// onLive handles /live: the first frame is a JSON criteria object. It
// validates the criteria, registers a filter for conn, and replies "ok".
// Subsequent frames on the connection are not ignored: each one is parsed
// the same way and replaces the connection's filter (AddFilter replaces,
// it never stacks), and is answered with "ok" or an error.
func (c *Collector) onLive(path string, frame []byte, conn transport.Connection, prev []byte) ([]byte, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(frame, &raw); err != nil {
		return nil, errors.Wrap(model.ErrInvalidCriteria, "malformed JSON criteria")
	}
	criteria, err := model.ParseCriteria(raw)
	if err != nil {
		return nil, err
	}

	c.matcher.AddFilter(live.Filter{Conn: conn, Criteria: criteria})
	conn.OnClose(func(code int, reason string) {
		c.matcher.RemoveFilter(conn)
	})
	return []byte(`"ok"`), nil
}

// findRequest is the JSON shape of a /find request frame.
type findRequest struct {
	Start   *float64 `json:"start"`
	End     *float64 `json:"end"`
	Tags    []string `json:"tags"`
	Content string   `json:"content"`
	Order   string   `json:"order"`
}

// onFind handles /find: replies "ok" then streams serialized matches on
// the same connection. On a non-persistent collector it replies with an
// inline JSON error instead, per §9's documented exception to the
// protocol's usual "ok"/event-stream contract.
func (c *Collector) onFind(path string, frame []byte, conn transport.Connection, prev []byte) ([]byte, error) {
	if c.store == nil {
		return nil, errors.New("find not available: no store configured")
	}

	var req findRequest
	if err := json.Unmarshal(frame, &req); err != nil {
		return nil, errors.Wrap(model.ErrInvalidCriteria, "malformed JSON find request")
	}
	if req.Start == nil {
		return nil, errors.Wrap(model.ErrInvalidCriteria, "missing start timestamp")
	}

	order := storeapi.OrderAsc
	if req.Order == string(storeapi.OrderDesc) {
		order = storeapi.OrderDesc
	}
	opts := storeapi.SearchOptions{
		From:    *req.Start,
		To:      req.End,
		Tags:    req.Tags,
		Content: req.Content,
		Order:   order,
	}

	// Send "ok" before queueing the search so it always precedes the
	// streamed events; nothing is returned for the chain to send.
	if err := conn.Send([]byte(`"ok"`)); err != nil {
		return nil, err
	}
	c.storeWork <- func() {
		c.streamSearchResults(conn, opts)
	}
	return nil, nil
}

func (c *Collector) streamSearchResults(conn transport.Connection, opts storeapi.SearchOptions) {
	var serializer model.EventSerializer
	for result := range c.store.Search(context.Background(), opts) {
		if result.Err != nil {
			logger.Warnf("collector: search error: %v", result.Err)
			return
		}
		if err := conn.Send(serializer.Serialize(result.Event)); err != nil {
			return
		}
	}
}
