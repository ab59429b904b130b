// Package storeapi defines the contract every persistence backend (the
// naive file store and the relational alternative) satisfies.
package storeapi

import (
	"context"

	"github.com/pkg/errors"

	"github.com/theia-log/theia/pkg/model"
)

// ErrUnsupportedOperation is returned by backends that do not implement an
// operation, such as the naive store's Get and Delete (§4.5).
var ErrUnsupportedOperation = errors.New("storeapi: operation not supported")

// ErrEventNotFound is returned by Get when no event with the requested id
// exists.
var ErrEventNotFound = errors.New("storeapi: event not found")

// ErrStoreWrite wraps a failure that occurred while persisting an event,
// e.g. a disk write or rename error during flush.
var ErrStoreWrite = errors.New("storeapi: write failed")

// Order selects the direction search results are streamed in.
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// SearchOptions narrows a Search call to a time range and optional
// tag/content predicates.
type SearchOptions struct {
	From    float64
	To      *float64 // nil means open-ended
	Tags    []string
	Content string // empty means no content filter
	Order   Order
}

// SearchResult is one item of a Search stream: either an Event or a
// terminal error. Err is only ever set on the final item sent before the
// channel is closed.
type SearchResult struct {
	Event model.Event
	Err   error
}

// EventStore is the interface every persistence backend satisfies. An
// implementation is safe for concurrent use.
type EventStore interface {
	// Save persists event. It either fully succeeds or fails completely,
	// leaving the store in a consistent state.
	Save(ctx context.Context, event model.Event) error

	// Get looks up an event by id. Backends that don't support point
	// lookup (the naive store) return ErrUnsupportedOperation.
	Get(ctx context.Context, id string) (model.Event, error)

	// Delete removes an event by id. Backends that don't support deletion
	// (the naive store) return ErrUnsupportedOperation.
	Delete(ctx context.Context, id string) error

	// Search streams events matching opts in the requested order. The
	// returned channel is closed once the search completes or ctx is
	// canceled; a non-nil SearchResult.Err on the final item signals a
	// read failure mid-stream.
	Search(ctx context.Context, opts SearchOptions) <-chan SearchResult

	// Close flushes any buffered state and releases resources owned by
	// the store.
	Close() error
}
