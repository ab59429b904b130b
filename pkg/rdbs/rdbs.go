// Package rdbs implements the relational alternative event-store backend
// described in §4.6: the same EventStore contract as pkg/naivestore, but
// backed by a SQL table indexed by id, timestamp, and source, and
// additionally supporting Get/Delete by id.
package rdbs

import (
	"context"
	"database/sql"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/theia-log/theia/pkg/model"
	"github.com/theia-log/theia/pkg/storeapi"
)

// pageSize bounds how many rows a single range query pulls before tag/
// content regex filters are applied in Go (§4.6: "page size ≈ 128").
const pageSize = 128

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id        TEXT PRIMARY KEY,
	timestamp REAL NOT NULL,
	source    TEXT NOT NULL,
	tags      TEXT NOT NULL,
	content   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events (timestamp);
CREATE INDEX IF NOT EXISTS idx_events_source ON events (source);
`

// RelationalEventStore is a storeapi.EventStore backed by a pure-Go SQLite
// database.
type RelationalEventStore struct {
	db *sql.DB
}

// New opens (creating if necessary) a SQLite database at path and ensures
// its schema.
func New(path string) (*RelationalEventStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "opening sqlite database")
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "creating schema")
	}
	return &RelationalEventStore{db: db}, nil
}

// Save inserts event, replacing any existing row with the same id.
func (s *RelationalEventStore) Save(ctx context.Context, event model.Event) error {
	tags, err := json.Marshal(event.Tags)
	if err != nil {
		return errors.Wrap(err, "marshaling tags")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO events (id, timestamp, source, tags, content) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET timestamp=excluded.timestamp, source=excluded.source,
		   tags=excluded.tags, content=excluded.content`,
		event.ID, event.Timestamp, event.Source, string(tags), event.Content)
	if err != nil {
		return errors.Wrap(storeapi.ErrStoreWrite, err.Error())
	}
	return nil
}

// Get retrieves the event with the given id, or ErrEventNotFound.
func (s *RelationalEventStore) Get(ctx context.Context, id string) (model.Event, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, timestamp, source, tags, content FROM events WHERE id = ?`, id)
	event, err := scanEvent(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Event{}, storeapi.ErrEventNotFound
	}
	if err != nil {
		return model.Event{}, errors.Wrap(err, "scanning event")
	}
	return event, nil
}

// Delete removes the event with the given id, or returns ErrEventNotFound
// if no such event exists.
func (s *RelationalEventStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "deleting event")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "checking rows affected")
	}
	if n == 0 {
		return storeapi.ErrEventNotFound
	}
	return nil
}

// Search streams events whose timestamp falls in [opts.From, opts.To)
// (To unbounded if nil), ordered per opts.Order, retrieving pageSize rows
// at a time and applying the tags/content filters as an in-process regex
// post-filter over each page (§4.6).
func (s *RelationalEventStore) Search(ctx context.Context, opts storeapi.SearchOptions) <-chan storeapi.SearchResult {
	out := make(chan storeapi.SearchResult)

	var contentRe *regexp.Regexp
	if opts.Content != "" {
		contentRe = regexp.MustCompile("(?i)" + opts.Content)
	}

	orderSQL := "ASC"
	if opts.Order == storeapi.OrderDesc {
		orderSQL = "DESC"
	}

	go func() {
		defer close(out)

		offset := 0
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			query := `SELECT id, timestamp, source, tags, content FROM events WHERE timestamp >= ?`
			args := []interface{}{opts.From}
			if opts.To != nil {
				query += ` AND timestamp < ?`
				args = append(args, *opts.To)
			}
			query += ` ORDER BY timestamp ` + orderSQL + ` LIMIT ? OFFSET ?`
			args = append(args, pageSize, offset)

			rows, err := s.db.QueryContext(ctx, query, args...)
			if err != nil {
				out <- storeapi.SearchResult{Err: errors.Wrap(err, "querying range")}
				return
			}

			n := 0
			for rows.Next() {
				n++
				event, err := scanEvent(rows.Scan)
				if err != nil {
					rows.Close()
					out <- storeapi.SearchResult{Err: errors.Wrap(err, "scanning row")}
					return
				}
				if !matchesPostFilter(event, opts.Tags, contentRe) {
					continue
				}
				select {
				case out <- storeapi.SearchResult{Event: event}:
				case <-ctx.Done():
					rows.Close()
					return
				}
			}
			rows.Close()
			if n < pageSize {
				return
			}
			offset += pageSize
		}
	}()

	return out
}

// PruneBefore deletes every row with a timestamp strictly before cutoff
// (a Unix-seconds timestamp) and returns the count removed, mirroring
// pkg/naivestore's partition-eviction contract for the retention sweep.
func (s *RelationalEventStore) PruneBefore(ctx context.Context, cutoff int64) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, errors.Wrap(err, "pruning expired events")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "checking rows affected")
	}
	return int(n), nil
}

// Close closes the underlying database handle.
func (s *RelationalEventStore) Close() error {
	return s.db.Close()
}

func matchesPostFilter(event model.Event, tags []string, contentRe *regexp.Regexp) bool {
	for _, want := range tags {
		if !event.HasTag(want) {
			return false
		}
	}
	if contentRe != nil && !contentRe.MatchString(event.Content) {
		return false
	}
	return true
}

func scanEvent(scan func(dest ...interface{}) error) (model.Event, error) {
	var (
		event   model.Event
		tagsRaw string
	)
	if err := scan(&event.ID, &event.Timestamp, &event.Source, &tagsRaw, &event.Content); err != nil {
		return model.Event{}, err
	}
	if strings.TrimSpace(tagsRaw) != "" {
		if err := json.Unmarshal([]byte(tagsRaw), &event.Tags); err != nil {
			return model.Event{}, errors.Wrap(err, "unmarshaling tags")
		}
	}
	return event, nil
}
