package model

import (
	"time"

	"github.com/google/uuid"
)

// Event is an immutable, timestamped, tagged text record. It is the unit of
// ingestion, storage, and live delivery.
type Event struct {
	ID        string
	Source    string
	Timestamp float64 // seconds since Unix epoch, sub-second precision
	Tags      []string
	Content   string
}

// NewEvent builds an Event, filling an id and timestamp when the caller
// leaves them zero-valued, matching the defaulting behavior of the source
// event constructor: a missing id becomes a random uuid, a missing
// timestamp becomes "now".
func NewEvent(id, source string, timestamp float64, tags []string, content string) Event {
	if id == "" {
		id = uuid.New().String()
	}
	if timestamp == 0 {
		timestamp = float64(time.Now().UnixNano()) / 1e9
	}
	if tags == nil {
		tags = []string{}
	}
	return Event{
		ID:        id,
		Source:    source,
		Timestamp: timestamp,
		Tags:      tags,
		Content:   content,
	}
}

// HasTag reports whether t is present among the event's tags.
func (e Event) HasTag(t string) bool {
	for _, tag := range e.Tags {
		if tag == t {
			return true
		}
	}
	return false
}
