// Copyright 2025 The Theia Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package adminapi

import (
	"sync"

	"github.com/theia-log/theia/pkg/model"
)

// DefaultRecentBufferSize bounds how many ingested events Recorder keeps
// for the /recent diagnostics endpoint.
const DefaultRecentBufferSize = 1000

// Recorder is a bounded in-memory ring buffer of recently ingested
// events, exposed by the admin API for ad-hoc debugging without a live
// subscription or a historical /find query.
type Recorder struct {
	mu     sync.RWMutex
	events []model.Event
	size   int
	next   int
	count  int
}

// NewRecorder builds a Recorder that retains at most size events. A
// non-positive size falls back to DefaultRecentBufferSize.
func NewRecorder(size int) *Recorder {
	if size <= 0 {
		size = DefaultRecentBufferSize
	}
	return &Recorder{events: make([]model.Event, size), size: size}
}

// Record appends event, overwriting the oldest entry once the buffer is
// full.
func (r *Recorder) Record(event model.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[r.next] = event
	r.next = (r.next + 1) % r.size
	if r.count < r.size {
		r.count++
	}
}

// List returns up to limit of the most recently recorded events, oldest
// first. A non-positive limit returns every retained event.
func (r *Recorder) List(limit int) []model.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := r.count
	if limit > 0 && n > limit {
		n = limit
	}
	if n == 0 {
		return nil
	}

	start := 0
	if r.count == r.size {
		start = (r.next - r.count + r.size) % r.size
	}
	// When limit truncates, keep the most recent n, not the oldest n.
	start = (start + (r.count - n)) % r.size

	out := make([]model.Event, n)
	for i := 0; i < n; i++ {
		out[i] = r.events[(start+i)%r.size]
	}
	return out
}
