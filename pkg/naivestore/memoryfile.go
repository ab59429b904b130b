package naivestore

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// MemoryFile is a per-partition write buffer with atomic rename-on-flush
// (§4.3). Write and Flush are guarded by a plain mutex — unlike the
// source's reentrant lock, nothing here calls back into the store while
// holding it, so a non-reentrant lock is sufficient.
type MemoryFile struct {
	name string
	dir  string

	mu  sync.Mutex
	buf bytes.Buffer
}

// NewMemoryFile creates an empty buffer for the partition file named name
// inside dir.
func NewMemoryFile(name, dir string) *MemoryFile {
	return &MemoryFile{name: name, dir: dir}
}

// Write appends b to the buffer.
func (m *MemoryFile) Write(b []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buf.Write(b)
}

// Snapshot returns a copy of the buffer's current bytes.
func (m *MemoryFile) Snapshot() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]byte, m.buf.Len())
	copy(out, m.buf.Bytes())
	return out
}

// Flush writes the current buffer contents to a fresh temp file in the
// same directory, fsyncs and closes it, then atomically renames it over
// the final partition path. The whole operation (including the snapshot
// read of the buffer) happens under lock so that a flush always sees a
// consistent buffer and readers only ever observe a complete prior file or
// a complete new one. Flush never truncates the buffer, so repeated
// flushes with no intervening writes are idempotent.
func (m *MemoryFile) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tmp, err := os.CreateTemp(m.dir, m.name+".tmp-*")
	if err != nil {
		return errors.Wrapf(err, "creating temp file for %s", m.name)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(m.buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.Wrapf(err, "writing temp file for %s", m.name)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.Wrapf(err, "fsyncing temp file for %s", m.name)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.Wrapf(err, "closing temp file for %s", m.name)
	}

	finalPath := filepath.Join(m.dir, m.name)
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return errors.Wrapf(err, "renaming temp file over %s", finalPath)
	}
	return nil
}
