// Package naivestore implements the time-partitioned, append-only naive
// event store: a FileIndex over on-disk partitions, a MemoryFile write
// buffer per partition, a background flusher, and the NaiveEventStore that
// ties them together (§4.2-§4.5).
package naivestore

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"sync"
)

// DataFile is one persisted partition: its path on disk and its inclusive
// [Start, End] timestamp range, both integer seconds.
type DataFile struct {
	Path  string
	Start int64
	End   int64
}

var dataFileNamePattern = regexp.MustCompile(`^(\d+)-(\d+)`)

func parseDataFileName(root, name string) (DataFile, bool) {
	m := dataFileNamePattern.FindStringSubmatch(name)
	if m == nil {
		return DataFile{}, false
	}
	start, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return DataFile{}, false
	}
	end, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return DataFile{}, false
	}
	return DataFile{Path: filepath.Join(root, name), Start: start, End: end}, true
}

// BinarySearch returns the index of the first entry in files (sorted
// ascending by Start) whose End is >= t. It returns -1 when files is empty
// or t falls outside [files[0].Start, files[len-1].End]; a t that falls in
// a gap between two partitions still resolves to the next later partition,
// since it is within the overall span (§4.2 binary-search contract, and
// the find_event_file "gap -> next file" scenario in §8). Tie-breaks favor
// the left-most qualifying entry.
func BinarySearch(files []DataFile, t int64) int {
	if len(files) == 0 {
		return -1
	}
	if files[0].Start > t || files[len(files)-1].End < t {
		return -1
	}
	return sort.Search(len(files), func(i int) bool { return files[i].End >= t })
}

// FileIndex is the in-memory ordered view of a root directory's
// partitions, supporting range and point lookup via BinarySearch (§4.2).
// It is single-writer: only the owning NaiveEventStore calls AddFile,
// under its own write lock. The mutex here only protects the slice header
// itself from a concurrent append/sort race with a reader's in-progress
// binary search; it is not the "store write lock" of §5.
type FileIndex struct {
	root string

	mu    sync.RWMutex
	files []DataFile
}

// NewFileIndex scans root once, adopting every entry whose name matches
// `\d+-\d+`, and returns an index sorted ascending by start.
func NewFileIndex(root string) (*FileIndex, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	idx := &FileIndex{root: root}
	for _, ent := range entries {
		if ent.IsDir() {
			continue
		}
		if df, ok := parseDataFileName(root, ent.Name()); ok {
			idx.files = append(idx.files, df)
		}
	}
	sort.Slice(idx.files, func(i, j int) bool { return idx.files[i].Start < idx.files[j].Start })
	return idx, nil
}

// Snapshot returns an immutable copy of the current sorted file list.
func (idx *FileIndex) Snapshot() []DataFile {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]DataFile, len(idx.files))
	copy(out, idx.files)
	return out
}

// Find returns every DataFile whose range intersects [from, to], where
// to == 0 denotes an open-ended upper bound (§4.2). Unlike BinarySearch,
// a from before the first partition's start is not "outside the span":
// every partition still trivially satisfies End >= from, so the scan
// simply starts at index 0 instead of reporting no match.
func (idx *FileIndex) Find(from, to int64) []DataFile {
	files := idx.Snapshot()
	i := sort.Search(len(files), func(i int) bool { return files[i].End >= from })
	if i == len(files) {
		return nil
	}

	var found []DataFile
	for ; i < len(files); i++ {
		df := files[i]
		if to != 0 && df.Start > to {
			break
		}
		found = append(found, df)
	}
	return found
}

// FindEventFile returns the DataFile whose range contains ts, or — when ts
// falls in a gap between two partitions — the next later partition.
// Returns nil when ts is outside the index's total span.
func (idx *FileIndex) FindEventFile(ts int64) *DataFile {
	files := idx.Snapshot()
	i := BinarySearch(files, ts)
	if i < 0 {
		return nil
	}
	df := files[i]
	return &df
}

// AddFile parses name as a partition filename and inserts it, re-sorting
// by start. Only the owning store calls this, from its own write lock.
func (idx *FileIndex) AddFile(name string) {
	df, ok := parseDataFileName(idx.root, name)
	if !ok {
		return
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.files = append(idx.files, df)
	sort.Slice(idx.files, func(i, j int) bool { return idx.files[i].Start < idx.files[j].Start })
}

// ExpiredBefore returns the DataFiles whose End is strictly less than
// cutoff, for the retention sweep to remove.
func (idx *FileIndex) ExpiredBefore(cutoff int64) []DataFile {
	var out []DataFile
	for _, df := range idx.Snapshot() {
		if df.End < cutoff {
			out = append(out, df)
		}
	}
	return out
}

// RemoveFile drops path from the index, if present.
func (idx *FileIndex) RemoveFile(path string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for i, df := range idx.files {
		if df.Path == path {
			idx.files = append(idx.files[:i], idx.files[i+1:]...)
			return
		}
	}
}
