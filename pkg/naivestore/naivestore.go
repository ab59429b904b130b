package naivestore

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/theia-log/theia/pkg/logger"
	"github.com/theia-log/theia/pkg/model"
	"github.com/theia-log/theia/pkg/storeapi"
)

// partitionWindow is the fixed width (seconds) of a new DataFile, per §3.
const partitionWindow = 60

// NaiveEventStore is the time-partitioned, append-only persistence backend
// (§4.5). get/delete are unsupported; search streams matches across the
// partitions overlapping the requested range.
type NaiveEventStore struct {
	rootDir       string
	serializer    model.EventSerializer
	index         *FileIndex
	flushInterval time.Duration // <=0 means flush synchronously after every write

	writeLock sync.Mutex // guards openFiles mutation and partition creation; buffer writes use the MemoryFile's own lock
	openFiles map[string]*MemoryFile

	flusher *PeriodicFlusher
}

// New opens (or creates) a naive event store rooted at rootDir. A
// flushInterval <= 0 disables the periodic flusher and flushes
// synchronously after every save.
func New(rootDir string, flushInterval time.Duration) (*NaiveEventStore, error) {
	if err := os.MkdirAll(rootDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating root dir %s", rootDir)
	}
	idx, err := NewFileIndex(rootDir)
	if err != nil {
		return nil, errors.Wrapf(err, "loading file index from %s", rootDir)
	}

	s := &NaiveEventStore{
		rootDir:       rootDir,
		index:         idx,
		flushInterval: flushInterval,
		openFiles:     make(map[string]*MemoryFile),
	}
	if flushInterval > 0 {
		s.flusher = NewPeriodicFlusher(flushInterval, s.flushOpenFiles)
		s.flusher.Start()
		logger.Infof("naivestore: flushing buffers every %s", flushInterval)
	}
	return s, nil
}

func (s *NaiveEventStore) getEventFile(ts int64) *DataFile {
	if df := s.index.FindEventFile(ts); df != nil {
		return df
	}

	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	// Re-check under lock: another writer may have created the partition
	// while we raced to acquire it.
	if df := s.index.FindEventFile(ts); df != nil {
		return df
	}

	df := s.newDataFile(ts)
	s.index.AddFile(filepath.Base(df.Path))
	return &df
}

func (s *NaiveEventStore) newDataFile(ts int64) DataFile {
	end := ts + partitionWindow
	name := strconv.FormatInt(ts, 10) + "-" + strconv.FormatInt(end, 10)
	return DataFile{Path: filepath.Join(s.rootDir, name), Start: ts, End: end}
}

func (s *NaiveEventStore) flushOpenFiles() {
	s.writeLock.Lock()
	files := make([]*MemoryFile, 0, len(s.openFiles))
	for _, mf := range s.openFiles {
		files = append(files, mf)
	}
	s.writeLock.Unlock()

	for _, mf := range files {
		if err := mf.Flush(); err != nil {
			logger.Errorf("naivestore: %v", errors.Wrap(storeapi.ErrStoreWrite, err.Error()))
		}
	}
}

// Save selects the partition for event.Timestamp (creating one if needed),
// appends the serialized event plus a trailing separator to its buffer,
// and flushes synchronously when the store runs with no periodic flusher.
func (s *NaiveEventStore) Save(ctx context.Context, event model.Event) error {
	df := s.getEventFile(int64(event.Timestamp))

	s.writeLock.Lock()
	mf, ok := s.openFiles[df.Path]
	if !ok {
		mf = NewMemoryFile(filepath.Base(df.Path), filepath.Dir(df.Path))
		s.openFiles[df.Path] = mf
	}
	s.writeLock.Unlock()

	data := s.serializer.Serialize(event)
	data = append(data, '\n')
	mf.Write(data)

	if s.flushInterval <= 0 {
		if err := mf.Flush(); err != nil {
			return errors.Wrap(storeapi.ErrStoreWrite, err.Error())
		}
	}
	return nil
}

// Get is unsupported on the naive store (§4.5).
func (s *NaiveEventStore) Get(ctx context.Context, id string) (model.Event, error) {
	return model.Event{}, storeapi.ErrUnsupportedOperation
}

// Delete is unsupported on the naive store (§4.5).
func (s *NaiveEventStore) Delete(ctx context.Context, id string) error {
	return storeapi.ErrUnsupportedOperation
}

// Search streams events from every partition overlapping
// [opts.From, opts.To] in the requested order. Ordering note: desc
// reverses within each partition but still visits partitions oldest to
// newest, matching the source's documented scope ambiguity (§9, §4.5).
func (s *NaiveEventStore) Search(ctx context.Context, opts storeapi.SearchOptions) <-chan storeapi.SearchResult {
	out := make(chan storeapi.SearchResult)

	to := int64(0)
	if opts.To != nil {
		to = int64(*opts.To)
	}
	dataFiles := s.index.Find(int64(opts.From), to)

	go func() {
		defer close(out)
		for _, df := range dataFiles {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if !s.searchDataFile(ctx, df, opts, out) {
				return
			}
		}
	}()

	return out
}

// searchDataFile streams (or buffers-then-reverses, for desc) the matches
// from a single partition. It returns false if the consumer's context was
// canceled mid-stream.
func (s *NaiveEventStore) searchDataFile(ctx context.Context, df DataFile, opts storeapi.SearchOptions, out chan<- storeapi.SearchResult) bool {
	matches, err := s.matchForward(df, opts)
	if err != nil {
		select {
		case out <- storeapi.SearchResult{Err: errors.Wrapf(err, "reading partition %s", df.Path)}:
		case <-ctx.Done():
		}
		return false
	}

	if opts.Order == storeapi.OrderDesc {
		for i := len(matches) - 1; i >= 0; i-- {
			select {
			case out <- storeapi.SearchResult{Event: matches[i]}:
			case <-ctx.Done():
				return false
			}
		}
		return true
	}

	for _, e := range matches {
		select {
		case out <- storeapi.SearchResult{Event: e}:
		case <-ctx.Done():
			return false
		}
	}
	return true
}

func (s *NaiveEventStore) matchForward(df DataFile, opts storeapi.SearchOptions) ([]model.Event, error) {
	f, err := os.Open(df.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var contentRe *regexp.Regexp
	if opts.Content != "" {
		contentRe, err = regexp.Compile("(?i)" + regexp.QuoteMeta(opts.Content))
		if err != nil {
			return nil, err
		}
	}

	r := bufio.NewReader(f)
	var parser model.EventParser
	var matches []model.Event
	for {
		event, err := parser.ParseEvent(r, false)
		if err != nil {
			if errors.Is(err, model.ErrEOF) {
				break
			}
			return nil, err
		}
		if event.Timestamp < opts.From {
			continue
		}
		if opts.To != nil && event.Timestamp > *opts.To {
			continue
		}
		if !matchesFilters(event, opts.Tags, contentRe) {
			continue
		}
		matches = append(matches, event)
	}
	return matches, nil
}

// matchesFilters implements the naive store's own tag/content predicate
// (§4.5): every requested tag must be present, and when a content filter
// is supplied it is a case-insensitive substring search, distinct from the
// anchored-at-start regex used by live/find Criteria (see pkg/model).
func matchesFilters(e model.Event, tags []string, contentRe *regexp.Regexp) bool {
	for _, tag := range tags {
		if !e.HasTag(tag) {
			return false
		}
	}
	if contentRe != nil && !contentRe.MatchString(e.Content) {
		return false
	}
	return true
}

// PruneBefore deletes every partition whose End is strictly before
// cutoff (a Unix-seconds timestamp), removing both the on-disk file and
// its open buffer, if any, and returns the count removed. Grounded on
// the retention sweep's need for a backend-specific eviction routine
// (§4.2's partition model makes "age" equivalent to "End < cutoff").
func (s *NaiveEventStore) PruneBefore(ctx context.Context, cutoff int64) (int, error) {
	expired := s.index.ExpiredBefore(cutoff)
	removed := 0
	for _, df := range expired {
		select {
		case <-ctx.Done():
			return removed, ctx.Err()
		default:
		}

		s.writeLock.Lock()
		delete(s.openFiles, df.Path)
		s.writeLock.Unlock()

		if err := os.Remove(df.Path); err != nil && !os.IsNotExist(err) {
			return removed, errors.Wrapf(err, "removing expired partition %s", df.Path)
		}
		s.index.RemoveFile(df.Path)
		removed++
	}
	return removed, nil
}

// Close flushes all open buffers, cancels the periodic flusher, and joins
// it (§4.5).
func (s *NaiveEventStore) Close() error {
	s.flushOpenFiles()
	if s.flusher != nil {
		s.flusher.Cancel()
		s.flusher.Join()
	}
	logger.Infof("naivestore: stopped")
	return nil
}
