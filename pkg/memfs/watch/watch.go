// Package watch implements PollingWatchService, the directory-change
// notification mechanism of spec.md §4.6. It generalizes the teacher's
// pkg/filesystem/watch_poll.go poll/watchPoll pair from walking a real
// directory tree to diffing an in-memory tree.Directory snapshot, keeping
// the same "timer fires, diff, non-blocking enqueue, reset timer" shape.
package watch

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mutagen-io/memfs/pkg/memfs/errs"
	"github.com/mutagen-io/memfs/pkg/memfs/memfslog"
	"github.com/mutagen-io/memfs/pkg/memfs/tree"
)

// snapshotEntry records what a watched directory's diff loop needs to
// remember about one entry between polls: its last-modified time (to
// detect MODIFY) and its display name (to report on DELETE, when the
// entry itself is gone).
type snapshotEntry struct {
	display string
	mtime   time.Time
}

// EventKind identifies the category of change a Key was told to report.
type EventKind uint8

const (
	// Create indicates that a name appeared in the watched directory that
	// was not present in the previous snapshot.
	Create EventKind = iota
	// Delete indicates that a name present in the previous snapshot is no
	// longer present.
	Delete
	// Modify indicates that a name is present in both snapshots but its
	// target's last-modified time has changed.
	Modify
)

// String returns a short, stable name for the kind.
func (k EventKind) String() string {
	switch k {
	case Create:
		return "create"
	case Delete:
		return "delete"
	case Modify:
		return "modify"
	default:
		return "unknown"
	}
}

// WatchEvent reports a single detected change: the kind of change and the
// bare display name of the entry within the watched directory.
type WatchEvent struct {
	Kind EventKind
	Name string
}

// PollingWatchService maintains a set of registered Keys, each watching one
// tree.Directory, and a background loop that diffs every registration's
// directory on each tick of interval, per spec.md §4.6.
type PollingWatchService struct {
	mu        sync.Mutex
	interval  time.Duration
	keys      map[uuid.UUID]*Key
	readyList []*Key
	wake      chan struct{}
	closed    bool
	cancel    context.CancelFunc
	done      chan struct{}
	logger    *memfslog.Logger
}

// New creates a service that polls every registered directory once per
// interval. The background loop does not start until the first key
// registers. logger may be nil; when set, it receives a warning each time
// a poll's own work takes longer than interval, the same way the
// teacher's background transports warn on recoverable but noteworthy
// conditions.
func New(interval time.Duration, logger *memfslog.Logger) *PollingWatchService {
	return &PollingWatchService{
		interval: interval,
		keys:     make(map[uuid.UUID]*Key),
		wake:     make(chan struct{}),
		logger:   logger,
	}
}

// signal wakes every goroutine blocked in Take by closing and replacing the
// wake channel, mirroring the close-to-broadcast idiom used by the
// channel package's fairRWLock.
func (s *PollingWatchService) signal() {
	close(s.wake)
	s.wake = make(chan struct{})
}

// Register begins watching file, which must be a directory, for the given
// kinds of change. It fails with NotFound if file is nil (the caller could
// not resolve the path) and with NotDirectory if file is not a directory.
func (s *PollingWatchService) Register(file *tree.File, kinds ...EventKind) (*Key, error) {
	if file == nil {
		return nil, errs.New(errs.NotFound, "no such file or directory")
	}
	if !file.IsDirectory() {
		return nil, errs.New(errs.NotDirectory, "watch target is not a directory")
	}

	kindSet := make(map[EventKind]bool, len(kinds))
	for _, k := range kinds {
		kindSet[k] = true
	}

	key := &Key{
		id:        uuid.New(),
		service:   s,
		directory: file.Directory(),
		kinds:     kindSet,
		valid:     true,
	}
	key.snapshot, _ = diffDirectory(key.directory, nil)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, errs.New(errs.Closed, "watch service is closed")
	}
	s.keys[key.id] = key
	needStart := s.cancel == nil
	s.mu.Unlock()

	if needStart {
		s.start()
	}

	return key, nil
}

// start launches the background polling loop. Called at most once, the
// first time a key registers.
func (s *PollingWatchService) start() {
	ctx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		cancel()
		return
	}
	s.cancel = cancel
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.loop(ctx)
}

// loop is the background polling goroutine, modeled directly on
// watchPoll's timer/select structure.
func (s *PollingWatchService) loop(ctx context.Context) {
	defer close(s.done)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			start := time.Now()
			s.pollOnce()
			if elapsed := time.Since(start); elapsed > s.interval {
				s.logger.Warn(errs.Newf(errs.Io, "watch poll took %s, longer than its %s interval", elapsed, s.interval))
			}
			timer.Reset(s.interval)
		}
	}
}

// pollOnce diffs every currently registered key's directory once.
func (s *PollingWatchService) pollOnce() {
	s.mu.Lock()
	keys := make([]*Key, 0, len(s.keys))
	for _, k := range s.keys {
		keys = append(keys, k)
	}
	s.mu.Unlock()

	for _, key := range keys {
		key.poll()
	}
}

// enqueue places key on the ready queue if it is not already queued,
// waking any goroutine blocked in Take.
func (s *PollingWatchService) enqueue(key *Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if key.queued {
		return
	}
	key.queued = true
	s.readyList = append(s.readyList, key)
	s.signal()
}

// Take blocks until a key has pending events (or ctx is cancelled, or the
// service closes), then removes and returns it. The caller should call
// PollEvents on the returned key to drain its events and Reset to re-arm
// it for the ready queue.
func (s *PollingWatchService) Take(ctx context.Context) (*Key, error) {
	for {
		s.mu.Lock()
		if len(s.readyList) > 0 {
			key := s.readyList[0]
			s.readyList = s.readyList[1:]
			key.queued = false
			s.mu.Unlock()
			return key, nil
		}
		if s.closed {
			s.mu.Unlock()
			return nil, errs.New(errs.Closed, "watch service is closed")
		}
		wake := s.wake
		s.mu.Unlock()

		select {
		case <-wake:
		case <-ctx.Done():
			return nil, errs.Wrap(errs.Interrupted, ctx.Err(), "watch take interrupted")
		}
	}
}

// Poll returns a ready key without blocking, or (nil, false) if none is
// ready.
func (s *PollingWatchService) Poll() (*Key, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.readyList) == 0 {
		return nil, false
	}
	key := s.readyList[0]
	s.readyList = s.readyList[1:]
	key.queued = false
	return key, true
}

// cancelKey removes key from the registration set, called by Key.Cancel.
func (s *PollingWatchService) cancelKey(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, id)
}

// Close cancels every registered key, stops the polling loop, and unblocks
// any goroutine waiting in Take. Close is idempotent.
func (s *PollingWatchService) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for _, key := range s.keys {
		key.invalidate()
	}
	s.keys = make(map[uuid.UUID]*Key)
	cancel := s.cancel
	s.signal()
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-s.done
	}

	return nil
}

// diffDirectory snapshots dir's current entries and compares them against
// previous (nil on first call), returning the new snapshot and the events
// implied by the comparison per spec.md §4.6 step 2.
func diffDirectory(dir *tree.Directory, previous map[string]snapshotEntry) (map[string]snapshotEntry, []WatchEvent) {
	entries := dir.SnapshotEntries()
	next := make(map[string]snapshotEntry, len(entries))
	seen := make(map[string]bool, len(entries))

	var events []WatchEvent
	for _, entry := range entries {
		key := entry.Name.Canonical()
		mtime := entry.File.LastModifiedTime()
		next[key] = snapshotEntry{display: entry.Name.Display(), mtime: mtime}
		seen[key] = true

		if previous == nil {
			continue
		}
		prev, existed := previous[key]
		if !existed {
			events = append(events, WatchEvent{Kind: Create, Name: entry.Name.Display()})
		} else if !prev.mtime.Equal(mtime) {
			events = append(events, WatchEvent{Kind: Modify, Name: entry.Name.Display()})
		}
	}

	for key, prev := range previous {
		if !seen[key] {
			events = append(events, WatchEvent{Kind: Delete, Name: prev.display})
		}
	}

	return next, events
}
