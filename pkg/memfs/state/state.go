// Package state implements FileSystemState, the per-filesystem open flag
// and closeable registry of spec.md §4.7: every operation that touches
// the filesystem calls CheckOpen first, and Close cascades to every
// resource the filesystem has handed out, closing all of them even if
// one fails.
package state

import (
	"io"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mutagen-io/memfs/pkg/memfs/errs"
	"github.com/mutagen-io/memfs/pkg/memfs/memfslog"
)

// FileSystemState tracks whether a filesystem instance is open and holds
// the registry of closeable resources (open FileChannels, directory
// streams, the watch service) it has handed out, so that closing the
// filesystem closes everything still outstanding.
type FileSystemState struct {
	mu        sync.Mutex
	open      bool
	resources map[uuid.UUID]io.Closer
	onClose   func() error
	logger    *memfslog.Logger
}

// New creates an open FileSystemState. onClose, if non-nil, runs after
// every registered resource has been closed, and its error (if any)
// becomes the returned error's cause when no resource close failed first.
// logger may be nil; when set, it receives a warning for every resource
// close that fails after the first (the ones whose failures are
// suppressed rather than returned).
func New(onClose func() error, logger *memfslog.Logger) *FileSystemState {
	return &FileSystemState{
		open:      true,
		resources: make(map[uuid.UUID]io.Closer),
		onClose:   onClose,
		logger:    logger,
	}
}

// CheckOpen fails with Closed if the filesystem has already been closed.
// Every public filesystem operation must call this before doing any work.
func (s *FileSystemState) CheckOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return errs.New(errs.Closed, "filesystem is closed")
	}
	return nil
}

// Register adds resource to the registry under a freshly allocated key and
// returns that key, for later Unregister on explicit close. Register fails
// with Closed if the filesystem is already closed, so callers should
// register a resource before (or atomically with) handing it out.
func (s *FileSystemState) Register(resource io.Closer) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return uuid.UUID{}, errs.New(errs.Closed, "filesystem is closed")
	}
	key := uuid.New()
	s.resources[key] = resource
	return key, nil
}

// Unregister removes a resource from the registry, called when a resource
// closes itself explicitly rather than through the filesystem's Close.
// Unregistering an unknown or already-removed key is a no-op.
func (s *FileSystemState) Unregister(key uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.resources, key)
}

// Close marks the filesystem closed and closes every still-registered
// resource on independent goroutines via errgroup, best-effort: every
// resource is closed even if others fail. The first failure encountered
// becomes the returned error; every other failure (including one from
// onClose) is logged and attached to it as a suppressed error, mirroring
// the teacher's close-cascade idiom (pkg/stream.NewMultiCloser,
// connectivity.ioConnection.Close) of "close everything, surface the
// first error." Close is idempotent: a second call returns nil.
func (s *FileSystemState) Close() error {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return nil
	}
	s.open = false
	resources := s.resources
	s.resources = make(map[uuid.UUID]io.Closer)
	onClose := s.onClose
	s.mu.Unlock()

	var mu sync.Mutex
	var primary error
	var suppressed []error
	record := func(err error) {
		if err == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if primary == nil {
			primary = err
		} else {
			suppressed = append(suppressed, err)
			s.logger.Warn(err)
		}
	}

	var group errgroup.Group
	for _, resource := range resources {
		resource := resource
		group.Go(func() error {
			record(resource.Close())
			return nil
		})
	}
	group.Wait()

	if onClose != nil {
		record(onClose())
	}

	if primary == nil {
		return nil
	}
	if memfsErr, ok := primary.(*errs.Error); ok {
		return memfsErr.WithSuppressed(suppressed...)
	}
	wrapped := errs.Wrap(errs.Io, primary, "error during filesystem close")
	return wrapped.WithSuppressed(suppressed...)
}

// IsOpen reports whether the filesystem is still open.
func (s *FileSystemState) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}
