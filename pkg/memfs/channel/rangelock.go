package channel

import (
	"context"
	"sync"

	"github.com/mutagen-io/memfs/pkg/memfs/errs"
)

// FileLock represents a held advisory byte-range lock on a FileChannel, per
// spec.md §4.4's byte-range locking contract: advisory and per-channel.
// Overlap with the locks already held is checked when the lock is
// acquired; Release does no overlap check.
type FileLock struct {
	table    *lockTable
	position int64
	size     int64
	shared   bool
	released bool
}

// overlaps reports whether the two ranges intersect. A size of -1 means
// "to the end of the file", matching the Java original's convention for
// whole-remaining-file locks.
func overlaps(aPos, aSize, bPos, bSize int64) bool {
	aEnd := int64(1<<63 - 1)
	if aSize >= 0 {
		aEnd = aPos + aSize
	}
	bEnd := int64(1<<63 - 1)
	if bSize >= 0 {
		bEnd = bPos + bSize
	}
	return aPos < bEnd && bPos < aEnd
}

// Release releases the lock. Releasing an already-released lock is a
// no-op.
func (l *FileLock) Release() error {
	l.table.mu.Lock()
	defer l.table.mu.Unlock()

	if l.released {
		return nil
	}
	for i, held := range l.table.locks {
		if held == l {
			l.table.locks = append(l.table.locks[:i], l.table.locks[i+1:]...)
			break
		}
	}
	l.released = true
	l.table.broadcastLocked()
	return nil
}

// lockTable tracks the set of currently held advisory locks for a single
// FileChannel, plus waiters blocked in Lock awaiting a conflicting range's
// release.
type lockTable struct {
	mu      sync.Mutex
	locks   []*FileLock
	waiters []chan struct{}
	closed  chan struct{}
}

func newLockTable() *lockTable {
	return &lockTable{closed: make(chan struct{})}
}

// broadcastLocked wakes every current waiter; must be called with mu held.
func (t *lockTable) broadcastLocked() {
	for _, w := range t.waiters {
		close(w)
	}
	t.waiters = nil
}

// conflictsLocked reports whether [position, position+size) overlaps any
// currently held lock, excluding shared/shared compatibility (two shared
// locks never conflict). Must be called with mu held.
func (t *lockTable) conflictsLocked(position, size int64, shared bool) bool {
	for _, held := range t.locks {
		if shared && held.shared {
			continue
		}
		if overlaps(position, size, held.position, held.size) {
			return true
		}
	}
	return false
}

// TryLock attempts to acquire a byte-range lock without blocking, returning
// nil (no error, nil lock) if the range conflicts with an existing lock.
func (t *lockTable) TryLock(position, size int64, shared bool) (*FileLock, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	select {
	case <-t.closed:
		return nil, errs.New(errs.Closed, "channel is closed")
	default:
	}

	if t.conflictsLocked(position, size, shared) {
		return nil, nil
	}
	lock := &FileLock{table: t, position: position, size: size, shared: shared}
	t.locks = append(t.locks, lock)
	return lock, nil
}

// Lock blocks until the range can be locked, the context is cancelled, or
// the channel closes.
func (t *lockTable) Lock(ctx context.Context, position, size int64, shared bool) (*FileLock, error) {
	for {
		t.mu.Lock()
		select {
		case <-t.closed:
			t.mu.Unlock()
			return nil, errs.New(errs.Closed, "channel is closed")
		default:
		}
		if !t.conflictsLocked(position, size, shared) {
			lock := &FileLock{table: t, position: position, size: size, shared: shared}
			t.locks = append(t.locks, lock)
			t.mu.Unlock()
			return lock, nil
		}
		wake := make(chan struct{})
		t.waiters = append(t.waiters, wake)
		t.mu.Unlock()

		select {
		case <-wake:
			continue
		case <-ctx.Done():
			return nil, errs.Wrap(errs.Interrupted, ctx.Err(), "lock acquisition cancelled")
		case <-t.closed:
			return nil, errs.New(errs.AsynchronousClose, "channel closed while waiting for lock")
		}
	}
}

// CloseTable cancels every waiter and prevents further locks from being
// acquired.
func (t *lockTable) CloseTable() {
	t.mu.Lock()
	defer t.mu.Unlock()
	select {
	case <-t.closed:
	default:
		close(t.closed)
	}
	t.broadcastLocked()
}
