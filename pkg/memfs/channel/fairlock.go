package channel

import (
	"context"
	"sync"

	"github.com/mutagen-io/memfs/pkg/memfs/errs"
)

// waiter is a single queued lock request. ready is closed by the lock once
// the request has been granted; a waiter that is cancelled (by context
// cancellation or by the lock closing) before that happens removes itself
// from the queue instead of waiting for a grant that will never come.
type waiter struct {
	isWrite bool
	ready   chan struct{}
	granted bool
}

// fairRWLock is a FIFO-fair read/write lock: requests are granted strictly
// in arrival order, so a writer enqueued behind a run of readers waits for
// all of them (rather than being starved indefinitely by a steady stream of
// new readers), and a reader enqueued behind a writer waits for it. This
// mirrors the "read-preferring fair" lock spec.md describes for FileChannel
// operations: readers that arrive while no writer is queued proceed
// immediately and concurrently, but once a writer is queued, fairness
// (queue order) takes over.
//
// Unlike sync.RWMutex, acquisition can be cancelled: via a caller-supplied
// context (substituting for the Java original's thread-interrupt
// semantics) or via the lock's own Close, which cancels every queued and
// future waiter with a single signal (substituting for an asynchronous
// close cascading to every blocked operation on a channel).
type fairRWLock struct {
	mu            sync.Mutex
	activeReaders int
	activeWriter  bool
	queue         []*waiter

	closed chan struct{}
}

// newFairRWLock creates an unlocked fairRWLock.
func newFairRWLock() *fairRWLock {
	return &fairRWLock{closed: make(chan struct{})}
}

// RLock acquires the lock for reading, blocking until granted, until ctx is
// done, or until the lock is closed.
func (l *fairRWLock) RLock(ctx context.Context) error {
	return l.acquire(ctx, false)
}

// Lock acquires the lock for writing, blocking until granted, until ctx is
// done, or until the lock is closed.
func (l *fairRWLock) Lock(ctx context.Context) error {
	return l.acquire(ctx, true)
}

func (l *fairRWLock) acquire(ctx context.Context, isWrite bool) error {
	l.mu.Lock()

	select {
	case <-l.closed:
		l.mu.Unlock()
		return errs.New(errs.Closed, "channel is closed")
	default:
	}

	// A request may proceed immediately only if the queue is empty (no one
	// is waiting ahead of it) and it is compatible with the current
	// holders: a reader may join other readers, but a writer needs
	// exclusive access.
	if len(l.queue) == 0 {
		if isWrite {
			if !l.activeWriter && l.activeReaders == 0 {
				l.activeWriter = true
				l.mu.Unlock()
				return nil
			}
		} else if !l.activeWriter {
			l.activeReaders++
			l.mu.Unlock()
			return nil
		}
	}

	w := &waiter{isWrite: isWrite, ready: make(chan struct{})}
	l.queue = append(l.queue, w)
	l.mu.Unlock()

	select {
	case <-w.ready:
		return nil
	case <-ctx.Done():
		l.cancelWaiter(w)
		return errs.Wrap(errs.Interrupted, ctx.Err(), "lock acquisition cancelled")
	case <-l.closed:
		l.cancelWaiter(w)
		return errs.New(errs.AsynchronousClose, "channel closed while waiting for lock")
	}
}

// cancelWaiter removes w from the queue if it has not yet been granted; if
// it has already been granted (a race between the grant and the
// cancellation signal), its grant is honored by immediately releasing it
// again so bookkeeping (activeReaders/activeWriter) stays correct.
func (l *fairRWLock) cancelWaiter(w *waiter) {
	l.mu.Lock()
	for i, q := range l.queue {
		if q == w {
			l.queue = append(l.queue[:i], l.queue[i+1:]...)
			l.mu.Unlock()
			return
		}
	}
	alreadyGranted := w.granted
	l.mu.Unlock()
	if alreadyGranted {
		if w.isWrite {
			l.Unlock()
		} else {
			l.RUnlock()
		}
	}
}

// RUnlock releases a read lock and grants queued waiters as appropriate.
func (l *fairRWLock) RUnlock() {
	l.mu.Lock()
	l.activeReaders--
	l.promote()
	l.mu.Unlock()
}

// Unlock releases a write lock and grants queued waiters as appropriate.
func (l *fairRWLock) Unlock() {
	l.mu.Lock()
	l.activeWriter = false
	l.promote()
	l.mu.Unlock()
}

// promote grants as many queued waiters as are compatible with the current
// state, in FIFO order: a leading run of readers is granted all at once;
// a leading writer is granted only when the lock is fully idle. Must be
// called with l.mu held.
func (l *fairRWLock) promote() {
	for len(l.queue) > 0 {
		front := l.queue[0]
		if front.isWrite {
			if l.activeWriter || l.activeReaders > 0 {
				return
			}
			l.activeWriter = true
			front.granted = true
			l.queue = l.queue[1:]
			close(front.ready)
			return
		}
		if l.activeWriter {
			return
		}
		l.activeReaders++
		front.granted = true
		l.queue = l.queue[1:]
		close(front.ready)
	}
}

// CloseLock cancels every current and future waiter, causing blocked
// Lock/RLock calls to return an AsynchronousClose error. It does not wait
// for active holders to release; callers close the lock only after they
// have otherwise ensured no further operations will be issued.
func (l *fairRWLock) CloseLock() {
	l.mu.Lock()
	select {
	case <-l.closed:
	default:
		close(l.closed)
	}
	l.mu.Unlock()
}
