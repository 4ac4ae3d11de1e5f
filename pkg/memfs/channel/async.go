package channel

import (
	"context"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/mutagen-io/memfs/pkg/memfs/errs"
)

// CompletionFunc is an optional callback invoked when a dispatched
// operation finishes, alongside the Future it also completes, per
// spec.md §4.4's "future + optional completion-callback" contract.
type CompletionFunc func(n int64, err error)

// Future represents the result of an operation dispatched to an
// AsyncFileChannel's worker pool.
type Future struct {
	done chan struct{}
	n    int64
	err  error
}

// Wait blocks until the operation completes (or ctx is done) and returns
// its result.
func (f *Future) Wait(ctx context.Context) (int64, error) {
	select {
	case <-f.done:
		return f.n, f.err
	case <-ctx.Done():
		return 0, errs.Wrap(errs.Interrupted, ctx.Err(), "wait cancelled")
	}
}

func (f *Future) complete(n int64, err error) {
	f.n, f.err = n, err
	close(f.done)
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// AsyncFileChannel is a thin asynchronous wrapper over FileChannel: each
// call runs on its own goroutine, started through an errgroup.Group (no
// limit is set on how many run at once) so that Close can wait for all of
// them, and returns immediately with a Future; an optional completion
// callback is invoked with the same result once it is ready.
type AsyncFileChannel struct {
	channel *FileChannel
	group   *errgroup.Group
	ctx     context.Context
}

// NewAsync wraps an already-open FileChannel. ctx is the parent of the
// context passed to every dispatched operation. Cancelling it neither
// stops running operations nor rejects new ones; an operation observes the
// cancellation only through the channel's lock acquisition, which then
// fails with Interrupted.
func NewAsync(ctx context.Context, ch *FileChannel) *AsyncFileChannel {
	group, groupCtx := errgroup.WithContext(ctx)
	return &AsyncFileChannel{channel: ch, group: group, ctx: groupCtx}
}

// dispatch runs op on a new goroutine of the group, completing future and
// invoking callback (if non-nil) with its result. The goroutine always
// returns nil to the errgroup.Group, so a failed operation never cancels
// the group's context for the others; op's error reaches the caller only
// through future and callback.
func (a *AsyncFileChannel) dispatch(future *Future, callback CompletionFunc, op func() (int64, error)) {
	a.group.Go(func() error {
		n, err := op()
		future.complete(n, err)
		if callback != nil {
			callback(n, err)
		}
		return nil
	})
}

// ReadAt dispatches a read at the given position.
func (a *AsyncFileChannel) ReadAt(dst []byte, pos int64, callback CompletionFunc) *Future {
	future := newFuture()
	a.dispatch(future, callback, func() (int64, error) {
		n, err := a.channel.ReadAt(a.ctx, dst, pos)
		return int64(n), err
	})
	return future
}

// WriteAt dispatches a write at the given position.
func (a *AsyncFileChannel) WriteAt(src []byte, pos int64, callback CompletionFunc) *Future {
	future := newFuture()
	a.dispatch(future, callback, func() (int64, error) {
		n, err := a.channel.WriteAt(a.ctx, src, pos)
		return int64(n), err
	})
	return future
}

// TransferTo dispatches a transfer from the channel's content to sink.
func (a *AsyncFileChannel) TransferTo(pos, count int64, sink io.Writer, callback CompletionFunc) *Future {
	future := newFuture()
	a.dispatch(future, callback, func() (int64, error) {
		return a.channel.TransferTo(a.ctx, pos, count, sink)
	})
	return future
}

// Close closes the underlying FileChannel and waits for all dispatched
// operations to finish. An operation blocked on the channel's lock at that
// moment fails with AsynchronousClose, one that starts afterwards fails
// because the channel is closed, and one already past its lock runs to
// completion.
func (a *AsyncFileChannel) Close() error {
	closeErr := a.channel.Close()
	_ = a.group.Wait()
	return closeErr
}
