// Package channel implements FileChannel, the read/write/seek handle onto
// a RegularFile described in spec.md §4.4: option-gated operations, a
// read-preferring fair lock shared with an asynchronous close, APPEND
// position forcing, and advisory byte-range locks.
package channel

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"github.com/mutagen-io/memfs/pkg/memfs/errs"
	"github.com/mutagen-io/memfs/pkg/memfs/heapdisk"
	"github.com/mutagen-io/memfs/pkg/memfs/tree"
)

// OpenOptions selects which operations a FileChannel permits.
type OpenOptions struct {
	Read   bool
	Write  bool
	Append bool
}

// Validate rejects nonsensical combinations: a channel must allow at least
// one of read or write, and APPEND implies WRITE.
func (o OpenOptions) Validate() error {
	if !o.Read && !o.Write && !o.Append {
		return errs.New(errs.InvalidArgument, "channel must be opened for read, write, or append")
	}
	if o.Append && !o.Write {
		return errs.New(errs.InvalidArgument, "append mode requires write access")
	}
	return nil
}

// FileChannel is a single open handle onto a tree.File's regular-file
// content. It is not safe to share a single FileChannel between goroutines
// that also close it concurrently except through the documented
// asynchronous-close cancellation path.
type FileChannel struct {
	file    *tree.File
	content *heapdisk.RegularFile
	opts    OpenOptions

	posMu    sync.Mutex
	position int64

	lock  *fairRWLock
	table *lockTable

	closed atomic.Bool
}

// New opens a FileChannel onto file, which must be a regular file.
func New(file *tree.File, opts OpenOptions) (*FileChannel, error) {
	if !file.IsRegularFile() {
		return nil, errs.New(errs.InvalidArgument, "channel target is not a regular file")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	file.Opened()
	return &FileChannel{
		file:    file,
		content: file.RegularFile(),
		opts:    opts,
		lock:    newFairRWLock(),
		table:   newLockTable(),
	}, nil
}

// checkOpen fails with Closed if the channel has already been closed.
func (c *FileChannel) checkOpen() error {
	if c.closed.Load() {
		return errs.New(errs.Closed, "channel is closed")
	}
	return nil
}

// checkContext fails with Interrupted if ctx is already done, substituting
// for the Java original's "fail fast if the current thread entered this
// call already interrupted" check.
func (c *FileChannel) checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return errs.Wrap(errs.Interrupted, ctx.Err(), "context already cancelled")
	default:
		return nil
	}
}

// Size returns the channel's underlying file size.
func (c *FileChannel) Size() (int64, error) {
	if err := c.checkOpen(); err != nil {
		return 0, err
	}
	return c.content.Size(), nil
}

// Position returns the channel's current position.
func (c *FileChannel) Position() int64 {
	c.posMu.Lock()
	defer c.posMu.Unlock()
	return c.position
}

// Seek sets the channel's current position.
func (c *FileChannel) Seek(position int64) error {
	if position < 0 {
		return errs.New(errs.InvalidArgument, "negative position")
	}
	if err := c.checkOpen(); err != nil {
		return err
	}
	c.posMu.Lock()
	c.position = position
	c.posMu.Unlock()
	return nil
}

// Read reads into dst at the channel's current position, advancing it by
// the number of bytes read. It returns (-1, nil) at end of file, matching
// RegularFile.Read's convention.
func (c *FileChannel) Read(ctx context.Context, dst []byte) (int, error) {
	if !c.opts.Read {
		return 0, errs.New(errs.AccessDenied, "channel is not open for reading")
	}
	if err := c.checkOpen(); err != nil {
		return 0, err
	}
	if err := c.checkContext(ctx); err != nil {
		c.Close()
		return 0, err
	}
	if err := c.lock.RLock(ctx); err != nil {
		return 0, err
	}
	defer c.lock.RUnlock()

	c.posMu.Lock()
	pos := c.position
	n, err := c.content.Read(pos, dst, 0, len(dst))
	if err == nil && n > 0 {
		c.position = pos + int64(n)
	}
	c.posMu.Unlock()

	return n, err
}

// ReadAt reads into dst at an explicit position, without touching the
// channel's position.
func (c *FileChannel) ReadAt(ctx context.Context, dst []byte, pos int64) (int, error) {
	if !c.opts.Read {
		return 0, errs.New(errs.AccessDenied, "channel is not open for reading")
	}
	if err := c.checkOpen(); err != nil {
		return 0, err
	}
	if err := c.lock.RLock(ctx); err != nil {
		return 0, err
	}
	defer c.lock.RUnlock()
	return c.content.Read(pos, dst, 0, len(dst))
}

// Write writes src at the channel's current position (or, in APPEND mode,
// at the file's current end regardless of the channel's position),
// advancing the position by the number of bytes written.
func (c *FileChannel) Write(ctx context.Context, src []byte) (int, error) {
	if !c.opts.Write {
		return 0, errs.New(errs.AccessDenied, "channel is not open for writing")
	}
	if err := c.checkOpen(); err != nil {
		return 0, err
	}
	if err := c.checkContext(ctx); err != nil {
		c.Close()
		return 0, err
	}
	if err := c.lock.Lock(ctx); err != nil {
		return 0, err
	}
	defer c.lock.Unlock()

	c.posMu.Lock()
	pos := c.position
	if c.opts.Append {
		pos = c.content.Size()
	}
	n, err := c.content.Write(pos, src, 0, len(src))
	if err == nil {
		c.position = pos + int64(n)
	}
	c.posMu.Unlock()

	return n, err
}

// WriteAt writes src at an explicit position. It is undefined (and
// rejected) for a channel opened in APPEND mode, per spec.md §4.4.
func (c *FileChannel) WriteAt(ctx context.Context, src []byte, pos int64) (int, error) {
	if c.opts.Append {
		return 0, errs.New(errs.InvalidArgument, "write at an explicit position is undefined for an append channel")
	}
	if !c.opts.Write {
		return 0, errs.New(errs.AccessDenied, "channel is not open for writing")
	}
	if err := c.checkOpen(); err != nil {
		return 0, err
	}
	if err := c.lock.Lock(ctx); err != nil {
		return 0, err
	}
	defer c.lock.Unlock()
	return c.content.Write(pos, src, 0, len(src))
}

// Truncate sets the file's size. n < 0 fails; if n < the current size, the
// file shrinks and frees blocks; the channel's position is then clamped to
// min(position, n).
func (c *FileChannel) Truncate(ctx context.Context, n int64) error {
	if !c.opts.Write {
		return errs.New(errs.AccessDenied, "channel is not open for writing")
	}
	if n < 0 {
		return errs.New(errs.InvalidArgument, "negative size")
	}
	if err := c.checkOpen(); err != nil {
		return err
	}
	if err := c.lock.Lock(ctx); err != nil {
		return err
	}
	defer c.lock.Unlock()

	if err := c.content.Truncate(n); err != nil {
		return err
	}

	c.posMu.Lock()
	if c.position > n {
		c.position = n
	}
	c.posMu.Unlock()
	return nil
}

// TransferTo copies count bytes starting at pos to sink without altering
// the channel's position.
func (c *FileChannel) TransferTo(ctx context.Context, pos, count int64, sink io.Writer) (int64, error) {
	if !c.opts.Read {
		return 0, errs.New(errs.AccessDenied, "channel is not open for reading")
	}
	if err := c.checkOpen(); err != nil {
		return 0, err
	}
	if err := c.lock.RLock(ctx); err != nil {
		return 0, err
	}
	defer c.lock.RUnlock()
	return c.content.TransferTo(pos, count, sink)
}

// TransferFrom copies up to count bytes from src to position pos without
// altering the channel's position.
func (c *FileChannel) TransferFrom(ctx context.Context, src io.Reader, pos, count int64) (int64, error) {
	if !c.opts.Write {
		return 0, errs.New(errs.AccessDenied, "channel is not open for writing")
	}
	if err := c.checkOpen(); err != nil {
		return 0, err
	}
	if err := c.lock.Lock(ctx); err != nil {
		return 0, err
	}
	defer c.lock.Unlock()
	return c.content.TransferFrom(src, pos, count)
}

// TryLock attempts to acquire a non-blocking advisory byte-range lock,
// returning (nil, nil) if the range conflicts with an already-held lock.
func (c *FileChannel) TryLock(position, size int64, shared bool) (*FileLock, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	return c.table.TryLock(position, size, shared)
}

// Lock acquires an advisory byte-range lock, blocking until it is
// available, ctx is done, or the channel closes.
func (c *FileChannel) Lock(ctx context.Context, position, size int64, shared bool) (*FileLock, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	return c.table.Lock(ctx, position, size, shared)
}

// Close closes the channel. Any operation blocked on the channel's fair
// lock or its byte-range lock table at the time of closure is unblocked
// with an AsynchronousClose error. Closing an already-closed channel is a
// no-op.
func (c *FileChannel) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.lock.CloseLock()
	c.table.CloseTable()
	c.file.Closed()
	return nil
}

// Closed reports whether the channel has been closed.
func (c *FileChannel) Closed() bool {
	return c.closed.Load()
}
