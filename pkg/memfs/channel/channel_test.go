package channel

import (
	"context"
	"testing"

	"github.com/mutagen-io/memfs/pkg/memfs/heapdisk"
	"github.com/mutagen-io/memfs/pkg/memfs/tree"
)

func newTestFile(t *testing.T) *tree.File {
	t.Helper()
	disk, err := heapdisk.New(1024, 1<<20, heapdisk.Unbounded)
	if err != nil {
		t.Fatalf("unable to create disk: %v", err)
	}
	return tree.NewRegularFile(1, disk)
}

// TestWriteThenReadRoundTrips ensures a write at the current position is
// visible to a subsequent read at the same logical offset.
func TestWriteThenReadRoundTrips(t *testing.T) {
	ch, err := New(newTestFile(t), OpenOptions{Read: true, Write: true})
	if err != nil {
		t.Fatalf("unable to open channel: %v", err)
	}
	defer ch.Close()

	ctx := context.Background()
	if _, err := ch.Write(ctx, []byte("hello")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := ch.Seek(0); err != nil {
		t.Fatalf("seek failed: %v", err)
	}

	buf := make([]byte, 5)
	n, err := ch.Read(ctx, buf)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if n != 5 || string(buf) != "hello" {
		t.Fatalf("unexpected read result: %d %q", n, buf)
	}
}

// TestAppendForcesPositionToSize ensures APPEND-mode writes always land at
// the file's current end, regardless of the channel's tracked position.
func TestAppendForcesPositionToSize(t *testing.T) {
	ch, err := New(newTestFile(t), OpenOptions{Write: true, Append: true})
	if err != nil {
		t.Fatalf("unable to open channel: %v", err)
	}
	defer ch.Close()

	ctx := context.Background()
	if _, err := ch.Write(ctx, []byte("abc")); err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	if err := ch.Seek(0); err != nil {
		t.Fatalf("seek failed: %v", err)
	}
	if _, err := ch.Write(ctx, []byte("def")); err != nil {
		t.Fatalf("second write failed: %v", err)
	}

	size, err := ch.Size()
	if err != nil {
		t.Fatalf("size failed: %v", err)
	}
	if size != 6 {
		t.Fatalf("expected size 6 after two appends, got %d", size)
	}
}

// TestWriteAtRejectedForAppendChannel ensures an explicit-position write is
// rejected on a channel opened with APPEND.
func TestWriteAtRejectedForAppendChannel(t *testing.T) {
	ch, err := New(newTestFile(t), OpenOptions{Write: true, Append: true})
	if err != nil {
		t.Fatalf("unable to open channel: %v", err)
	}
	defer ch.Close()

	if _, err := ch.WriteAt(context.Background(), []byte("x"), 0); err == nil {
		t.Fatal("expected an error")
	}
}

// TestReadPastEndOfFileReturnsNegativeOne ensures reading at or past the
// file's size returns (-1, nil) rather than an error.
func TestReadPastEndOfFileReturnsNegativeOne(t *testing.T) {
	ch, err := New(newTestFile(t), OpenOptions{Read: true})
	if err != nil {
		t.Fatalf("unable to open channel: %v", err)
	}
	defer ch.Close()

	n, err := ch.Read(context.Background(), make([]byte, 4))
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if n != -1 {
		t.Fatalf("expected -1 at end of file, got %d", n)
	}
}

// TestOperationOnClosedChannelFails ensures every operation fails once the
// channel has been closed.
func TestOperationOnClosedChannelFails(t *testing.T) {
	ch, err := New(newTestFile(t), OpenOptions{Read: true, Write: true})
	if err != nil {
		t.Fatalf("unable to open channel: %v", err)
	}
	if err := ch.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	if _, err := ch.Read(context.Background(), make([]byte, 1)); err == nil {
		t.Fatal("expected read on closed channel to fail")
	}
	if _, err := ch.Write(context.Background(), []byte("x")); err == nil {
		t.Fatal("expected write on closed channel to fail")
	}
}

// TestOverlappingByteRangeLocksConflict ensures TryLock refuses an
// overlapping exclusive range while a lock is already held.
func TestOverlappingByteRangeLocksConflict(t *testing.T) {
	ch, err := New(newTestFile(t), OpenOptions{Read: true, Write: true})
	if err != nil {
		t.Fatalf("unable to open channel: %v", err)
	}
	defer ch.Close()

	first, err := ch.TryLock(0, 10, false)
	if err != nil {
		t.Fatalf("first lock failed: %v", err)
	}
	if first == nil {
		t.Fatal("expected first lock to succeed")
	}

	second, err := ch.TryLock(5, 10, false)
	if err != nil {
		t.Fatalf("second lock attempt errored: %v", err)
	}
	if second != nil {
		t.Fatal("expected overlapping lock to be refused")
	}

	if err := first.Release(); err != nil {
		t.Fatalf("release failed: %v", err)
	}

	third, err := ch.TryLock(5, 10, false)
	if err != nil {
		t.Fatalf("third lock attempt errored: %v", err)
	}
	if third == nil {
		t.Fatal("expected lock to succeed after release")
	}
}

// TestSharedLocksDoNotConflict ensures two shared locks over the same
// range can coexist.
func TestSharedLocksDoNotConflict(t *testing.T) {
	ch, err := New(newTestFile(t), OpenOptions{Read: true})
	if err != nil {
		t.Fatalf("unable to open channel: %v", err)
	}
	defer ch.Close()

	first, err := ch.TryLock(0, 10, true)
	if err != nil || first == nil {
		t.Fatalf("expected first shared lock to succeed, got %v %v", first, err)
	}
	second, err := ch.TryLock(0, 10, true)
	if err != nil || second == nil {
		t.Fatalf("expected second shared lock to succeed, got %v %v", second, err)
	}
}

// TestCloseUnblocksWaitingWriter ensures closing a channel wakes a writer
// blocked waiting on the fair lock with AsynchronousClose.
func TestCloseUnblocksWaitingWriter(t *testing.T) {
	ch, err := New(newTestFile(t), OpenOptions{Read: true, Write: true})
	if err != nil {
		t.Fatalf("unable to open channel: %v", err)
	}

	if err := ch.lock.RLock(context.Background()); err != nil {
		t.Fatalf("unable to take read lock: %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		_, writeErr := ch.Write(context.Background(), []byte("x"))
		errCh <- writeErr
	}()

	if err := ch.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	if err := <-errCh; err == nil {
		t.Fatal("expected the blocked write to fail once the channel closed")
	}
}
