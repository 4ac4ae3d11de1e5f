package watch

import (
	"context"
	"testing"
	"time"

	"github.com/mutagen-io/memfs/pkg/memfs/errs"
	"github.com/mutagen-io/memfs/pkg/memfs/pathtype"
	"github.com/mutagen-io/memfs/pkg/memfs/tree"
)

// longInterval keeps the background loop from firing during tests that
// drive polling manually via key.poll(), so assertions aren't racing a
// real timer.
const longInterval = time.Hour

func newTestTree() *tree.FileTree {
	return tree.NewFileTree()
}

// TestRegisterNilFails ensures a nil file (the caller's lookup failed to
// resolve anything) is reported as NotFound.
func TestRegisterNilFails(t *testing.T) {
	s := New(longInterval, nil)
	defer s.Close()

	_, err := s.Register(nil, Create)
	if !errs.Is(err, errs.NotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

// TestRegisterNonDirectoryFails ensures a regular file target is rejected.
func TestRegisterNonDirectoryFails(t *testing.T) {
	s := New(longInterval, nil)
	defer s.Close()

	file := tree.NewRegularFile(1, nil)
	_, err := s.Register(file, Create)
	if !errs.Is(err, errs.NotDirectory) {
		t.Fatalf("expected NotDirectory, got %v", err)
	}
}

// TestCreateDeleteModifyEventsDetected exercises the full diff cycle:
// linking a name produces CREATE, touching its mtime produces MODIFY, and
// unlinking it produces DELETE.
func TestCreateDeleteModifyEventsDetected(t *testing.T) {
	ft := newTestTree()
	dir := ft.NewDirectory()

	s := New(longInterval, nil)
	defer s.Close()

	key, err := s.Register(dir, Create, Delete, Modify)
	if err != nil {
		t.Fatalf("unable to register: %v", err)
	}

	child := tree.NewRegularFile(ft.NewID(), nil)
	if err := dir.Directory().Link(pathtype.NewName("a"), child); err != nil {
		t.Fatalf("unable to link: %v", err)
	}

	key.poll()
	events := key.PollEvents()
	if len(events) != 1 || events[0].Kind != Create || events[0].Name != "a" {
		t.Fatalf("expected a single CREATE event for %q, got %v", "a", events)
	}

	later := time.Now().Add(time.Hour)
	child.SetTimes(nil, nil, &later)

	key.poll()
	events = key.PollEvents()
	if len(events) != 1 || events[0].Kind != Modify || events[0].Name != "a" {
		t.Fatalf("expected a single MODIFY event, got %v", events)
	}

	if _, err := dir.Directory().Unlink(pathtype.NewName("a")); err != nil {
		t.Fatalf("unable to unlink: %v", err)
	}

	key.poll()
	events = key.PollEvents()
	if len(events) != 1 || events[0].Kind != Delete || events[0].Name != "a" {
		t.Fatalf("expected a single DELETE event, got %v", events)
	}
}

// TestEventsFilteredByRequestedKinds ensures a key registered for only
// CREATE never reports a MODIFY it didn't ask for.
func TestEventsFilteredByRequestedKinds(t *testing.T) {
	ft := newTestTree()
	dir := ft.NewDirectory()
	child := tree.NewRegularFile(ft.NewID(), nil)
	if err := dir.Directory().Link(pathtype.NewName("a"), child); err != nil {
		t.Fatalf("unable to link: %v", err)
	}

	s := New(longInterval, nil)
	defer s.Close()

	key, err := s.Register(dir, Create)
	if err != nil {
		t.Fatalf("unable to register: %v", err)
	}

	// The initial snapshot is taken at registration time, so "a" (linked
	// before Register) produces no CREATE. Confirm a pure MODIFY is
	// filtered out entirely since only Create was requested.
	later := time.Now().Add(time.Hour)
	child.SetTimes(nil, nil, &later)

	key.poll()
	if events := key.PollEvents(); len(events) != 0 {
		t.Fatalf("expected no events since MODIFY was not requested, got %v", events)
	}
}

// TestTakeBlocksUntilReady ensures Take returns the key once its events
// transition from empty to non-empty, and blocks until then.
func TestTakeBlocksUntilReady(t *testing.T) {
	ft := newTestTree()
	dir := ft.NewDirectory()

	s := New(longInterval, nil)
	defer s.Close()

	key, err := s.Register(dir, Create)
	if err != nil {
		t.Fatalf("unable to register: %v", err)
	}

	result := make(chan *Key, 1)
	errCh := make(chan error, 1)
	go func() {
		k, err := s.Take(context.Background())
		if err != nil {
			errCh <- err
			return
		}
		result <- k
	}()

	select {
	case <-result:
		t.Fatal("Take returned before any event was ready")
	case <-errCh:
		t.Fatal("Take errored before any event was ready")
	case <-time.After(50 * time.Millisecond):
	}

	child := tree.NewRegularFile(ft.NewID(), nil)
	if err := dir.Directory().Link(pathtype.NewName("a"), child); err != nil {
		t.Fatalf("unable to link: %v", err)
	}
	key.poll()

	select {
	case k := <-result:
		if k.ID() != key.ID() {
			t.Fatal("Take returned a different key")
		}
	case err := <-errCh:
		t.Fatalf("Take failed: %v", err)
	case <-time.After(time.Second):
		t.Fatal("Take did not unblock after an event became ready")
	}
}

// TestTakeRespectsContextCancellation ensures a cancelled context
// unblocks Take with Interrupted rather than hanging forever.
func TestTakeRespectsContextCancellation(t *testing.T) {
	s := New(longInterval, nil)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Take(ctx)
	if !errs.Is(err, errs.Interrupted) {
		t.Fatalf("expected Interrupted, got %v", err)
	}
}

// TestCloseUnblocksTake ensures closing the service wakes a goroutine
// blocked in Take with a Closed error.
func TestCloseUnblocksTake(t *testing.T) {
	s := New(longInterval, nil)

	errCh := make(chan error, 1)
	go func() {
		_, err := s.Take(context.Background())
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	s.Close()

	select {
	case err := <-errCh:
		if !errs.Is(err, errs.Closed) {
			t.Fatalf("expected Closed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Take did not unblock after Close")
	}
}

// TestResetReenqueuesPendingEvents ensures Reset re-arms a key that
// accumulated new events while its prior batch was being processed.
func TestResetReenqueuesPendingEvents(t *testing.T) {
	ft := newTestTree()
	dir := ft.NewDirectory()

	s := New(longInterval, nil)
	defer s.Close()

	key, err := s.Register(dir, Create)
	if err != nil {
		t.Fatalf("unable to register: %v", err)
	}

	child := tree.NewRegularFile(ft.NewID(), nil)
	if err := dir.Directory().Link(pathtype.NewName("a"), child); err != nil {
		t.Fatalf("unable to link: %v", err)
	}
	key.poll()

	taken, err := s.Take(context.Background())
	if err != nil {
		t.Fatalf("unable to take: %v", err)
	}
	taken.PollEvents()

	other := tree.NewRegularFile(ft.NewID(), nil)
	if err := dir.Directory().Link(pathtype.NewName("b"), other); err != nil {
		t.Fatalf("unable to link: %v", err)
	}
	key.poll()

	if !taken.Reset() {
		t.Fatal("expected Reset to succeed on a still-valid key")
	}

	taken2, err := s.Take(context.Background())
	if err != nil {
		t.Fatalf("unable to take after reset: %v", err)
	}
	events := taken2.PollEvents()
	if len(events) != 1 || events[0].Name != "b" {
		t.Fatalf("expected the second batch's CREATE for b, got %v", events)
	}
}

// TestCancelInvalidatesKey ensures a cancelled key reports invalid and
// Reset on it is a no-op.
func TestCancelInvalidatesKey(t *testing.T) {
	ft := newTestTree()
	dir := ft.NewDirectory()

	s := New(longInterval, nil)
	defer s.Close()

	key, err := s.Register(dir, Create)
	if err != nil {
		t.Fatalf("unable to register: %v", err)
	}

	key.Cancel()
	if key.IsValid() {
		t.Fatal("expected key to be invalid after Cancel")
	}
	if key.Reset() {
		t.Fatal("expected Reset on a cancelled key to fail")
	}
}
