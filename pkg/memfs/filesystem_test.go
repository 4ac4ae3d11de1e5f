package memfs

import (
	"context"
	"testing"

	"github.com/mutagen-io/memfs/pkg/memfs/channel"
	"github.com/mutagen-io/memfs/pkg/memfs/errs"
	"github.com/mutagen-io/memfs/pkg/memfs/watch"
)

// TestUnixCreateAndReadRoundTrips exercises spec.md §8 scenario 1: writing
// a file and reading it back returns the same bytes.
func TestUnixCreateAndReadRoundTrips(t *testing.T) {
	cfg, err := Unix()
	if err != nil {
		t.Fatalf("unable to build configuration: %v", err)
	}
	fs, err := New(cfg)
	if err != nil {
		t.Fatalf("unable to build filesystem: %v", err)
	}
	defer fs.Close()

	ctx := context.Background()
	if err := fs.WriteFile(ctx, "/foo.txt", []byte("helloworld")); err != nil {
		t.Fatalf("unable to write file: %v", err)
	}

	data, err := fs.ReadFile(ctx, "/foo.txt")
	if err != nil {
		t.Fatalf("unable to read file: %v", err)
	}
	if string(data) != "helloworld" {
		t.Fatalf("expected %q, got %q", "helloworld", string(data))
	}
}

// TestOSXCaseInsensitiveCreateConflicts exercises spec.md §8 scenario 2:
// creating "/FOO" after "/foo" fails with AlreadyExists under the
// case-insensitive OS X flavor.
func TestOSXCaseInsensitiveCreateConflicts(t *testing.T) {
	cfg, err := OSX()
	if err != nil {
		t.Fatalf("unable to build configuration: %v", err)
	}
	fs, err := New(cfg)
	if err != nil {
		t.Fatalf("unable to build filesystem: %v", err)
	}
	defer fs.Close()

	if err := fs.CreateFile("/foo"); err != nil {
		t.Fatalf("unable to create /foo: %v", err)
	}
	if err := fs.CreateFile("/FOO"); !errs.Is(err, errs.AlreadyExists) {
		t.Fatalf("expected AlreadyExists creating /FOO, got %v", err)
	}
}

// TestSymbolicLinkLoopFails exercises spec.md §8 scenario 3: a two-hop
// symbolic link cycle fails traversal with a Loop error.
func TestSymbolicLinkLoopFails(t *testing.T) {
	cfg, err := Unix()
	if err != nil {
		t.Fatalf("unable to build configuration: %v", err)
	}
	fs, err := New(cfg)
	if err != nil {
		t.Fatalf("unable to build filesystem: %v", err)
	}
	defer fs.Close()

	if err := fs.CreateDirectory("/a"); err != nil {
		t.Fatalf("unable to create /a: %v", err)
	}
	if err := fs.CreateSymbolicLink("/a/b", "baz"); err != nil {
		t.Fatalf("unable to create /a/b: %v", err)
	}
	if err := fs.CreateSymbolicLink("/a/baz", "b"); err != nil {
		t.Fatalf("unable to create /a/baz: %v", err)
	}

	if err := fs.CreateFile("/a/b/file"); !errs.Is(err, errs.Loop) {
		t.Fatalf("expected Loop, got %v", err)
	}
}

// TestMoveDirectoryIntoOwnSubtreeFails exercises spec.md §8's "moving a
// directory into a subtree of itself fails" boundary behavior.
func TestMoveDirectoryIntoOwnSubtreeFails(t *testing.T) {
	cfg, err := Unix()
	if err != nil {
		t.Fatalf("unable to build configuration: %v", err)
	}
	fs, err := New(cfg)
	if err != nil {
		t.Fatalf("unable to build filesystem: %v", err)
	}
	defer fs.Close()

	if err := fs.CreateDirectory("/a"); err != nil {
		t.Fatalf("unable to create /a: %v", err)
	}
	if err := fs.CreateDirectory("/a/b"); err != nil {
		t.Fatalf("unable to create /a/b: %v", err)
	}

	if err := fs.Move("/a", "/a/b/a"); err == nil {
		t.Fatal("expected moving /a into its own subtree to fail")
	}
}

// TestMoveRejectsOverwritingExistingDestination ensures Move never
// replaces an existing destination entry.
func TestMoveRejectsOverwritingExistingDestination(t *testing.T) {
	cfg, err := Unix()
	if err != nil {
		t.Fatalf("unable to build configuration: %v", err)
	}
	fs, err := New(cfg)
	if err != nil {
		t.Fatalf("unable to build filesystem: %v", err)
	}
	defer fs.Close()

	if err := fs.CreateFile("/a"); err != nil {
		t.Fatalf("unable to create /a: %v", err)
	}
	if err := fs.CreateFile("/b"); err != nil {
		t.Fatalf("unable to create /b: %v", err)
	}

	if err := fs.Move("/a", "/b"); !errs.Is(err, errs.AlreadyExists) {
		t.Fatalf("expected AlreadyExists, got %v", err)
	}
	if !fs.Exists("/a") {
		t.Fatal("expected source to remain after a failed move")
	}
}

// TestListOrdersByDisplayName ensures List returns entries sorted by
// display string, per spec.md §3.
func TestListOrdersByDisplayName(t *testing.T) {
	cfg, err := Unix()
	if err != nil {
		t.Fatalf("unable to build configuration: %v", err)
	}
	fs, err := New(cfg)
	if err != nil {
		t.Fatalf("unable to build filesystem: %v", err)
	}
	defer fs.Close()

	for _, name := range []string{"/banana", "/apple", "/cherry"} {
		if err := fs.CreateFile(name); err != nil {
			t.Fatalf("unable to create %s: %v", name, err)
		}
	}

	names, err := fs.List("/")
	if err != nil {
		t.Fatalf("unable to list: %v", err)
	}
	expected := []string{"apple", "banana", "cherry"}
	if len(names) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, names)
	}
	for i := range expected {
		if names[i] != expected[i] {
			t.Fatalf("expected %v, got %v", expected, names)
		}
	}
}

// TestAttributesRoundTripThroughBasicView ensures a set attribute can be
// read back through the basic view.
func TestAttributesRoundTripThroughBasicView(t *testing.T) {
	cfg, err := Unix()
	if err != nil {
		t.Fatalf("unable to build configuration: %v", err)
	}
	fs, err := New(cfg)
	if err != nil {
		t.Fatalf("unable to build filesystem: %v", err)
	}
	defer fs.Close()

	if err := fs.CreateFile("/foo"); err != nil {
		t.Fatalf("unable to create /foo: %v", err)
	}

	size, err := fs.GetAttribute("/foo", "basic:size")
	if err != nil {
		t.Fatalf("unable to get basic:size: %v", err)
	}
	if size.(int64) != 0 {
		t.Fatalf("expected a freshly created file to report size 0, got %v", size)
	}
}

// TestRegisterWatchReportsCreateEvents exercises spec.md §8 scenario 6: two
// file creations in a watched directory surface as two CREATE events in
// display-name order on the next Take.
func TestRegisterWatchReportsCreateEvents(t *testing.T) {
	cfg, err := Unix(WithWatchPollingInterval(0))
	if err != nil {
		t.Fatalf("unable to build configuration: %v", err)
	}
	fs, err := New(cfg)
	if err != nil {
		t.Fatalf("unable to build filesystem: %v", err)
	}
	defer fs.Close()

	key, err := fs.RegisterWatch("/", watch.Create, watch.Delete, watch.Modify)
	if err != nil {
		t.Fatalf("unable to register watch: %v", err)
	}

	if err := fs.CreateFile("/bar"); err != nil {
		t.Fatalf("unable to create /bar: %v", err)
	}
	if err := fs.CreateFile("/foo"); err != nil {
		t.Fatalf("unable to create /foo: %v", err)
	}

	ready, err := fs.Take(context.Background())
	if err != nil {
		t.Fatalf("unable to take ready key: %v", err)
	}
	if ready != key {
		t.Fatal("expected the registered key to become ready")
	}

	events := key.PollEvents()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d: %v", len(events), events)
	}
	if events[0].Name != "bar" || events[0].Kind != watch.Create {
		t.Fatalf("expected first event to be CREATE bar, got %+v", events[0])
	}
	if events[1].Name != "foo" || events[1].Kind != watch.Create {
		t.Fatalf("expected second event to be CREATE foo, got %+v", events[1])
	}
}

// TestCloseEvictsFilesAndClosesChannels ensures Close closes every open
// channel and evicts the tree so that a subsequent operation fails with
// Closed.
func TestCloseEvictsFilesAndClosesChannels(t *testing.T) {
	cfg, err := Unix()
	if err != nil {
		t.Fatalf("unable to build configuration: %v", err)
	}
	fs, err := New(cfg)
	if err != nil {
		t.Fatalf("unable to build filesystem: %v", err)
	}

	ch, err := fs.OpenFileChannel("/foo", channel.OpenOptions{Read: true, Write: true}, true)
	if err != nil {
		t.Fatalf("unable to open channel: %v", err)
	}

	if err := fs.Close(); err != nil {
		t.Fatalf("unable to close filesystem: %v", err)
	}
	if !ch.Closed() {
		t.Fatal("expected Close to close outstanding channels")
	}
	if err := fs.CreateFile("/bar"); !errs.Is(err, errs.Closed) {
		t.Fatalf("expected Closed after Close, got %v", err)
	}
}

// TestDeleteNonEmptyDirectoryFails ensures Delete rejects a non-empty
// directory with DirectoryNotEmpty.
func TestDeleteNonEmptyDirectoryFails(t *testing.T) {
	cfg, err := Unix()
	if err != nil {
		t.Fatalf("unable to build configuration: %v", err)
	}
	fs, err := New(cfg)
	if err != nil {
		t.Fatalf("unable to build filesystem: %v", err)
	}
	defer fs.Close()

	if err := fs.CreateDirectory("/a"); err != nil {
		t.Fatalf("unable to create /a: %v", err)
	}
	if err := fs.CreateFile("/a/b"); err != nil {
		t.Fatalf("unable to create /a/b: %v", err)
	}

	if err := fs.Delete("/a"); !errs.Is(err, errs.DirectoryNotEmpty) {
		t.Fatalf("expected DirectoryNotEmpty, got %v", err)
	}
}
