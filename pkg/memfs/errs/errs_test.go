package errs

import (
	"errors"
	"strings"
	"testing"
)

// TestIsMatchesKind ensures Is reports true only for the matching Kind.
func TestIsMatchesKind(t *testing.T) {
	err := New(NotFound, "missing")
	if !Is(err, NotFound) {
		t.Fatal("expected Is to match NotFound")
	}
	if Is(err, AlreadyExists) {
		t.Fatal("expected Is not to match AlreadyExists")
	}
}

// TestIsFalseForForeignError ensures a non-memfs error never matches any
// Kind.
func TestIsFalseForForeignError(t *testing.T) {
	if Is(errors.New("plain"), NotFound) {
		t.Fatal("expected a plain error never to match a Kind")
	}
}

// TestKindOfDefaultsToIo ensures an error with no Kind resolves to Io.
func TestKindOfDefaultsToIo(t *testing.T) {
	if KindOf(errors.New("plain")) != Io {
		t.Fatal("expected KindOf on a foreign error to return Io")
	}
}

// TestWithPathAttachesPathWithoutMutatingOriginal ensures WithPath
// returns a new value and leaves the receiver untouched.
func TestWithPathAttachesPathWithoutMutatingOriginal(t *testing.T) {
	original := New(NotFound, "missing")
	withPath := original.WithPath("/a/b")

	if original.Path != "" {
		t.Fatal("expected original error's Path to remain empty")
	}
	if withPath.Path != "/a/b" {
		t.Fatalf("expected path to be set, got %q", withPath.Path)
	}
}

// TestWithSuppressedAccumulatesWithoutMutatingOriginal ensures
// WithSuppressed appends to a copy and that Error() reports the count.
func TestWithSuppressedAccumulatesWithoutMutatingOriginal(t *testing.T) {
	original := New(Closed, "primary failure")
	withOne := original.WithSuppressed(errors.New("secondary 1"))
	withTwo := withOne.WithSuppressed(errors.New("secondary 2"))

	if len(original.Suppressed) != 0 {
		t.Fatal("expected original error's Suppressed to remain empty")
	}
	if len(withOne.Suppressed) != 1 {
		t.Fatalf("expected 1 suppressed error, got %d", len(withOne.Suppressed))
	}
	if len(withTwo.Suppressed) != 2 {
		t.Fatalf("expected 2 suppressed errors, got %d", len(withTwo.Suppressed))
	}
	if got := withTwo.Error(); !strings.Contains(got, "(+2 suppressed)") {
		t.Fatalf("expected the message to report 2 suppressed errors, got %q", got)
	}
}

// TestWrapPreservesCause ensures Wrap's cause is reachable via Unwrap.
func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("root cause")
	wrapped := Wrap(Io, cause, "unable to do the thing")

	if !errors.Is(wrapped, cause) {
		t.Fatal("expected errors.Is to see through Wrap to the cause")
	}
}

// TestWrapWithNilCauseBehavesLikeNew ensures Wrap degrades gracefully when
// there is no underlying cause to chain.
func TestWrapWithNilCauseBehavesLikeNew(t *testing.T) {
	wrapped := Wrap(Io, nil, "no cause here")
	if wrapped.cause != nil {
		t.Fatal("expected no cause to be set")
	}
}
