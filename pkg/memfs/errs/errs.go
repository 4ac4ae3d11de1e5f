// Package errs defines the error taxonomy shared by every memfs package. It
// mirrors the error kinds a real filesystem API surfaces (not-found,
// already-exists, not-a-directory, and so on) without tying any package to a
// specific concrete error type from the standard library.
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind identifies the category of a filesystem error. Callers should switch
// on Kind rather than comparing error values directly, since the same Kind
// may be produced by many different operations with different messages.
type Kind uint8

const (
	// Io is the catch-all kind for unexpected conditions that don't fit any
	// other category.
	Io Kind = iota
	// NotFound indicates that a path component was missing during lookup.
	NotFound
	// AlreadyExists indicates that a create-style operation's target already
	// exists and the operation forbids overwriting it.
	AlreadyExists
	// NotDirectory indicates that an operation expected a directory but found
	// a file of another kind.
	NotDirectory
	// IsDirectory indicates that an operation expected a non-directory but
	// found a directory.
	IsDirectory
	// DirectoryNotEmpty indicates an attempt to remove a non-empty directory.
	DirectoryNotEmpty
	// Loop indicates that symbolic link traversal exceeded its limit.
	Loop
	// AccessDenied indicates that an operation is not permitted for the
	// target, independent of any specific feature gate.
	AccessDenied
	// Unsupported indicates that a feature is disabled in the filesystem's
	// configuration, or that an operation is not meaningful for the target
	// kind of file.
	Unsupported
	// OutOfSpace indicates that HeapDisk could not satisfy an allocation.
	OutOfSpace
	// InvalidArgument indicates a malformed path, a negative position, an
	// invalid glob pattern, or an attribute value of the wrong type.
	InvalidArgument
	// Closed indicates an operation on a closed filesystem, channel, stream,
	// watch service, or directory stream.
	Closed
	// AsynchronousClose indicates that a blocking operation was unblocked by
	// a concurrent close of the same channel from another goroutine.
	AsynchronousClose
	// Interrupted indicates that a blocking operation's context was
	// cancelled while it was waiting.
	Interrupted
)

// String returns a short, stable name for the kind, suitable for logging.
func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not-found"
	case AlreadyExists:
		return "already-exists"
	case NotDirectory:
		return "not-a-directory"
	case IsDirectory:
		return "is-a-directory"
	case DirectoryNotEmpty:
		return "directory-not-empty"
	case Loop:
		return "loop"
	case AccessDenied:
		return "access-denied"
	case Unsupported:
		return "unsupported"
	case OutOfSpace:
		return "out-of-space"
	case InvalidArgument:
		return "invalid-argument"
	case Closed:
		return "closed"
	case AsynchronousClose:
		return "asynchronous-close"
	case Interrupted:
		return "interrupted"
	default:
		return "io"
	}
}

// Error is the concrete error type produced by memfs packages. Path carries
// the offending file or glob, when one is known, to satisfy the taxonomy's
// requirement that NotFound and similar errors carry the failing path.
type Error struct {
	Kind    Kind
	Path    string
	message string
	cause   error

	// Suppressed holds secondary failures that occurred while already
	// handling this error — most notably, other resources' close errors
	// encountered during a best-effort close cascade that surfaces only
	// its first failure as the primary error (spec.md §4.7).
	Suppressed []error
}

// Error implements the error interface.
func (e *Error) Error() string {
	message := e.message
	if e.Path != "" {
		message = fmt.Sprintf("%s: %s (%s)", e.Kind, message, e.Path)
	} else {
		message = fmt.Sprintf("%s: %s", e.Kind, message)
	}
	if len(e.Suppressed) > 0 {
		message = fmt.Sprintf("%s (+%d suppressed)", message, len(e.Suppressed))
	}
	return message
}

// WithSuppressed attaches secondary errors to e, returning a new Error
// value so the original is never mutated in place.
func (e *Error) WithSuppressed(suppressed ...error) *Error {
	result := *e
	result.Suppressed = append(append([]error(nil), e.Suppressed...), suppressed...)
	return &result
}

// Unwrap allows errors.Is/errors.As to see through to the underlying cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// New creates an Error of the given kind with a message and no path.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, message: message}
}

// Newf creates an Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, message: fmt.Sprintf(format, args...)}
}

// WithPath attaches a path to an Error, returning a new Error value.
func (e *Error) WithPath(path string) *Error {
	result := *e
	result.Path = path
	return &result
}

// Wrap creates an Error of the given kind that wraps an underlying cause,
// preserving the cause's message via github.com/pkg/errors so that stack
// traces survive across package boundaries.
func Wrap(kind Kind, cause error, message string) *Error {
	if cause == nil {
		return New(kind, message)
	}
	return &Error{Kind: kind, message: message, cause: errors.Wrap(cause, message)}
}

// Is reports whether err is a memfs error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf returns the Kind of err if it is a memfs error, or Io otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Io
}
