// Package streamio adapts channel.FileChannel to the standard io.Reader/
// io.Writer/io.Closer interfaces, the way the teacher's
// pkg/filesystem/file.go ReadableFile/WritableFile union interfaces wrap a
// native file handle. FileChannel's operations take an explicit
// context.Context (substituting for thread-interrupt cancellation, per
// DESIGN.md); a stream binds one context for its lifetime so it can
// satisfy the context-free stdlib interfaces.
package streamio

import (
	"context"
	"io"

	"github.com/mutagen-io/memfs/pkg/memfs/channel"
)

// AsyncChannel is channel.AsyncFileChannel's façade re-exported under the
// name spec.md's external-interface row uses; the implementation lives in
// the channel package since it is a thin wrapper directly over
// FileChannel's own lock and close semantics, not a separate concern.
type AsyncChannel = channel.AsyncFileChannel

// NewAsyncChannel wraps an already-open FileChannel for asynchronous use.
func NewAsyncChannel(ctx context.Context, ch *channel.FileChannel) *AsyncChannel {
	return channel.NewAsync(ctx, ch)
}

// JimfsInputStream adapts a read-mode FileChannel to io.ReadCloser.
type JimfsInputStream struct {
	ctx context.Context
	ch  *channel.FileChannel
}

// NewInputStream wraps ch, an already-open read-mode FileChannel. ctx
// bounds every Read call made through the stream.
func NewInputStream(ctx context.Context, ch *channel.FileChannel) *JimfsInputStream {
	return &JimfsInputStream{ctx: ctx, ch: ch}
}

// Read implements io.Reader. FileChannel.Read returns (-1, nil) at end of
// file (RegularFile's own convention); Read translates that into the
// (0, io.EOF) the stdlib io.Reader contract requires.
func (s *JimfsInputStream) Read(dst []byte) (int, error) {
	n, err := s.ch.Read(s.ctx, dst)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, io.EOF
	}
	return n, nil
}

// Close implements io.Closer.
func (s *JimfsInputStream) Close() error {
	return s.ch.Close()
}

// JimfsOutputStream adapts a write-mode FileChannel to io.WriteCloser.
type JimfsOutputStream struct {
	ctx context.Context
	ch  *channel.FileChannel
}

// NewOutputStream wraps ch, an already-open write-mode FileChannel. ctx
// bounds every Write call made through the stream.
func NewOutputStream(ctx context.Context, ch *channel.FileChannel) *JimfsOutputStream {
	return &JimfsOutputStream{ctx: ctx, ch: ch}
}

// Write implements io.Writer.
func (s *JimfsOutputStream) Write(src []byte) (int, error) {
	return s.ch.Write(s.ctx, src)
}

// Close implements io.Closer.
func (s *JimfsOutputStream) Close() error {
	return s.ch.Close()
}
