package heapdisk

import (
	"io"
	"sync"

	"github.com/mutagen-io/memfs/pkg/memfs/errs"
)

// RegularFile stores a regular file's content as an ordered list of
// block-sized byte slices allocated from a HeapDisk, plus a logical size
// that may be less than blockSize * len(blocks).
type RegularFile struct {
	mu sync.RWMutex

	disk   *HeapDisk
	blocks []block
	size   int64
}

// NewRegularFile creates an empty RegularFile backed by the given disk.
func NewRegularFile(disk *HeapDisk) *RegularFile {
	return &RegularFile{disk: disk}
}

// Size returns the file's current logical size in bytes. Callers needing
// the read lock for a consistent read-then-use should hold it themselves;
// this method takes its own brief read lock.
func (f *RegularFile) Size() int64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.size
}

// blockCountForSize returns the number of blocks needed to store n bytes.
func (f *RegularFile) blockCountForSize(n int64) int {
	if n <= 0 {
		return 0
	}
	bs := int64(f.disk.blockSize)
	return int(((n - 1) / bs) + 1)
}

// growTo ensures the block list has at least blockCountForSize(newSize)
// blocks, allocating as needed. It does not change f.size; callers update
// size themselves. Must be called with f.mu held for writing.
func (f *RegularFile) growTo(newSize int64) error {
	needed := f.blockCountForSize(newSize)
	if needed <= len(f.blocks) {
		return nil
	}
	grown, err := f.disk.allocate(f.blocks, needed-len(f.blocks))
	if err != nil {
		return err
	}
	f.blocks = grown
	return nil
}

// Write writes len(src[off:off+length]) bytes at position pos, growing the
// file (allocating blocks and zero-filling any gap between the old size
// and pos) as necessary. It returns the number of bytes written.
func (f *RegularFile) Write(pos int64, src []byte, off, length int) (int, error) {
	if pos < 0 {
		return 0, errs.New(errs.InvalidArgument, "negative position")
	}
	if length == 0 {
		return 0, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	newSize := pos + int64(length)
	if err := f.growTo(newSize); err != nil {
		return 0, err
	}

	f.writeBytesLocked(pos, src[off:off+length])

	if newSize > f.size {
		f.size = newSize
	}

	return length, nil
}

// writeBytesLocked copies data into the block list starting at byte
// position pos. The caller must have already grown the block list to
// cover [pos, pos+len(data)). Must be called with f.mu held for writing.
func (f *RegularFile) writeBytesLocked(pos int64, data []byte) {
	bs := int64(f.disk.blockSize)
	remaining := data
	cursor := pos
	for len(remaining) > 0 {
		blockIndex := cursor / bs
		offsetInBlock := cursor % bs
		n := bs - offsetInBlock
		if int64(len(remaining)) < n {
			n = int64(len(remaining))
		}
		copy(f.blocks[blockIndex][offsetInBlock:offsetInBlock+n], remaining[:n])
		remaining = remaining[n:]
		cursor += n
	}
}

// Read copies min(length, size-pos) bytes from position pos into
// dst[off:off+length], returning the number of bytes read, or (-1, nil)
// if pos >= size.
func (f *RegularFile) Read(pos int64, dst []byte, off, length int) (int, error) {
	if pos < 0 {
		return 0, errs.New(errs.InvalidArgument, "negative position")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if pos >= f.size {
		return -1, nil
	}

	available := f.size - pos
	if int64(length) > available {
		length = int(available)
	}
	if length == 0 {
		return 0, nil
	}

	f.readBytesLocked(pos, dst[off:off+length])
	return length, nil
}

// readBytesLocked copies len(dst) bytes starting at byte position pos out
// of the block list. Must be called with f.mu held (for reading or
// writing).
func (f *RegularFile) readBytesLocked(pos int64, dst []byte) {
	bs := int64(f.disk.blockSize)
	remaining := dst
	cursor := pos
	for len(remaining) > 0 {
		blockIndex := cursor / bs
		offsetInBlock := cursor % bs
		n := bs - offsetInBlock
		if int64(len(remaining)) < n {
			n = int64(len(remaining))
		}
		copy(remaining[:n], f.blocks[blockIndex][offsetInBlock:offsetInBlock+n])
		remaining = remaining[n:]
		cursor += n
	}
}

// Truncate sets the file's logical size to newSize. If newSize >= the
// current size, this is a no-op (the file does not grow). Otherwise,
// blocks beyond ceil(newSize/blockSize) are freed back to the disk, and any
// retained block's tail beyond newSize is zeroed so a later Write landing
// inside it without allocating a fresh block never exposes stale bytes.
func (f *RegularFile) Truncate(newSize int64) error {
	if newSize < 0 {
		return errs.New(errs.InvalidArgument, "negative size")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if newSize >= f.size {
		return nil
	}

	neededBlocks := f.blockCountForSize(newSize)
	if neededBlocks < len(f.blocks) {
		f.blocks = f.disk.free(f.blocks, len(f.blocks)-neededBlocks)
	}
	f.zeroTailLocked(newSize)
	f.size = newSize
	return nil
}

// zeroTailLocked zeroes the portion of the last retained block beyond pos.
// Must be called with f.mu held for writing.
func (f *RegularFile) zeroTailLocked(pos int64) {
	if pos <= 0 || len(f.blocks) == 0 {
		return
	}
	bs := int64(f.disk.blockSize)
	blockIndex := int(pos / bs)
	offsetInBlock := pos % bs
	if offsetInBlock == 0 || blockIndex >= len(f.blocks) {
		return
	}
	tail := f.blocks[blockIndex][offsetInBlock:]
	for i := range tail {
		tail[i] = 0
	}
}

// TransferTo reads count bytes starting at pos and writes them to sink,
// without altering the file's own size or position (RegularFile has no
// position of its own; FileChannel owns position).
func (f *RegularFile) TransferTo(pos int64, count int64, sink io.Writer) (int64, error) {
	if pos < 0 || count < 0 {
		return 0, errs.New(errs.InvalidArgument, "negative position or count")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if pos >= f.size {
		return 0, nil
	}
	if pos+count > f.size {
		count = f.size - pos
	}

	bs := int64(f.disk.blockSize)
	var transferred int64
	cursor := pos
	remaining := count
	for remaining > 0 {
		blockIndex := cursor / bs
		offsetInBlock := cursor % bs
		n := bs - offsetInBlock
		if remaining < n {
			n = remaining
		}
		written, err := sink.Write(f.blocks[blockIndex][offsetInBlock : offsetInBlock+n])
		transferred += int64(written)
		if err != nil {
			return transferred, err
		}
		cursor += n
		remaining -= n
	}

	return transferred, nil
}

// TransferFrom reads up to count bytes from src and writes them at
// position pos, growing the file as necessary, returning the number of
// bytes transferred.
func (f *RegularFile) TransferFrom(src io.Reader, pos int64, count int64) (int64, error) {
	if pos < 0 || count < 0 {
		return 0, errs.New(errs.InvalidArgument, "negative position or count")
	}

	buffer := make([]byte, 32*1024)
	var transferred int64
	cursor := pos
	remaining := count
	for remaining > 0 {
		chunk := int64(len(buffer))
		if remaining < chunk {
			chunk = remaining
		}
		n, err := src.Read(buffer[:chunk])
		if n > 0 {
			if _, werr := f.Write(cursor, buffer, 0, n); werr != nil {
				return transferred, werr
			}
			cursor += int64(n)
			transferred += int64(n)
			remaining -= int64(n)
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return transferred, err
		}
	}
	return transferred, nil
}

// CopyWithoutContent creates a new, empty RegularFile on the same disk.
// Attribute copying is the caller's responsibility (it operates on the
// owning tree.File, which this package knows nothing about).
func (f *RegularFile) CopyWithoutContent() *RegularFile {
	return NewRegularFile(f.disk)
}

// CopyContentTo copies this file's blocks and size into dst, which must be
// empty (e.g. freshly produced by CopyWithoutContent).
func (f *RegularFile) CopyContentTo(dst *RegularFile) error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	dst.mu.Lock()
	defer dst.mu.Unlock()

	if len(dst.blocks) != 0 {
		return errs.New(errs.InvalidArgument, "copy destination is not empty")
	}

	grown, err := dst.disk.allocate(nil, len(f.blocks))
	if err != nil {
		return err
	}
	for i, b := range f.blocks {
		copy(grown[i], b)
	}
	dst.blocks = grown
	dst.size = f.size
	return nil
}

// BlockCount returns the number of blocks currently allocated to this
// file.
func (f *RegularFile) BlockCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.blocks)
}

// Free releases all blocks held by this file back to the disk and resets
// its size to zero. Called when the last link to the file is removed and
// it has no open handles (spec.md §3: "Removing the last link to a
// regular file frees its blocks").
func (f *RegularFile) Free() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blocks = f.disk.freeAll(f.blocks)
	f.size = 0
}
