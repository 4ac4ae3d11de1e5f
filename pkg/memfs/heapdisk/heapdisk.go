// Package heapdisk implements the block allocator and block-backed regular
// file storage described in spec.md §4.3: a HeapDisk with a fixed block
// size and an optional LIFO free-block cache, and a RegularFile whose
// content is an ordered list of block byte slices.
package heapdisk

import (
	"math"
	"sync"

	"github.com/mutagen-io/memfs/pkg/memfs/errs"
)

// Unbounded is the "no limit" value: as a cache capacity it means "never
// evict", and as a total capacity it means the disk never runs out of
// space (the capacity is then math.MaxInt64 rounded down to whole blocks).
const Unbounded = -1

// block is a single fixed-size byte buffer.
type block []byte

// HeapDisk is a fixed-block-size allocator with an optional LIFO free-block
// cache. Capacity is tracked in blocks; callers configure it in bytes and
// it is truncated down to a whole number of blocks.
type HeapDisk struct {
	mu sync.Mutex

	blockSize      int
	capacityBlocks int64
	cacheCapacity  int64 // Unbounded (-1), 0 (disabled), or a positive count

	allocatedBlockCount int64
	cache               []block // LIFO: cache[len-1] is the most recently freed block
}

// New creates a HeapDisk with the given block size (bytes), total capacity
// (bytes, truncated down to a multiple of blockSize, or Unbounded), and
// free-block cache capacity (Unbounded, 0, or a positive block count).
func New(blockSize int, capacityBytes int64, cacheCapacity int64) (*HeapDisk, error) {
	if blockSize <= 0 {
		return nil, errs.New(errs.InvalidArgument, "block size must be positive")
	}
	if capacityBytes < 0 && capacityBytes != Unbounded {
		return nil, errs.New(errs.InvalidArgument, "capacity must be non-negative or Unbounded")
	}
	if cacheCapacity < Unbounded {
		return nil, errs.New(errs.InvalidArgument, "invalid cache capacity")
	}

	capacityBlocks := capacityBytes / int64(blockSize)
	if capacityBytes == Unbounded {
		capacityBlocks = math.MaxInt64 / int64(blockSize)
	}

	return &HeapDisk{
		blockSize:      blockSize,
		capacityBlocks: capacityBlocks,
		cacheCapacity:  cacheCapacity,
	}, nil
}

// BlockSize returns the configured block size in bytes.
func (d *HeapDisk) BlockSize() int {
	return d.blockSize
}

// AllocatedBlockCount returns the number of blocks currently allocated to
// files. Blocks sitting in the free-block cache are not counted, and they
// do not count against total capacity either (see UsableSpace).
func (d *HeapDisk) AllocatedBlockCount() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.allocatedBlockCount
}

// CachedBlockCount returns the number of blocks currently sitting in the
// free-block cache.
func (d *HeapDisk) CachedBlockCount() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.cache))
}

// UsableSpace returns the number of bytes that could still be allocated:
// capacity minus blocks already allocated to files, with no further
// reserve. Blocks sitting in the free-block cache are not allocated to any
// file, so they count as usable (allocation reuses them first).
func (d *HeapDisk) UsableSpace() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return (d.capacityBlocks - d.allocatedBlockCount) * int64(d.blockSize)
}

// Capacity returns the total configured capacity in bytes (post
// block-size truncation).
func (d *HeapDisk) Capacity() int64 {
	return d.capacityBlocks * int64(d.blockSize)
}

// allocateOneLocked returns one zero-filled block, preferring the cache.
// The caller holds d.mu.
func (d *HeapDisk) allocateOneLocked() block {
	if n := len(d.cache); n > 0 {
		b := d.cache[n-1]
		d.cache = d.cache[:n-1]
		for i := range b {
			b[i] = 0
		}
		return b
	}
	return make(block, d.blockSize)
}

// allocate appends n freshly zero-filled blocks to the given block slice,
// drawing from the free-block cache LIFO-first, failing atomically (no
// partial allocation) if fewer than n blocks are available in total.
func (d *HeapDisk) allocate(blocks []block, n int) ([]block, error) {
	if n == 0 {
		return blocks, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	available := d.capacityBlocks - d.allocatedBlockCount
	if int64(n) > available {
		return blocks, errs.Newf(errs.OutOfSpace, "unable to allocate %d block(s): only %d available", n, available)
	}

	result := make([]block, len(blocks), len(blocks)+n)
	copy(result, blocks)
	for i := 0; i < n; i++ {
		result = append(result, d.allocateOneLocked())
	}

	d.allocatedBlockCount += int64(n)
	return result, nil
}

// free pops the last n blocks from the given block slice, pushing up to
// the cache's remaining capacity onto the LIFO cache and releasing the
// rest, per spec.md §4.3.
func (d *HeapDisk) free(blocks []block, n int) []block {
	if n <= 0 || len(blocks) == 0 {
		return blocks
	}
	if n > len(blocks) {
		n = len(blocks)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	freed := blocks[len(blocks)-n:]
	remaining := blocks[:len(blocks)-n]

	cacheable := n
	if d.cacheCapacity != Unbounded {
		room := int(d.cacheCapacity) - len(d.cache)
		if room < 0 {
			room = 0
		}
		if cacheable > room {
			cacheable = room
		}
	}

	for i := 0; i < cacheable; i++ {
		d.cache = append(d.cache, freed[i])
	}

	d.allocatedBlockCount -= int64(n)

	return remaining
}

// freeAll frees every block in the given slice and returns an empty slice.
func (d *HeapDisk) freeAll(blocks []block) []block {
	return d.free(blocks, len(blocks))
}

// rollbackAllocation frees the last n blocks of blocks, exactly as free
// does. Nothing in this package calls it: allocate checks availability
// before adding any block, so a failed allocation leaves nothing to undo.
func (d *HeapDisk) rollbackAllocation(blocks []block, n int) []block {
	return d.free(blocks, n)
}
