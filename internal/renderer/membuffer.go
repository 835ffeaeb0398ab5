package renderer

import (
	"fmt"
	"sync"
)

// shardSize is the size of each locking shard within a memBuffer. Sized
// for the small, bursty transfers typical of test-harness resource I/O
// while keeping per-access lock overhead low.
const shardSize = 64 * 1024

// memBuffer is a server-managed, sharded in-memory store backing one
// resource's bytes for StubRenderer. Shard-range locking lets concurrent
// transfers against disjoint regions of the same resource proceed without
// contending on a single mutex.
type memBuffer struct {
	data   []byte
	shards []sync.RWMutex
}

func newMemBuffer(size int) *memBuffer {
	numShards := (size + shardSize - 1) / shardSize
	if numShards == 0 {
		numShards = 1
	}
	return &memBuffer{
		data:   make([]byte, size),
		shards: make([]sync.RWMutex, numShards),
	}
}

func (b *memBuffer) shardRange(off, length int) (start, end int) {
	start = off / shardSize
	end = (off + length - 1) / shardSize
	if end >= len(b.shards) {
		end = len(b.shards) - 1
	}
	if end < start {
		end = start
	}
	return start, end
}

func (b *memBuffer) ReadAt(offset uint64, length uint32) ([]byte, error) {
	off := int(offset)
	if off < 0 || off >= len(b.data) {
		return nil, fmt.Errorf("renderer: read offset %d out of bounds (size %d)", offset, len(b.data))
	}
	end := off + int(length)
	if end > len(b.data) {
		end = len(b.data)
	}

	start, last := b.shardRange(off, end-off)
	for i := start; i <= last; i++ {
		b.shards[i].RLock()
	}
	out := make([]byte, end-off)
	copy(out, b.data[off:end])
	for i := start; i <= last; i++ {
		b.shards[i].RUnlock()
	}
	return out, nil
}

func (b *memBuffer) WriteAt(offset uint64, data []byte) error {
	off := int(offset)
	end := off + len(data)
	if off < 0 || end > len(b.data) {
		return fmt.Errorf("renderer: write [%d,%d) out of bounds (size %d)", off, end, len(b.data))
	}

	start, last := b.shardRange(off, len(data))
	for i := start; i <= last; i++ {
		b.shards[i].Lock()
	}
	copy(b.data[off:end], data)
	for i := start; i <= last; i++ {
		b.shards[i].Unlock()
	}
	return nil
}

func (b *memBuffer) Size() int {
	return len(b.data)
}
