package transfer

import "sync"

// stagingPool provides pooled byte slices for TRANSFER_GET/PUT staging
// buffers, avoiding a fresh allocation on the hot path for every "v1"
// (inline-data) transfer. Uses size-bucketed pools with power-of-2 sizes
// (128KB, 256KB, 512KB, 1MB) to balance memory efficiency with allocation
// reduction. Every staging buffer up to 1MB, however small, comes from
// one of these buckets; larger requests get a plain, unpooled allocation.
//
// Uses *[]byte pattern to avoid sync.Pool interface allocation overhead.
const (
	size128k = 128 * 1024
	size256k = 256 * 1024
	size512k = 512 * 1024
	size1m   = 1024 * 1024
)

var globalPool = struct {
	pool128k sync.Pool
	pool256k sync.Pool
	pool512k sync.Pool
	pool1m   sync.Pool
}{
	pool128k: sync.Pool{New: func() any { b := make([]byte, size128k); return &b }},
	pool256k: sync.Pool{New: func() any { b := make([]byte, size256k); return &b }},
	pool512k: sync.Pool{New: func() any { b := make([]byte, size512k); return &b }},
	pool1m:   sync.Pool{New: func() any { b := make([]byte, size1m); return &b }},
}

// getStagingBuffer returns a pooled buffer of at least the requested size.
// Caller must call putStagingBuffer when done.
func getStagingBuffer(size uint32) []byte {
	switch {
	case size <= size128k:
		return (*globalPool.pool128k.Get().(*[]byte))[:size]
	case size <= size256k:
		return (*globalPool.pool256k.Get().(*[]byte))[:size]
	case size <= size512k:
		return (*globalPool.pool512k.Get().(*[]byte))[:size]
	case size <= size1m:
		return (*globalPool.pool1m.Get().(*[]byte))[:size]
	default:
		return make([]byte, size)
	}
}

// putStagingBuffer returns a buffer to the pool. The buffer's capacity
// determines which pool it goes to; non-standard capacities are dropped.
func putStagingBuffer(buf []byte) {
	c := cap(buf)
	buf = buf[:c]
	switch c {
	case size128k:
		globalPool.pool128k.Put(&buf)
	case size256k:
		globalPool.pool256k.Put(&buf)
	case size512k:
		globalPool.pool512k.Put(&buf)
	case size1m:
		globalPool.pool1m.Put(&buf)
	}
}
