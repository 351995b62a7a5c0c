// Package bufpool is the shared byte-buffer allocator the chunking phase
// rents chunk buffers from and returns them to. Every rented buffer has
// exactly one owner at a time; ownership transfers across the sort->write
// pipeline stage and is released by the writer, never shared concurrently.
// The pooling pattern follows the sync.Pool-of-slices idiom used throughout
// the example corpus's own external-sort implementations.
package bufpool

import "sync"

// Pool hands out byte slices sized to the caller's request, reusing
// previously returned backing arrays when they're large enough.
//
// Get never enforces a capacity bound and so never returns
// sorterr.ResourceExhausted: the number of buffers ever in flight is already
// bounded by the caller's own concurrency limit (chunkPhase's sort-worker
// semaphore), not by pool policy, matching the teacher's own etl buffer
// pool, which grows the same way rather than rejecting a caller outright.
type Pool struct {
	pool sync.Pool
}

// New creates an empty pool.
func New() *Pool {
	return &Pool{pool: sync.Pool{New: func() any { return new([]byte) }}}
}

// Get returns a slice with length n, reusing a pooled backing array when its
// capacity is sufficient, allocating fresh otherwise.
func (p *Pool) Get(n int) []byte {
	ptr := p.pool.Get().(*[]byte)
	buf := *ptr
	if cap(buf) < n {
		buf = make([]byte, n)
	} else {
		buf = buf[:n]
	}
	return buf
}

// Put returns buf to the pool for reuse. Callers must not touch buf after
// calling Put: ownership passes to the pool.
func (p *Pool) Put(buf []byte) {
	buf = buf[:0]
	p.pool.Put(&buf)
}
