// Package pool provides a bounded, reusable byte-buffer pool, used by the
// signature scanner and content streamer to cap the memory spent on scratch
// I/O buffers regardless of how much fan-out the caller attempts.
package pool

import "sync"

// FixedBufferPool hands out buffers of exactly size bytes, backed by a
// sync.Pool for reuse, but bounded to at most capacity outstanding buffers at
// any moment: Get blocks once capacity buffers are checked out. sync.Pool
// alone does not provide that bound — it may grow without limit under
// concurrent demand and is free to discard entries during GC — so a counting
// semaphore sits in front of it.
type FixedBufferPool struct {
	size int
	sem  chan struct{}
	pool sync.Pool
}

// New creates a FixedBufferPool of the given capacity, each buffer sized to
// size bytes.
func New(size, capacity int) *FixedBufferPool {
	if size <= 0 {
		panic("pool: size must be positive")
	}
	if capacity <= 0 {
		panic("pool: capacity must be positive")
	}
	return &FixedBufferPool{
		size: size,
		sem:  make(chan struct{}, capacity),
		pool: sync.Pool{
			New: func() any {
				b := make([]byte, size)
				return &b
			},
		},
	}
}

// Get blocks until a buffer slot is available, then returns a buffer of
// exactly Size() bytes. The buffer must be returned via Put.
func (p *FixedBufferPool) Get() *[]byte {
	p.sem <- struct{}{}
	b := p.pool.Get().(*[]byte)
	*b = (*b)[:p.size]
	return b
}

// Put returns a buffer previously obtained from Get. Put must be called
// exactly once per Get.
func (p *FixedBufferPool) Put(b *[]byte) {
	if b == nil {
		return
	}
	*b = (*b)[:p.size]
	p.pool.Put(b)
	<-p.sem
}

// Size returns the fixed buffer size in bytes.
func (p *FixedBufferPool) Size() int {
	return p.size
}

// Capacity returns the maximum number of buffers outstanding at once.
func (p *FixedBufferPool) Capacity() int {
	return cap(p.sem)
}

// InUse returns the number of buffers currently checked out. Intended for
// tests asserting the pool bound holds under parallel scans.
func (p *FixedBufferPool) InUse() int {
	return len(p.sem)
}
