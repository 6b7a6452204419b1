// Package limiter bounds the total bytes of chunk payloads held in memory
// across all mappings' content streamers, so a burst of large-file changes
// in several mappings cannot pile up unbounded unsent chunk data.
package limiter

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Memory is a byte-weighted budget shared by every content streamer. A
// streamer reserves each chunk's payload size before copying it out of the
// scan buffer and releases it once the chunk has been handed to the
// transport; Acquire blocking while the budget is exhausted is what
// throttles the streamers. The scan buffer pool bounds scratch buffers
// separately.
type Memory struct {
	sem      *semaphore.Weighted
	capacity int64
}

// NewMemory creates a budget of limit bytes.
func NewMemory(limit int64) *Memory {
	return &Memory{sem: semaphore.NewWeighted(limit), capacity: limit}
}

// Acquire reserves n bytes, blocking until they are available or ctx is
// cancelled. A request larger than the whole budget is clamped to the
// budget, so one oversized payload degrades to exclusive use of the budget
// instead of deadlocking.
func (m *Memory) Acquire(ctx context.Context, n int64) error {
	return m.sem.Acquire(ctx, m.clamp(n))
}

// TryAcquire reserves n bytes without blocking, reporting success.
func (m *Memory) TryAcquire(n int64) bool {
	return m.sem.TryAcquire(m.clamp(n))
}

// Release returns n bytes to the budget. n must match a prior successful
// acquire.
func (m *Memory) Release(n int64) {
	m.sem.Release(m.clamp(n))
}

// Capacity returns the total budget in bytes.
func (m *Memory) Capacity() int64 {
	return m.capacity
}

func (m *Memory) clamp(n int64) int64 {
	if n > m.capacity {
		return m.capacity
	}
	return n
}
