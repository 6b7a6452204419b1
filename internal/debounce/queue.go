// Package debounce coalesces bursts of watcher notifications into single
// batches, absorbing editor save-storms into one sync pass per mapping.
package debounce

import "sync"

// Queue is an unbounded FIFO queue of path batches. Native Go channels
// cannot be unbounded, so this is a slice-backed queue guarded by a mutex
// and condition variable. Batches are never dropped; backpressure comes
// from the debounce step downstream.
type Queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  [][]string
	closed bool
}

// NewQueue creates an empty Queue.
func NewQueue() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push enqueues one batch and wakes any blocked Take.
func (q *Queue) Push(batch []string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.items = append(q.items, batch)
	q.cond.Signal()
}

// Take blocks until at least one batch is available, then returns it. It
// returns ok=false if the queue was closed and is empty.
func (q *Queue) Take() (batch []string, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return nil, false
	}
	batch = q.items[0]
	q.items = q.items[1:]
	return batch, true
}

// DrainNonBlocking removes and returns every batch currently queued, without
// waiting. It returns nil if nothing was queued.
func (q *Queue) DrainNonBlocking() [][]string {
	q.mu.Lock()
	defer q.mu.Unlock()
	drained := q.items
	q.items = nil
	return drained
}

// Empty reports whether no batches are currently queued.
func (q *Queue) Empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) == 0
}

// Close marks the queue closed, unblocking any pending Take.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}
