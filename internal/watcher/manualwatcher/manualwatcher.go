// Package manualwatcher provides a deterministic, lock-protected watcher
// for tests and for CLI modes that inject batches directly rather than
// watching a real filesystem.
package manualwatcher

import (
	"sync"

	"github.com/pixelgardenlabs/pgsync/internal/watcher"
)

// Watcher forwards explicitly injected batches to its callback. It never
// watches anything on its own.
type Watcher struct {
	mu     sync.Mutex
	cb     watcher.Callback
	closed bool
}

// New creates a Watcher that forwards injected batches to cb.
func New(cb watcher.Callback) *Watcher {
	return &Watcher{cb: cb}
}

// Inject pushes one synthetic batch to the callback, as if a real watcher
// had observed it.
func (w *Watcher) Inject(batch []string) {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return
	}
	w.cb(batch)
}

// Close marks the watcher closed; further Inject calls are no-ops.
func (w *Watcher) Close() error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	return nil
}
