// Package fsnotifywatcher recursively watches a mapping root with fsnotify
// and pushes raw, non-debounced batches to a callback. Debouncing is
// internal/debounce's job, not the watcher's; this adapter forwards every
// notification immediately.
package fsnotifywatcher

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/pixelgardenlabs/pgsync/internal/plog"
	"github.com/pixelgardenlabs/pgsync/internal/sharded"
	"github.com/pixelgardenlabs/pgsync/internal/watcher"
)

// Watcher recursively watches one mapping root, registering new
// directories as fsnotify reports them created and dropping registrations
// as they are removed.
type Watcher struct {
	root    string
	fsw     *fsnotify.Watcher
	cb      watcher.Callback
	watched sharded.Set
}

// New creates a Watcher rooted at root. It does not start watching until
// Start is called.
func New(root string, cb watcher.Callback) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{root: root, fsw: fsw, cb: cb, watched: sharded.NewSet()}, nil
}

// Start recursively registers watches under root and begins forwarding
// events to the callback until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addRecursive(w.root); err != nil {
		w.fsw.Close()
		return err
	}
	go w.loop(ctx)
	return nil
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.fsw.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			plog.Warn("fsnotify watcher error", "root", w.root, "err", err)
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.addRecursive(ev.Name); err != nil {
						plog.Warn("fsnotify: failed to watch new directory", "path", ev.Name, "err", err)
					}
				}
			}
			if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				// fsnotify drops the watch itself when a watched directory
				// disappears; only the registration bookkeeping remains.
				w.watched.Remove(ev.Name)
			}
			w.cb([]string{ev.Name})
		}
	}
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() || w.watched.Has(path) {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			return err
		}
		w.watched.Add(path)
		return nil
	})
}

// Watched returns the number of directories currently registered.
func (w *Watcher) Watched() int {
	return w.watched.Count()
}
