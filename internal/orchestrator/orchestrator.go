// Package orchestrator drives the per-mapping sync loop: an initial full
// scan of the remote, then debounce-sync cycles until shutdown. It is the
// one component that wires together the debouncer,
// scanner, planner, metasync, and stream packages against a shared agent.Agent
// and a shared scan buffer pool.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pixelgardenlabs/pgsync/internal/action"
	"github.com/pixelgardenlabs/pgsync/internal/agent"
	"github.com/pixelgardenlabs/pgsync/internal/debounce"
	"github.com/pixelgardenlabs/pgsync/internal/digest"
	"github.com/pixelgardenlabs/pgsync/internal/limiter"
	"github.com/pixelgardenlabs/pgsync/internal/metasync"
	"github.com/pixelgardenlabs/pgsync/internal/planner"
	"github.com/pixelgardenlabs/pgsync/internal/plog"
	"github.com/pixelgardenlabs/pgsync/internal/pool"
	"github.com/pixelgardenlabs/pgsync/internal/scanner"
	"github.com/pixelgardenlabs/pgsync/internal/skip"
	"github.com/pixelgardenlabs/pgsync/internal/stream"
	"github.com/pixelgardenlabs/pgsync/internal/subpath"
	"github.com/pixelgardenlabs/pgsync/internal/vfs"
	"github.com/pixelgardenlabs/pgsync/internal/watcher"
)

// Mapping configures one local tree mirrored to one remote destination root.
type Mapping struct {
	Root string
	Dest string
	Skip skip.Predicate
}

// Watcher is the subset of a filesystem watcher the orchestrator tears down
// on Close. fsnotifywatcher.Watcher and manualwatcher.Watcher both satisfy
// it; callers start watchers themselves and register them via AttachWatcher.
type Watcher interface {
	Close() error
}

type mappingState struct {
	cfg   Mapping
	tree  *vfs.VFS
	queue *debounce.Queue
}

// Orchestrator runs the sync loop for every configured mapping
// concurrently, coordinated by a shared scan buffer pool and memory
// budget.
type Orchestrator struct {
	ag        agent.Agent
	mappings  []*mappingState
	buffers   *pool.FixedBufferPool
	memBudget *limiter.Memory

	debounceInterval time.Duration
	scanConcurrency  int
	onComplete       func()

	watchers []Watcher

	errMu sync.Mutex
	err   error

	cancel    context.CancelFunc
	closeOnce sync.Once
}

// New creates an Orchestrator. memoryBudgetBytes bounds total in-flight
// WriteChunk payload bytes across all mappings' content streamers;
// onComplete, if non-nil, fires after any sync pass that ends with the
// event queue empty.
func New(ag agent.Agent, mappings []Mapping, debounceInterval time.Duration, memoryBudgetBytes int64, onComplete func()) *Orchestrator {
	states := make([]*mappingState, len(mappings))
	for i, m := range mappings {
		states[i] = &mappingState{cfg: m, tree: vfs.New(), queue: debounce.NewQueue()}
	}
	return &Orchestrator{
		ag:               ag,
		mappings:         states,
		buffers:          scanner.NewBufferPool(),
		memBudget:        limiter.NewMemory(memoryBudgetBytes),
		debounceInterval: debounceInterval,
		onComplete:       onComplete,
	}
}

// Tree returns mapping i's VFS, for callers asserting eventual
// consistency.
func (o *Orchestrator) Tree(i int) *vfs.VFS { return o.mappings[i].tree }

// Callback returns the watcher.Callback mapping i's filesystem watcher
// should push batches to.
func (o *Orchestrator) Callback(i int) watcher.Callback {
	q := o.mappings[i].queue
	return func(batch []string) { q.Push(batch) }
}

// SetScannerConcurrency caps the goroutines computing signatures per sync
// pass. Zero or negative means unlimited; the scan buffer pool bounds
// memory either way.
func (o *Orchestrator) SetScannerConcurrency(n int) {
	o.scanConcurrency = n
}

// AttachWatcher registers w so Close tears it down alongside the sync loop.
// Callers start w themselves before or after calling Run.
func (o *Orchestrator) AttachWatcher(w Watcher) {
	o.watchers = append(o.watchers, w)
}

// Run executes INITIAL_SCAN for every mapping, then runs the IDLE⇄SYNCING
// loop for every mapping concurrently until ctx is cancelled (or Close is
// called) or a fatal RpcException occurs. It returns the fatal error, if
// any; clean shutdown returns nil.
func (o *Orchestrator) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	defer cancel()

	if err := o.initialScan(runCtx); err != nil {
		return err
	}

	var wg sync.WaitGroup
	for _, ms := range o.mappings {
		ms := ms
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.syncLoop(runCtx, ms)
		}()
	}
	wg.Wait()

	o.errMu.Lock()
	defer o.errMu.Unlock()
	return o.err
}

// Close shuts the synchronizer down: it cancels the run context
// (interrupting any blocked debounce.Collect or Agent RPC call), stops every
// attached watcher, closes every mapping's queue, and tears down the agent
// transport. Safe to call multiple times and before or after Run returns.
func (o *Orchestrator) Close() error {
	var err error
	o.closeOnce.Do(func() {
		if o.cancel != nil {
			o.cancel()
		}
		for _, w := range o.watchers {
			if cerr := w.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}
		for _, ms := range o.mappings {
			ms.queue.Close()
		}
		if cerr := o.ag.Close(); cerr != nil && err == nil {
			err = cerr
		}
	})
	return err
}

func (o *Orchestrator) setFatal(err error) {
	o.errMu.Lock()
	defer o.errMu.Unlock()
	if o.err == nil {
		o.err = err
	}
}

// initialScan pulls each mapping's remote signature listing directly into
// its VFS — the remote is already authoritative, so there is nothing to
// send back — then seeds the event queue with the mapping root so the first
// pass reconciles the whole tree.
func (o *Orchestrator) initialScan(ctx context.Context) error {
	for _, ms := range o.mappings {
		entries, err := o.ag.FullScan(ctx, ms.cfg.Dest)
		if err != nil {
			return fmt.Errorf("orchestrator: initial scan of %s: %w", ms.cfg.Dest, err)
		}
		for _, e := range entries {
			for _, a := range entryActions(ms.cfg.Dest, e) {
				ms.tree.Apply(a)
			}
		}
		ms.queue.Push([]string{ms.cfg.Root})
		plog.Info("initial scan complete", "root", ms.cfg.Root, "dest", ms.cfg.Dest, "entries", len(entries))
	}
	return nil
}

// entryActions converts one FullScan entry into the action sequence that
// would have produced it, so it can be folded into the VFS through
// vfs.Apply's existing per-Kind dispatch rather than a second mutation path.
func entryActions(dest string, e agent.ScanEntry) []action.Action {
	switch e.Sig.Kind {
	case digest.KindDir:
		return []action.Action{action.NewPutDir(dest, e.Sub, e.Sig.Perms)}
	case digest.KindSymlink:
		return []action.Action{action.NewPutLink(dest, e.Sub, e.Sig.Target)}
	case digest.KindFile:
		actions := make([]action.Action, 0, len(e.Sig.BlockHashes)+2)
		actions = append(actions, action.NewPutFile(dest, e.Sub, e.Sig.Perms))
		for i, h := range e.Sig.BlockHashes {
			actions = append(actions, action.NewWriteChunk(dest, e.Sub, i, h, nil))
		}
		actions = append(actions, action.NewSetSize(dest, e.Sub, e.Sig.Size))
		return actions
	default:
		return nil
	}
}

// syncLoop runs the IDLE⇄SYNCING loop for one mapping until ctx is
// cancelled or a fatal error is observed.
func (o *Orchestrator) syncLoop(ctx context.Context, ms *mappingState) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		batch, err := debounce.Collect(ctx, ms.queue, o.debounceInterval)
		if err != nil {
			return // ctx cancellation during the wait is a clean shutdown
		}
		if len(batch) == 0 {
			continue
		}

		if err := o.syncPass(ctx, ms, batch); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			if errors.Is(err, agent.ErrRPC) {
				plog.Error("rpc failure, stopping sync loop", "root", ms.cfg.Root, "err", err)
				o.setFatal(err)
				// The agent is shared, so stop every mapping's loop.
				o.cancel()
				if o.onComplete != nil {
					o.onComplete()
				}
				return
			}
			plog.Warn("sync pass failed, re-enqueueing batch", "root", ms.cfg.Root, "err", err)
			ms.queue.Push(batch)
			continue
		}

		// Quiescence: only report completion when no further events arrived
		// while this pass ran.
		if o.onComplete != nil && ms.queue.Empty() {
			o.onComplete()
		}
	}
}

// syncPass runs one pass for one mapping: canonicalize event paths, scan,
// plan, apply metadata, stream content.
func (o *Orchestrator) syncPass(ctx context.Context, ms *mappingState, batch []string) error {
	subs := canonicalizeBatch(ms, batch)
	if len(subs) == 0 {
		return nil
	}
	plog.Info("sync pass start", "root", ms.cfg.Root, "paths", len(subs))

	results, err := scanner.Scan(ctx, ms.cfg.Root, subs, o.buffers, o.scanConcurrency)
	if err != nil {
		return fmt.Errorf("orchestrator: scan %s: %w", ms.cfg.Root, err)
	}

	locals := make([]planner.LocalEntry, len(results))
	for i, r := range results {
		locals[i] = planner.LocalEntry{Sub: r.Sub, Sig: r.Sig, Present: r.Present}
	}

	diffs := planner.Plan(ms.tree, locals)
	if len(diffs) == 0 {
		return nil
	}

	if err := metasync.Apply(ctx, o.ag, ms.tree, ms.cfg.Dest, diffs); err != nil {
		return fmt.Errorf("orchestrator: metadata sync %s: %w", ms.cfg.Dest, err)
	}

	if err := stream.Stream(ctx, o.ag, ms.tree, ms.cfg.Root, ms.cfg.Dest, o.buffers, o.memBudget, diffs); err != nil {
		return fmt.Errorf("orchestrator: stream %s: %w", ms.cfg.Root, err)
	}
	return nil
}

// canonicalizeBatch turns a raw watcher batch into a deduplicated set of
// candidate subpaths for the scanner: paths outside the mapping root or
// matched by its skip predicate are dropped, and any path that names a
// directory — locally, in the shadow tree, or both (including the synthetic
// root event the initial scan seeds) — is expanded into every descendant
// path on both sides, so the pass diffs the whole subtree. Expanding the
// shadow side too is what turns an entry that exists only remotely into a
// deletion candidate.
func canonicalizeBatch(ms *mappingState, batch []string) []subpath.SubPath {
	seen := make(map[string]struct{})
	var subs []subpath.SubPath
	var dirs []subpath.SubPath

	for _, raw := range batch {
		abs, err := filepath.Abs(raw)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(ms.cfg.Root, abs)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue // outside this mapping's root
		}

		if rel == "." {
			dirs = append(dirs, subpath.SubPath{})
			expandDirectory(ms, abs, seen, &subs)
			continue
		}

		if ms.cfg.Skip != nil && ms.cfg.Skip(abs, ms.cfg.Root) {
			continue
		}
		sub, err := subpath.Parse(filepath.ToSlash(rel))
		if err != nil {
			continue
		}
		addSub(seen, &subs, sub)
		dirs = append(dirs, sub)
		expandDirectory(ms, abs, seen, &subs)
	}

	expandShadow(ms, dirs, seen, &subs)
	return subs
}

// expandShadow adds every shadow-tree entry under any of the given
// directory candidates to subs, so remote-only entries are diffed (and
// removed) rather than silently retained.
func expandShadow(ms *mappingState, dirs []subpath.SubPath, seen map[string]struct{}, subs *[]subpath.SubPath) {
	if len(dirs) == 0 {
		return
	}
	prefixes := make(map[string]struct{}, len(dirs))
	all := false
	for _, d := range dirs {
		if len(d) == 0 {
			all = true
			break
		}
		prefixes[d.String()+"/"] = struct{}{}
	}
	ms.tree.Walk(func(sub subpath.SubPath, _ *vfs.Node) {
		if !all {
			str := sub.String() + "/"
			match := false
			for p := range prefixes {
				if strings.HasPrefix(str, p) {
					match = true
					break
				}
			}
			if !match {
				return
			}
		}
		abs := filepath.Join(append([]string{ms.cfg.Root}, sub...)...)
		if ms.cfg.Skip != nil && ms.cfg.Skip(abs, ms.cfg.Root) {
			return
		}
		addSub(seen, subs, sub.Clone())
	})
}

// expandDirectory walks abs, if it currently is a directory, adding every
// descendant's subpath to subs.
func expandDirectory(ms *mappingState, abs string, seen map[string]struct{}, subs *[]subpath.SubPath) {
	info, err := os.Lstat(abs)
	if err != nil || info.Mode()&os.ModeSymlink != 0 || !info.IsDir() {
		return
	}
	filepath.Walk(abs, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if path == abs {
			return nil
		}
		if ms.cfg.Skip != nil && ms.cfg.Skip(path, ms.cfg.Root) {
			if fi.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(ms.cfg.Root, path)
		if err != nil {
			return nil
		}
		sub, err := subpath.Parse(filepath.ToSlash(rel))
		if err != nil {
			return nil
		}
		addSub(seen, subs, sub)
		return nil
	})
}

func addSub(seen map[string]struct{}, subs *[]subpath.SubPath, sub subpath.SubPath) {
	key := sub.String()
	if _, ok := seen[key]; ok {
		return
	}
	seen[key] = struct{}{}
	*subs = append(*subs, sub)
}
