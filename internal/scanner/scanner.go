// Package scanner computes current local signatures for a set of candidate
// subpaths in parallel, bounded by a fixed buffer pool.
package scanner

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/pixelgardenlabs/pgsync/internal/digest"
	"github.com/pixelgardenlabs/pgsync/internal/pool"
	"github.com/pixelgardenlabs/pgsync/internal/sharded"
	"github.com/pixelgardenlabs/pgsync/internal/subpath"
)

// Result is the outcome of scanning one candidate subpath: either a
// signature (Present=true) or an absence.
type Result struct {
	Sub     subpath.SubPath
	Sig     digest.Signature
	Present bool
}

// BufferPoolCapacity bounds the scan buffer pool: 6 buffers of
// digest.BlockSize bytes caps scan memory at 24 MiB regardless of fan-out.
const BufferPoolCapacity = 6

// NewBufferPool builds the bounded scan buffer pool.
func NewBufferPool() *pool.FixedBufferPool {
	return pool.New(digest.BlockSize, BufferPoolCapacity)
}

// Scan computes signatures for every candidate subpath under root,
// concurrently; limit caps the worker goroutines (0 means unlimited — the
// buffer pool still bounds memory either way). A per-path failure (stat
// error, read error) yields Present=false rather than aborting the whole
// scan; Scan itself only returns an error if ctx is cancelled.
func Scan(ctx context.Context, root string, subs []subpath.SubPath, buffers *pool.FixedBufferPool, limit int) ([]Result, error) {
	results := sharded.NewMap[Result]()

	eg, egCtx := errgroup.WithContext(ctx)
	if limit > 0 {
		eg.SetLimit(limit)
	}
	for _, sub := range subs {
		sub := sub
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			results.Store(sub.String(), scanOne(root, sub, buffers))
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	out := make([]Result, 0, len(subs))
	for _, sub := range subs {
		r, ok := results.Load(sub.String())
		if !ok {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func scanOne(root string, sub subpath.SubPath, buffers *pool.FixedBufferPool) Result {
	abs := filepath.Join(append([]string{root}, sub...)...)

	info, err := os.Lstat(abs)
	if err != nil {
		return Result{Sub: sub}
	}
	if !existsCaseMatch(abs, sub, info.Mode()&os.ModeSymlink != 0) {
		return Result{Sub: sub}
	}

	if info.Mode().IsRegular() {
		bufPtr := buffers.Get()
		defer buffers.Put(bufPtr)
		sig, ok := digest.Compute(abs, *bufPtr, info)
		if !ok {
			return Result{Sub: sub}
		}
		return Result{Sub: sub, Sig: sig, Present: true}
	}

	sig, ok := digest.Compute(abs, nil, info)
	if !ok {
		return Result{Sub: sub}
	}
	return Result{Sub: sub, Sig: sig, Present: true}
}

// existsCaseMatch reports whether abs exists under exactly the requested
// case — an entry present only under a different case on a case-insensitive
// volume is treated as absent. Symlinks cannot be realpath'd without
// following them, so they are checked against the parent directory's
// listing bytewise; everything else is checked by resolving the path and
// requiring the full requested spelling — every segment, not just the
// basename — to survive resolution, so a case change in an ancestor
// directory also reads as absent. The resolved path may gain a prefix
// (e.g. /tmp resolving to /private/tmp), hence contains rather than
// equality. A path with no parent segment (the mapping root itself) is
// always a match.
func existsCaseMatch(abs string, sub subpath.SubPath, isSymlink bool) bool {
	if len(sub) == 0 {
		return true
	}
	if isSymlink {
		entries, err := os.ReadDir(filepath.Dir(abs))
		if err != nil {
			return false
		}
		want := sub.Last()
		for _, e := range entries {
			if e.Name() == want {
				return true
			}
		}
		return false
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return false
	}
	return strings.Contains(resolved, abs)
}
