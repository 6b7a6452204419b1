// Package stream reads changed file blocks and emits WriteChunk/SetSize
// actions, skipping blocks whose hash already matches the remote.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pixelgardenlabs/pgsync/internal/action"
	"github.com/pixelgardenlabs/pgsync/internal/agent"
	"github.com/pixelgardenlabs/pgsync/internal/digest"
	"github.com/pixelgardenlabs/pgsync/internal/limiter"
	"github.com/pixelgardenlabs/pgsync/internal/planner"
	"github.com/pixelgardenlabs/pgsync/internal/pool"
	"github.com/pixelgardenlabs/pgsync/internal/vfs"
)

// drainEvery is the streamed-file-count checkpoint at which outstanding RPC
// acknowledgements are drained.
const drainEvery = 1000

// ErrStream is the sentinel wrapped around any local-origin failure (open,
// read) encountered while streaming file content. The orchestrator treats
// errors.Is(err, ErrStream) as recoverable (log, re-enqueue the batch),
// distinct from errors.Is(err, agent.ErrRPC) which is fatal.
var ErrStream = errors.New("stream: local read failure")

// Stream streams content for every diff whose local signature is a File,
// against a mapping root, updating tree and draining ag periodically.
// Each chunk's payload bytes are reserved from budget for as long as the
// copy is held, so concurrent streamers across mappings share one memory
// cap. Diffs whose local signature is not a File (folders, symlinks,
// deletions) are skipped — their metadata was already handled by
// internal/metasync.
func Stream(ctx context.Context, ag agent.Agent, tree *vfs.VFS, root, dest string, buffers *pool.FixedBufferPool, budget *limiter.Memory, diffs []planner.Diff) error {
	streamed := 0
	for _, d := range diffs {
		if !d.Local.Present || d.Local.Sig.Kind != digest.KindFile {
			continue
		}
		if err := streamOne(ctx, ag, tree, root, dest, buffers, budget, d); err != nil {
			return err
		}
		streamed++
		if streamed%drainEvery == 0 {
			if err := ag.Drain(ctx); err != nil {
				return err
			}
		}
	}
	return ag.Drain(ctx)
}

func streamOne(ctx context.Context, ag agent.Agent, tree *vfs.VFS, root, dest string, buffers *pool.FixedBufferPool, budget *limiter.Memory, d planner.Diff) error {
	blockHashes := d.Local.Sig.BlockHashes
	size := d.Local.Sig.Size

	var otherHashes []digest.Bytes
	if d.Remote.Present && d.Remote.Kind == vfs.NodeFile {
		otherHashes = d.Remote.Value.BlockHashes
	}
	otherSize := d.Remote.Value.Size

	abs := filepath.Join(append([]string{root}, d.Sub...)...)
	f, err := os.Open(abs)
	if err != nil {
		return fmt.Errorf("stream: open %s: %w: %w", abs, ErrStream, err)
	}
	defer f.Close()

	for i, hash := range blockHashes {
		if i < len(otherHashes) && hash.Equal(otherHashes[i]) {
			continue // remote already has this block
		}
		bufPtr := buffers.Get()
		n, err := f.ReadAt(*bufPtr, int64(i)*int64(digest.BlockSize))
		if err != nil && err != io.EOF {
			buffers.Put(bufPtr)
			return fmt.Errorf("stream: read %s block %d: %w: %w", abs, i, ErrStream, err)
		}
		if err := budget.Acquire(ctx, int64(n)); err != nil {
			buffers.Put(bufPtr)
			return fmt.Errorf("stream: reserve %d bytes for %s block %d: %w", n, abs, i, err)
		}
		data := make([]byte, n)
		copy(data, (*bufPtr)[:n])
		buffers.Put(bufPtr)

		a := action.NewWriteChunk(dest, d.Sub, i, hash, data)
		applyErr := ag.Apply(ctx, a)
		budget.Release(int64(n))
		if applyErr != nil {
			return fmt.Errorf("stream: apply write_chunk %s: %w", abs, applyErr)
		}
		tree.Apply(a)
	}

	if size != otherSize {
		a := action.NewSetSize(dest, d.Sub, size)
		if err := ag.Apply(ctx, a); err != nil {
			return fmt.Errorf("stream: apply set_size %s: %w", abs, err)
		}
		tree.Apply(a)
	}
	return nil
}
