// Package memoryagent implements agent.Agent as an in-process VFS-shaped
// store, used by tests to exercise the orchestrator without a real
// subprocess.
package memoryagent

import (
	"context"
	"sync"

	"github.com/pixelgardenlabs/pgsync/internal/action"
	"github.com/pixelgardenlabs/pgsync/internal/agent"
	"github.com/pixelgardenlabs/pgsync/internal/digest"
	"github.com/pixelgardenlabs/pgsync/internal/subpath"
	"github.com/pixelgardenlabs/pgsync/internal/vfs"
)

// Fake is an in-process agent.Agent backed by a real vfs.VFS, so tests can
// compare a mapping's VFS against Fake.Tree after a sync pass, and check
// send ordering via Applied.
type Fake struct {
	mu        sync.Mutex
	tree      *vfs.VFS
	applied   []action.Action
	failApply error
}

// New creates an empty Fake.
func New() *Fake {
	return &Fake{tree: vfs.New()}
}

// Tree returns the fake remote's VFS, for assertions.
func (f *Fake) Tree() *vfs.VFS { return f.tree }

// SetFailApply makes every subsequent Apply return err instead of
// succeeding, simulating a transport failure. Pass nil to clear.
func (f *Fake) SetFailApply(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failApply = err
}

// Applied returns a snapshot of every action accepted so far, in order.
func (f *Fake) Applied() []action.Action {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]action.Action, len(f.applied))
	copy(out, f.applied)
	return out
}

// FullScan returns every (sub, signature) pair currently in the fake's VFS.
func (f *Fake) FullScan(ctx context.Context, root string) ([]agent.ScanEntry, error) {
	var entries []agent.ScanEntry
	f.tree.Walk(func(sub subpath.SubPath, n *vfs.Node) {
		entries = append(entries, agent.ScanEntry{Sub: sub.Clone(), Sig: nodeSignature(n)})
	})
	return entries, nil
}

func nodeSignature(n *vfs.Node) digest.Signature {
	switch n.Kind {
	case vfs.NodeFolder:
		return digest.Dir(n.Perms)
	case vfs.NodeSymlink:
		return digest.Symlink(n.Target)
	case vfs.NodeFile:
		return digest.File(n.Perms, n.Value.BlockHashes, n.Value.Size)
	default:
		return digest.Signature{}
	}
}

// Apply records a and applies it to the fake's own VFS, unless a failure
// has been injected via SetFailApply.
func (f *Fake) Apply(ctx context.Context, a action.Action) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failApply != nil {
		return f.failApply
	}
	f.applied = append(f.applied, a)
	f.tree.Apply(a)
	return nil
}

// Drain is a no-op: Fake applies synchronously, so nothing is ever outstanding.
func (f *Fake) Drain(ctx context.Context) error { return nil }

// Close is a no-op.
func (f *Fake) Close() error { return nil }
