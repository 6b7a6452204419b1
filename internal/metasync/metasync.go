// Package metasync emits the minimal metadata action sequence for a sorted
// diff list from the local-versus-remote kind matrix. Content
// blocks for File-vs-File diffs are intentionally not emitted here — that
// is internal/stream's job, operating on the VFS state after metadata has
// been applied.
package metasync

import (
	"context"

	"github.com/pixelgardenlabs/pgsync/internal/action"
	"github.com/pixelgardenlabs/pgsync/internal/agent"
	"github.com/pixelgardenlabs/pgsync/internal/digest"
	"github.com/pixelgardenlabs/pgsync/internal/planner"
	"github.com/pixelgardenlabs/pgsync/internal/vfs"
)

// drainEvery is the action-count checkpoint at which outstanding RPC
// acknowledgements are drained, bounding unacknowledged-write memory on
// the remote.
const drainEvery = 1000

// Apply sends and applies the metadata action sequence for every diff,
// dest is the mapping's remote destination root. ag is the RPC client; it
// must have already accepted each action (send-before-apply) before Apply
// mutates tree.
func Apply(ctx context.Context, ag agent.Agent, tree *vfs.VFS, dest string, diffs []planner.Diff) error {
	actionCount := 0
	emit := func(a action.Action) error {
		if err := ag.Apply(ctx, a); err != nil {
			return err
		}
		tree.Apply(a)
		actionCount++
		if actionCount%drainEvery == 0 {
			return ag.Drain(ctx)
		}
		return nil
	}

	for _, d := range diffs {
		for _, a := range actionsFor(dest, d) {
			if err := emit(a); err != nil {
				return err
			}
		}
	}
	return ag.Drain(ctx)
}

// actionsFor computes the minimal action sequence for one diff. A remote
// entry of a different kind is removed before its replacement is put.
func actionsFor(dest string, d planner.Diff) []action.Action {
	sub := d.Sub
	local := d.Local
	remote := d.Remote

	if !local.Present {
		if !remote.Present {
			return nil
		}
		return []action.Action{action.NewRemove(dest, sub)}
	}

	switch local.Sig.Kind {
	case digest.KindDir:
		if !remote.Present {
			return []action.Action{action.NewPutDir(dest, sub, local.Sig.Perms)}
		}
		if remote.Kind == vfs.NodeFolder {
			return []action.Action{action.NewSetPerms(dest, sub, local.Sig.Perms)}
		}
		return []action.Action{
			action.NewRemove(dest, sub),
			action.NewPutDir(dest, sub, local.Sig.Perms),
		}

	case digest.KindSymlink:
		if !remote.Present {
			return []action.Action{action.NewPutLink(dest, sub, local.Sig.Target)}
		}
		return []action.Action{
			action.NewRemove(dest, sub),
			action.NewPutLink(dest, sub, local.Sig.Target),
		}

	case digest.KindFile:
		if !remote.Present {
			return []action.Action{action.NewPutFile(dest, sub, local.Sig.Perms)}
		}
		if remote.Kind == vfs.NodeFile {
			if remote.Perms != local.Sig.Perms {
				return []action.Action{action.NewSetPerms(dest, sub, local.Sig.Perms)}
			}
			return nil // content handled by internal/stream
		}
		return []action.Action{
			action.NewRemove(dest, sub),
			action.NewPutFile(dest, sub, local.Sig.Perms),
		}
	}
	return nil
}
