// Package planner diffs freshly scanned local signatures against a
// mapping's VFS and produces a deterministically ordered change list.
package planner

import (
	"sort"

	"github.com/pixelgardenlabs/pgsync/internal/digest"
	"github.com/pixelgardenlabs/pgsync/internal/subpath"
	"github.com/pixelgardenlabs/pgsync/internal/vfs"
)

// LocalEntry is one scanned local path: either a signature (Present=true)
// or an absence.
type LocalEntry struct {
	Sub     subpath.SubPath
	Sig     digest.Signature
	Present bool
}

// RemoteEntry mirrors a VFS node as a file value for comparison purposes;
// Present is false when the VFS has no node at Sub.
type RemoteEntry struct {
	Value   vfs.FileValue
	Kind    vfs.NodeKind
	Perms   digest.PermSet
	Target  string
	Present bool
}

// Diff is one (sub, local, remote) triple where local and remote disagree.
type Diff struct {
	Sub    subpath.SubPath
	Local  LocalEntry
	Remote RemoteEntry
}

// Plan diffs each local entry against the VFS, drops entries that already
// agree, and returns the remainder sorted shallow-first, deletions-before-
// creations within a depth, tie-broken by stringified subpath. Deletions
// sorting first within a depth is what makes a case-only rename safe on
// case-insensitive remotes: foo is removed before Foo is created.
func Plan(tree *vfs.VFS, locals []LocalEntry) []Diff {
	diffs := make([]Diff, 0, len(locals))
	for _, local := range locals {
		remote := remoteEntryAt(tree, local.Sub)
		if agree(local, remote) {
			continue
		}
		diffs = append(diffs, Diff{Sub: local.Sub, Local: local, Remote: remote})
	}

	sort.SliceStable(diffs, func(i, j int) bool {
		a, b := diffs[i], diffs[j]
		if len(a.Sub) != len(b.Sub) {
			return len(a.Sub) < len(b.Sub)
		}
		if a.Local.Present != b.Local.Present {
			// Deletions (local absent) sort first.
			return !a.Local.Present
		}
		return a.Sub.String() < b.Sub.String()
	})
	return diffs
}

func remoteEntryAt(tree *vfs.VFS, sub subpath.SubPath) RemoteEntry {
	n := tree.Resolve(sub)
	if n == nil {
		return RemoteEntry{}
	}
	e := RemoteEntry{Present: true, Kind: n.Kind, Perms: n.Perms, Target: n.Target}
	if n.Kind == vfs.NodeFile {
		e.Value = n.Value
	}
	return e
}

func agree(local LocalEntry, remote RemoteEntry) bool {
	if !local.Present && !remote.Present {
		return true
	}
	if local.Present != remote.Present {
		return false
	}
	switch local.Sig.Kind {
	case digest.KindDir:
		return remote.Kind == vfs.NodeFolder && remote.Perms == local.Sig.Perms
	case digest.KindSymlink:
		return remote.Kind == vfs.NodeSymlink && remote.Target == local.Sig.Target
	case digest.KindFile:
		if remote.Kind != vfs.NodeFile {
			return false
		}
		if remote.Perms != local.Sig.Perms {
			return false
		}
		if remote.Value.Size != local.Sig.Size {
			return false
		}
		if len(remote.Value.BlockHashes) != len(local.Sig.BlockHashes) {
			return false
		}
		for i := range local.Sig.BlockHashes {
			if !remote.Value.BlockHashes[i].Equal(local.Sig.BlockHashes[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
