// Package vfs implements the in-memory shadow tree of what the remote agent
// is believed to contain. The VFS is mutated only
// through Apply, and is owned exclusively by one Orchestrator goroutine per
// mapping — the RWMutex below exists so that read-only borrowers (metrics,
// tests asserting eventual consistency) can safely inspect it concurrently
// with the sync loop, not because multiple writers are expected.
package vfs

import (
	"sync"

	"github.com/pixelgardenlabs/pgsync/internal/action"
	"github.com/pixelgardenlabs/pgsync/internal/digest"
	"github.com/pixelgardenlabs/pgsync/internal/subpath"
)

// NodeKind classifies a VFS node.
type NodeKind int

const (
	NodeFolder NodeKind = iota
	NodeFile
	NodeSymlink
)

// FileValue is the per-file payload the VFS carries: the full remote file
// signature, size and ordered block hashes.
type FileValue struct {
	Size        uint64
	BlockHashes []digest.Bytes
}

// Node is one entry in the shadow tree.
type Node struct {
	Kind NodeKind

	Perms digest.PermSet // Folder, File

	// Folder
	Children map[string]*Node

	// File
	Value FileValue

	// Symlink
	Target string
}

func newFolder(perms digest.PermSet) *Node {
	return &Node{Kind: NodeFolder, Perms: perms, Children: make(map[string]*Node)}
}

// VFS is a rooted tree shadowing one mapping's remote destination.
type VFS struct {
	mu   sync.RWMutex
	root *Node
}

// New creates an empty VFS: a single root Folder.
func New() *VFS {
	return &VFS{root: newFolder(0)}
}

// Resolve walks from root along sub, returning the node reached or nil if
// any intermediate segment is missing or not a Folder.
func (v *VFS) Resolve(sub subpath.SubPath) *Node {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return resolveLocked(v.root, sub)
}

func resolveLocked(root *Node, sub subpath.SubPath) *Node {
	cur := root
	for _, seg := range sub {
		if cur.Kind != NodeFolder {
			return nil
		}
		next, ok := cur.Children[seg]
		if !ok {
			return nil
		}
		cur = next
	}
	return cur
}

// FileSignature returns the (size, blockHashes) value of the File node at
// sub, if any is present and is a File.
func (v *VFS) FileSignature(sub subpath.SubPath) (FileValue, bool) {
	n := v.Resolve(sub)
	if n == nil || n.Kind != NodeFile {
		return FileValue{}, false
	}
	return n.Value, true
}

// Apply mutates the tree according to the action's semantics. Apply must
// only be called after the equivalent message has been written to the
// remote (send-before-apply); Apply itself never fails.
func (v *VFS) Apply(a action.Action) {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch a.Kind {
	case action.Remove:
		v.removeLocked(a.Sub)
	case action.PutDir:
		v.putDirLocked(a.Sub, a.Perms)
	case action.PutFile:
		v.putFileLocked(a.Sub, a.Perms)
	case action.PutLink:
		v.putLinkLocked(a.Sub, a.Target)
	case action.SetPerms:
		v.setPermsLocked(a.Sub, a.Perms)
	case action.WriteChunk:
		v.writeChunkLocked(a.Sub, a.BlockIndex, a.Hash)
	case action.SetSize:
		v.setSizeLocked(a.Sub, a.Size)
	}
}

// ensureParent walks/creates Folder nodes down to sub's parent, returning
// the parent Folder and the final segment. Intermediate folders are created
// with zero perms if missing — the planner always emits a PutDir for any
// folder before any child of it, so in practice this path is only exercised
// by tests that apply actions out of planner order.
func ensureParent(root *Node, sub subpath.SubPath) (*Node, string, bool) {
	parent, ok := sub.Parent()
	if !ok {
		return nil, "", false // sub is the root; callers handle this themselves.
	}
	cur := root
	for _, seg := range parent {
		if cur.Kind != NodeFolder {
			return nil, "", false
		}
		next, ok := cur.Children[seg]
		if !ok {
			next = newFolder(0)
			cur.Children[seg] = next
		}
		cur = next
	}
	if cur.Kind != NodeFolder {
		return nil, "", false
	}
	return cur, sub.Last(), true
}

func (v *VFS) removeLocked(sub subpath.SubPath) {
	if len(sub) == 0 {
		// Removing the root is not a valid planner operation; no-op.
		return
	}
	// Resolve rather than ensureParent: removing under a missing parent is a
	// no-op and must not create intermediate folders.
	parentSub, _ := sub.Parent()
	parent := resolveLocked(v.root, parentSub)
	if parent == nil || parent.Kind != NodeFolder {
		return
	}
	delete(parent.Children, sub.Last())
}

func (v *VFS) putDirLocked(sub subpath.SubPath, perms digest.PermSet) {
	if len(sub) == 0 {
		v.root.Perms = perms
		return
	}
	parent, last, ok := ensureParent(v.root, sub)
	if !ok {
		return
	}
	existing, present := parent.Children[last]
	if present && existing.Kind == NodeFolder {
		existing.Perms = perms
		return
	}
	parent.Children[last] = newFolder(perms)
}

func (v *VFS) putFileLocked(sub subpath.SubPath, perms digest.PermSet) {
	parent, last, ok := ensureParent(v.root, sub)
	if !ok {
		return
	}
	existing, present := parent.Children[last]
	if present && existing.Kind == NodeFile {
		existing.Perms = perms
		existing.Value = FileValue{}
		return
	}
	parent.Children[last] = &Node{Kind: NodeFile, Perms: perms}
}

func (v *VFS) putLinkLocked(sub subpath.SubPath, target string) {
	parent, last, ok := ensureParent(v.root, sub)
	if !ok {
		return
	}
	parent.Children[last] = &Node{Kind: NodeSymlink, Target: target}
}

func (v *VFS) setPermsLocked(sub subpath.SubPath, perms digest.PermSet) {
	if len(sub) == 0 {
		v.root.Perms = perms
		return
	}
	n := resolveLocked(v.root, sub)
	if n == nil {
		return
	}
	n.Perms = perms
}

func (v *VFS) writeChunkLocked(sub subpath.SubPath, blockIndex int, hash digest.Bytes) {
	n := resolveLocked(v.root, sub)
	if n == nil || n.Kind != NodeFile {
		return
	}
	if need := blockIndex + 1; len(n.Value.BlockHashes) < need {
		grown := make([]digest.Bytes, need)
		copy(grown, n.Value.BlockHashes)
		n.Value.BlockHashes = grown
	}
	n.Value.BlockHashes[blockIndex] = hash
}

func (v *VFS) setSizeLocked(sub subpath.SubPath, size uint64) {
	n := resolveLocked(v.root, sub)
	if n == nil || n.Kind != NodeFile {
		return
	}
	n.Value.Size = size
	if want := digest.NumBlocks(size); want < len(n.Value.BlockHashes) {
		n.Value.BlockHashes = n.Value.BlockHashes[:want]
	}
}

// Walk visits every (sub, node) pair in the tree in an unspecified order,
// root not included. Used by tests asserting eventual consistency and by
// the initial-scan application path.
func (v *VFS) Walk(f func(sub subpath.SubPath, n *Node)) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	walk(v.root, nil, f)
}

func walk(n *Node, prefix subpath.SubPath, f func(subpath.SubPath, *Node)) {
	if n.Kind != NodeFolder {
		return
	}
	for seg, child := range n.Children {
		sub := prefix.Join(seg)
		f(sub, child)
		if child.Kind == NodeFolder {
			walk(child, sub, f)
		}
	}
}
