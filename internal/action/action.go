// Package action defines the Action tagged variant: the operations applied
// to the VFS and sent to the remote agent.
package action

import (
	"github.com/pixelgardenlabs/pgsync/internal/digest"
	"github.com/pixelgardenlabs/pgsync/internal/subpath"
)

// Kind classifies which Action variant is populated.
type Kind int

const (
	Remove Kind = iota
	PutDir
	PutFile
	PutLink
	SetPerms
	WriteChunk
	SetSize
)

func (k Kind) String() string {
	switch k {
	case Remove:
		return "remove"
	case PutDir:
		return "put_dir"
	case PutFile:
		return "put_file"
	case PutLink:
		return "put_link"
	case SetPerms:
		return "set_perms"
	case WriteChunk:
		return "write_chunk"
	case SetSize:
		return "set_size"
	default:
		return "unknown_action_kind"
	}
}

// Action is one operation applied to a mapping's VFS and mirrored to the
// remote agent. Only the fields relevant to Kind are meaningful.
type Action struct {
	Kind Kind

	// Dest is the mapping's remote destination root (RelPath).
	Dest string
	// Sub is the subpath within Dest this action targets.
	Sub subpath.SubPath

	Perms digest.PermSet // PutDir, PutFile, SetPerms
	Target string        // PutLink

	BlockIndex int          // WriteChunk
	Hash       digest.Bytes // WriteChunk
	Bytes      []byte       // WriteChunk

	Size uint64 // SetSize
}

// NewRemove builds a Remove action.
func NewRemove(dest string, sub subpath.SubPath) Action {
	return Action{Kind: Remove, Dest: dest, Sub: sub}
}

// NewPutDir builds a PutDir action.
func NewPutDir(dest string, sub subpath.SubPath, perms digest.PermSet) Action {
	return Action{Kind: PutDir, Dest: dest, Sub: sub, Perms: perms}
}

// NewPutFile builds a PutFile action.
func NewPutFile(dest string, sub subpath.SubPath, perms digest.PermSet) Action {
	return Action{Kind: PutFile, Dest: dest, Sub: sub, Perms: perms}
}

// NewPutLink builds a PutLink action.
func NewPutLink(dest string, sub subpath.SubPath, target string) Action {
	return Action{Kind: PutLink, Dest: dest, Sub: sub, Target: target}
}

// NewSetPerms builds a SetPerms action.
func NewSetPerms(dest string, sub subpath.SubPath, perms digest.PermSet) Action {
	return Action{Kind: SetPerms, Dest: dest, Sub: sub, Perms: perms}
}

// NewWriteChunk builds a WriteChunk action. bytes must be ≤ digest.BlockSize.
func NewWriteChunk(dest string, sub subpath.SubPath, blockIndex int, hash digest.Bytes, data []byte) Action {
	return Action{Kind: WriteChunk, Dest: dest, Sub: sub, BlockIndex: blockIndex, Hash: hash, Bytes: data}
}

// NewSetSize builds a SetSize action.
func NewSetSize(dest string, sub subpath.SubPath, size uint64) Action {
	return Action{Kind: SetSize, Dest: dest, Sub: sub, Size: size}
}
