// Package digest defines the content-addressing primitives shared by the
// signature scanner, the VFS, and the file-content streamer: the fixed block
// size, the opaque digest type, and the per-entry Signature variant.
package digest

import "fmt"

// BlockSize is the fixed block size (B) used to chunk regular-file content
// for hashing and transfer. Changing it is a wire-contract break between
// this engine and the remote agent.
const BlockSize = 4 * 1024 * 1024

// Size is the byte length of a Bytes digest. MD5 is the canonical choice;
// a stronger hash may be substituted only if both sides of the wire agree.
const Size = 16

// Bytes is an opaque fixed-length content digest. Equality is bytewise.
type Bytes [Size]byte

// Equal reports whether two digests are bytewise identical.
func (b Bytes) Equal(other Bytes) bool {
	return b == other
}

// String renders the digest as hex, for logging.
func (b Bytes) String() string {
	return fmt.Sprintf("%x", [Size]byte(b))
}

// PermSet is a POSIX-style permission bitmask.
type PermSet uint32

// Kind classifies which variant a Signature holds.
type Kind int

const (
	// KindAbsent represents the lack of a signature (path does not exist,
	// or its type is unsupported).
	KindAbsent Kind = iota
	KindFile
	KindDir
	KindSymlink
)

func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindFile:
		return "file"
	case KindDir:
		return "dir"
	case KindSymlink:
		return "symlink"
	default:
		return fmt.Sprintf("unknown_kind(%d)", int(k))
	}
}

// Signature is the synchronization-relevant fingerprint of one filesystem
// entry. The zero value is the Absent variant. Only the fields relevant to
// Kind are meaningful.
type Signature struct {
	Kind Kind

	// File
	Perms       PermSet
	BlockHashes []Bytes
	Size        uint64

	// Symlink
	Target string
}

// File constructs a File signature. len(blockHashes) must equal
// ceil(size/BlockSize) for size>0, and be empty for size==0.
func File(perms PermSet, blockHashes []Bytes, size uint64) Signature {
	return Signature{Kind: KindFile, Perms: perms, BlockHashes: blockHashes, Size: size}
}

// Dir constructs a Dir signature.
func Dir(perms PermSet) Signature {
	return Signature{Kind: KindDir, Perms: perms}
}

// Symlink constructs a Symlink signature. The target is stored verbatim.
func Symlink(target string) Signature {
	return Signature{Kind: KindSymlink, Target: target}
}

// IsAbsent reports whether this is the zero/Absent variant.
func (s Signature) IsAbsent() bool {
	return s.Kind == KindAbsent
}

// NumBlocks returns ceil(Size/BlockSize), the expected length of
// BlockHashes for a File signature.
func NumBlocks(size uint64) int {
	if size == 0 {
		return 0
	}
	return int((size + BlockSize - 1) / BlockSize)
}

// Equal reports whether two signatures describe the same synchronization
// state. Two Absent signatures are always equal.
func Equal(a, b Signature) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindAbsent:
		return true
	case KindDir:
		return a.Perms == b.Perms
	case KindSymlink:
		return a.Target == b.Target
	case KindFile:
		if a.Perms != b.Perms || a.Size != b.Size || len(a.BlockHashes) != len(b.BlockHashes) {
			return false
		}
		for i := range a.BlockHashes {
			if !a.BlockHashes[i].Equal(b.BlockHashes[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
