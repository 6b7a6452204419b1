package vfs

import (
	"testing"

	"github.com/pixelgardenlabs/pgsync/internal/action"
	"github.com/pixelgardenlabs/pgsync/internal/digest"
	"github.com/pixelgardenlabs/pgsync/internal/subpath"
)

func sub(t *testing.T, rel string) subpath.SubPath {
	t.Helper()
	s, err := subpath.Parse(rel)
	if err != nil {
		t.Fatalf("subpath.Parse(%q): %v", rel, err)
	}
	return s
}

func TestResolveMissingReturnsNil(t *testing.T) {
	v := New()
	if n := v.Resolve(sub(t, "a/b/c")); n != nil {
		t.Fatalf("Resolve on empty tree = %v, want nil", n)
	}
}

func TestPutDirThenResolve(t *testing.T) {
	v := New()
	v.Apply(action.NewPutDir("dest", sub(t, "a"), 0o755))
	v.Apply(action.NewPutDir("dest", sub(t, "a/b"), 0o700))

	n := v.Resolve(sub(t, "a/b"))
	if n == nil {
		t.Fatal("Resolve(a/b) = nil, want node")
	}
	if n.Kind != NodeFolder {
		t.Fatalf("Kind = %v, want NodeFolder", n.Kind)
	}
	if n.Perms != 0o700 {
		t.Fatalf("Perms = %o, want 0700", n.Perms)
	}
}

func TestPutFileWriteChunkSetSize(t *testing.T) {
	v := New()
	v.Apply(action.NewPutDir("dest", sub(t, "dir"), 0o755))
	v.Apply(action.NewPutFile("dest", sub(t, "dir/f.txt"), 0o644))

	h0 := digest.Bytes{1}
	h1 := digest.Bytes{2}
	v.Apply(action.NewWriteChunk("dest", sub(t, "dir/f.txt"), 0, h0, nil))
	v.Apply(action.NewWriteChunk("dest", sub(t, "dir/f.txt"), 1, h1, nil))
	v.Apply(action.NewSetSize("dest", sub(t, "dir/f.txt"), uint64(digest.BlockSize+10)))

	val, ok := v.FileSignature(sub(t, "dir/f.txt"))
	if !ok {
		t.Fatal("FileSignature: not found")
	}
	if val.Size != uint64(digest.BlockSize+10) {
		t.Fatalf("Size = %d, want %d", val.Size, digest.BlockSize+10)
	}
	if len(val.BlockHashes) != 2 {
		t.Fatalf("len(BlockHashes) = %d, want 2", len(val.BlockHashes))
	}
	if !val.BlockHashes[0].Equal(h0) || !val.BlockHashes[1].Equal(h1) {
		t.Fatal("block hashes not preserved in order")
	}
}

func TestSetSizeTruncatesBlockHashes(t *testing.T) {
	v := New()
	v.Apply(action.NewPutFile("dest", sub(t, "f"), 0o644))
	v.Apply(action.NewWriteChunk("dest", sub(t, "f"), 0, digest.Bytes{1}, nil))
	v.Apply(action.NewWriteChunk("dest", sub(t, "f"), 1, digest.Bytes{2}, nil))
	v.Apply(action.NewWriteChunk("dest", sub(t, "f"), 2, digest.Bytes{3}, nil))

	// Shrink to a size that only needs one block.
	v.Apply(action.NewSetSize("dest", sub(t, "f"), 10))

	val, _ := v.FileSignature(sub(t, "f"))
	if len(val.BlockHashes) != 1 {
		t.Fatalf("len(BlockHashes) after shrink = %d, want 1", len(val.BlockHashes))
	}
}

func TestRemoveDeletesSubtree(t *testing.T) {
	v := New()
	v.Apply(action.NewPutDir("dest", sub(t, "a"), 0o755))
	v.Apply(action.NewPutFile("dest", sub(t, "a/f"), 0o644))
	v.Apply(action.NewRemove("dest", sub(t, "a")))

	if n := v.Resolve(sub(t, "a")); n != nil {
		t.Fatalf("Resolve(a) after Remove = %v, want nil", n)
	}
	if n := v.Resolve(sub(t, "a/f")); n != nil {
		t.Fatalf("Resolve(a/f) after removing parent = %v, want nil", n)
	}
}

func TestPutFileReplacesPriorFolderOfSameName(t *testing.T) {
	v := New()
	v.Apply(action.NewPutDir("dest", sub(t, "x"), 0o755))
	v.Apply(action.NewPutFile("dest", sub(t, "x"), 0o644))

	n := v.Resolve(sub(t, "x"))
	if n == nil || n.Kind != NodeFile {
		t.Fatalf("Resolve(x) after PutFile-over-dir = %+v, want File node", n)
	}
}

func TestPutLinkSetsTarget(t *testing.T) {
	v := New()
	v.Apply(action.NewPutLink("dest", sub(t, "link"), "/etc/hosts"))

	n := v.Resolve(sub(t, "link"))
	if n == nil || n.Kind != NodeSymlink {
		t.Fatalf("Resolve(link) = %+v, want Symlink node", n)
	}
	if n.Target != "/etc/hosts" {
		t.Fatalf("Target = %q, want /etc/hosts", n.Target)
	}
}

func TestSetPermsOnRoot(t *testing.T) {
	v := New()
	v.Apply(action.NewSetPerms("dest", subpath.SubPath{}, 0o700))
	n := v.Resolve(subpath.SubPath{})
	if n == nil || n.Perms != 0o700 {
		t.Fatalf("root perms = %+v, want 0700", n)
	}
}

func TestWalkVisitsAllNodes(t *testing.T) {
	v := New()
	v.Apply(action.NewPutDir("dest", sub(t, "a"), 0o755))
	v.Apply(action.NewPutFile("dest", sub(t, "a/f1"), 0o644))
	v.Apply(action.NewPutFile("dest", sub(t, "a/f2"), 0o644))

	seen := map[string]bool{}
	v.Walk(func(s subpath.SubPath, n *Node) {
		seen[s.String()] = true
	})
	for _, want := range []string{"a", "a/f1", "a/f2"} {
		if !seen[want] {
			t.Errorf("Walk did not visit %q", want)
		}
	}
}
