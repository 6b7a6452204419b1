package digest

import (
	"crypto/md5"
	"os"
	"path/filepath"
	"testing"
)

func lstatOrFatal(t *testing.T, path string) os.FileInfo {
	t.Helper()
	info, err := os.Lstat(path)
	if err != nil {
		t.Fatalf("Lstat(%q): %v", path, err)
	}
	return info
}

func TestComputeEmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.txt")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	buf := make([]byte, BlockSize)
	sig, ok := Compute(path, buf, lstatOrFatal(t, path))
	if !ok {
		t.Fatalf("Compute(empty file) ok=false, want true")
	}
	if sig.Kind != KindFile || sig.Size != 0 || len(sig.BlockHashes) != 0 {
		t.Fatalf("Compute(empty file) = %+v, want File(_, [], 0)", sig)
	}
}

func TestComputeSmallFileSingleBlock(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	content := []byte("x")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	buf := make([]byte, BlockSize)
	sig, ok := Compute(path, buf, lstatOrFatal(t, path))
	if !ok {
		t.Fatalf("Compute ok=false, want true")
	}
	want := Bytes(md5.Sum(content))
	if sig.Kind != KindFile || sig.Size != 1 || len(sig.BlockHashes) != 1 || sig.BlockHashes[0] != want {
		t.Fatalf("Compute(%q) = %+v, want File(_, [%x], 1)", content, sig, want)
	}
}

func TestComputeMultiBlockFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.txt")

	block0 := make([]byte, BlockSize)
	for i := range block0 {
		block0[i] = byte(i)
	}
	block1 := []byte("tail-bytes-shorter-than-a-block")
	full := append(append([]byte{}, block0...), block1...)
	if err := os.WriteFile(path, full, 0o644); err != nil {
		t.Fatal(err)
	}

	buf := make([]byte, BlockSize)
	sig, ok := Compute(path, buf, lstatOrFatal(t, path))
	if !ok {
		t.Fatalf("Compute ok=false, want true")
	}
	if sig.Kind != KindFile {
		t.Fatalf("Kind = %v, want KindFile", sig.Kind)
	}
	if sig.Size != uint64(len(full)) {
		t.Fatalf("Size = %d, want %d", sig.Size, len(full))
	}
	if len(sig.BlockHashes) != NumBlocks(sig.Size) {
		t.Fatalf("len(BlockHashes) = %d, want %d", len(sig.BlockHashes), NumBlocks(sig.Size))
	}
	wantH0 := Bytes(md5.Sum(block0))
	wantH1 := Bytes(md5.Sum(block1))
	if sig.BlockHashes[0] != wantH0 {
		t.Fatalf("BlockHashes[0] = %x, want %x", sig.BlockHashes[0], wantH0)
	}
	if sig.BlockHashes[1] != wantH1 {
		t.Fatalf("BlockHashes[1] = %x, want %x", sig.BlockHashes[1], wantH1)
	}
}

func TestComputeDirectory(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	buf := make([]byte, BlockSize)
	sig, ok := Compute(sub, buf, lstatOrFatal(t, sub))
	if !ok {
		t.Fatalf("Compute(dir) ok=false, want true")
	}
	if sig.Kind != KindDir {
		t.Fatalf("Kind = %v, want KindDir", sig.Kind)
	}
}

func TestComputeSymlink(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "target.txt")
	if err := os.WriteFile(target, []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(dir, "link")
	if err := os.Symlink(target, link); err != nil {
		t.Fatal(err)
	}

	buf := make([]byte, BlockSize)
	sig, ok := Compute(link, buf, lstatOrFatal(t, link))
	if !ok {
		t.Fatalf("Compute(symlink) ok=false, want true")
	}
	if sig.Kind != KindSymlink || sig.Target != target {
		t.Fatalf("Compute(symlink) = %+v, want Symlink(%q)", sig, target)
	}
}

func TestComputeMissingFileIsAbsent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gone.txt")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	info := lstatOrFatal(t, path)
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}

	buf := make([]byte, BlockSize)
	_, ok := Compute(path, buf, info)
	if ok {
		t.Fatalf("Compute(removed file) ok=true, want false")
	}
}

func TestEqualSignatures(t *testing.T) {
	a := File(0o644, []Bytes{{1, 2, 3}}, 10)
	b := File(0o644, []Bytes{{1, 2, 3}}, 10)
	c := File(0o644, []Bytes{{1, 2, 4}}, 10)
	if !Equal(a, b) {
		t.Fatalf("Equal(a, b) = false, want true")
	}
	if Equal(a, c) {
		t.Fatalf("Equal(a, c) = true, want false")
	}
	if !Equal(Signature{}, Signature{}) {
		t.Fatalf("Equal(Absent, Absent) = false, want true")
	}
}
