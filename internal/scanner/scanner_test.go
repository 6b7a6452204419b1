package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pixelgardenlabs/pgsync/internal/digest"
	"github.com/pixelgardenlabs/pgsync/internal/subpath"
)

func mustSub(t *testing.T, rel string) subpath.SubPath {
	t.Helper()
	s, err := subpath.Parse(rel)
	if err != nil {
		t.Fatalf("subpath.Parse(%q): %v", rel, err)
	}
	return s
}

func TestScanMixedPresenceAbsence(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(root, "dir"), 0o755); err != nil {
		t.Fatal(err)
	}

	buffers := NewBufferPool()
	results, err := Scan(context.Background(), root, []subpath.SubPath{
		mustSub(t, "a.txt"),
		mustSub(t, "dir"),
		mustSub(t, "missing.txt"),
	}, buffers, 0)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	byPath := map[string]Result{}
	for _, r := range results {
		byPath[r.Sub.String()] = r
	}

	if r := byPath["a.txt"]; !r.Present || r.Sig.Kind != digest.KindFile {
		t.Fatalf("a.txt = %+v, want present file", r)
	}
	if r := byPath["dir"]; !r.Present || r.Sig.Kind != digest.KindDir {
		t.Fatalf("dir = %+v, want present dir", r)
	}
	if r := byPath["missing.txt"]; r.Present {
		t.Fatalf("missing.txt = %+v, want absent", r)
	}
}

func TestScanBufferPoolReturnsBuffers(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 20; i++ {
		name := filepath.Join(root, string(rune('a'+i))+".txt")
		if err := os.WriteFile(name, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	subs := make([]subpath.SubPath, 0, 20)
	for i := 0; i < 20; i++ {
		subs = append(subs, mustSub(t, string(rune('a'+i))+".txt"))
	}

	buffers := NewBufferPool()
	if _, err := Scan(context.Background(), root, subs, buffers, 4); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if inUse := buffers.InUse(); inUse != 0 {
		t.Fatalf("buffers.InUse() after Scan = %d, want 0", inUse)
	}
}

func TestScanCaseMismatchTreatedAsAbsent(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "Foo.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	buffers := NewBufferPool()
	results, err := Scan(context.Background(), root, []subpath.SubPath{mustSub(t, "foo.txt")}, buffers, 0)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(results) != 1 || results[0].Present {
		t.Fatalf("results = %+v, want single absent result (case mismatch)", results)
	}
}
