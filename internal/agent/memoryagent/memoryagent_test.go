package memoryagent

import (
	"context"
	"errors"
	"testing"

	"github.com/pixelgardenlabs/pgsync/internal/action"
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

func TestApplyUpdatesTreeAndRecordsAction(t *testing.T) {
	f := New()
	a := action.NewPutDir("dest", mustSub(t, "a"), 0o755)
	if err := f.Apply(context.Background(), a); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if n := f.Tree().Resolve(mustSub(t, "a")); n == nil {
		t.Fatal("Tree() not updated")
	}
	if len(f.Applied()) != 1 {
		t.Fatalf("Applied() = %v, want 1 entry", f.Applied())
	}
}

func TestApplyRespectsFailApply(t *testing.T) {
	f := New()
	f.SetFailApply(errors.New("boom"))
	err := f.Apply(context.Background(), action.NewPutDir("dest", mustSub(t, "a"), 0o755))
	if err == nil {
		t.Fatal("Apply with FailApply set = nil error, want error")
	}
	if len(f.Applied()) != 0 {
		t.Fatal("Applied() non-empty after failed Apply")
	}
}

func TestFullScanReflectsTree(t *testing.T) {
	f := New()
	ctx := context.Background()
	_ = f.Apply(ctx, action.NewPutDir("dest", mustSub(t, "a"), 0o755))
	_ = f.Apply(ctx, action.NewPutFile("dest", mustSub(t, "a/f"), 0o644))

	entries, err := f.FullScan(ctx, "dest")
	if err != nil {
		t.Fatalf("FullScan: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("FullScan = %v, want 2 entries", entries)
	}
}
