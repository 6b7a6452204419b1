package metasync

import (
	"context"
	"testing"

	"github.com/pixelgardenlabs/pgsync/internal/action"
	"github.com/pixelgardenlabs/pgsync/internal/agent"
	"github.com/pixelgardenlabs/pgsync/internal/digest"
	"github.com/pixelgardenlabs/pgsync/internal/planner"
	"github.com/pixelgardenlabs/pgsync/internal/subpath"
	"github.com/pixelgardenlabs/pgsync/internal/vfs"
)

type fakeAgent struct {
	applied []action.Action
	drains  int
}

func (f *fakeAgent) FullScan(ctx context.Context, root string) ([]agent.ScanEntry, error) {
	return nil, nil
}
func (f *fakeAgent) Apply(ctx context.Context, a action.Action) error {
	f.applied = append(f.applied, a)
	return nil
}
func (f *fakeAgent) Drain(ctx context.Context) error {
	f.drains++
	return nil
}
func (f *fakeAgent) Close() error { return nil }

func mustSub(t *testing.T, rel string) subpath.SubPath {
	t.Helper()
	s, err := subpath.Parse(rel)
	if err != nil {
		t.Fatalf("subpath.Parse(%q): %v", rel, err)
	}
	return s
}

func TestApplyNewFolderSendsPutDirAndUpdatesVFS(t *testing.T) {
	tree := vfs.New()
	fa := &fakeAgent{}

	diffs := []planner.Diff{
		{
			Sub:   mustSub(t, "a"),
			Local: planner.LocalEntry{Sub: mustSub(t, "a"), Sig: digest.Dir(0o755), Present: true},
		},
	}
	if err := Apply(context.Background(), fa, tree, "dest", diffs); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(fa.applied) != 1 || fa.applied[0].Kind != action.PutDir {
		t.Fatalf("applied = %+v, want single PutDir", fa.applied)
	}
	n := tree.Resolve(mustSub(t, "a"))
	if n == nil || n.Kind != vfs.NodeFolder {
		t.Fatalf("vfs after Apply = %+v, want Folder node", n)
	}
	if fa.drains == 0 {
		t.Fatal("expected at least one Drain call at end of Apply")
	}
}

func TestApplyDeletionEmitsRemove(t *testing.T) {
	tree := vfs.New()
	tree.Apply(action.NewPutDir("dest", mustSub(t, "foo"), 0o755))
	fa := &fakeAgent{}

	diffs := []planner.Diff{
		{
			Sub:    mustSub(t, "foo"),
			Local:  planner.LocalEntry{Sub: mustSub(t, "foo"), Present: false},
			Remote: planner.RemoteEntry{Present: true, Kind: vfs.NodeFolder, Perms: 0o755},
		},
	}
	if err := Apply(context.Background(), fa, tree, "dest", diffs); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(fa.applied) != 1 || fa.applied[0].Kind != action.Remove {
		t.Fatalf("applied = %+v, want single Remove", fa.applied)
	}
	if n := tree.Resolve(mustSub(t, "foo")); n != nil {
		t.Fatalf("vfs after Remove = %+v, want nil", n)
	}
}

func TestApplyFileVsFileSameContentEmitsNothing(t *testing.T) {
	tree := vfs.New()
	tree.Apply(action.NewPutFile("dest", mustSub(t, "f"), 0o644))
	fa := &fakeAgent{}

	diffs := []planner.Diff{
		{
			Sub:    mustSub(t, "f"),
			Local:  planner.LocalEntry{Sub: mustSub(t, "f"), Sig: digest.File(0o644, nil, 0), Present: true},
			Remote: planner.RemoteEntry{Present: true, Kind: vfs.NodeFile, Perms: 0o644},
		},
	}
	if err := Apply(context.Background(), fa, tree, "dest", diffs); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(fa.applied) != 0 {
		t.Fatalf("applied = %+v, want no metadata actions (content is stream's job)", fa.applied)
	}
}
