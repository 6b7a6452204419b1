package action

import (
	"testing"

	"github.com/pixelgardenlabs/pgsync/internal/digest"
	"github.com/pixelgardenlabs/pgsync/internal/subpath"
)

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		Remove:     "remove",
		PutDir:     "put_dir",
		PutFile:    "put_file",
		PutLink:    "put_link",
		SetPerms:   "set_perms",
		WriteChunk: "write_chunk",
		SetSize:    "set_size",
		Kind(999):  "unknown_action_kind",
	}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}

func TestConstructors(t *testing.T) {
	sub := subpath.SubPath{"a", "b"}

	if a := NewRemove("dest", sub); a.Kind != Remove || !a.Sub.Equal(sub) || a.Dest != "dest" {
		t.Errorf("NewRemove = %+v", a)
	}
	if a := NewPutDir("dest", sub, 0o755); a.Kind != PutDir || a.Perms != 0o755 {
		t.Errorf("NewPutDir = %+v", a)
	}
	if a := NewPutFile("dest", sub, 0o644); a.Kind != PutFile || a.Perms != 0o644 {
		t.Errorf("NewPutFile = %+v", a)
	}
	if a := NewPutLink("dest", sub, "/target"); a.Kind != PutLink || a.Target != "/target" {
		t.Errorf("NewPutLink = %+v", a)
	}
	if a := NewSetPerms("dest", sub, 0o600); a.Kind != SetPerms || a.Perms != 0o600 {
		t.Errorf("NewSetPerms = %+v", a)
	}
	hash := digest.Bytes{1, 2, 3}
	data := []byte("payload")
	if a := NewWriteChunk("dest", sub, 2, hash, data); a.Kind != WriteChunk || a.BlockIndex != 2 || a.Hash != hash || string(a.Bytes) != "payload" {
		t.Errorf("NewWriteChunk = %+v", a)
	}
	if a := NewSetSize("dest", sub, 4096); a.Kind != SetSize || a.Size != 4096 {
		t.Errorf("NewSetSize = %+v", a)
	}
}
