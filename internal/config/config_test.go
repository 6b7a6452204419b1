package config

import (
	"testing"
)

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SkipPolicy != SkipDotGit {
		t.Fatalf("SkipPolicy = %v, want default SkipDotGit", cfg.SkipPolicy)
	}
	if cfg.DebounceMs != 100 {
		t.Fatalf("DebounceMs = %d, want 100", cfg.DebounceMs)
	}
}

func TestWriteThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	cfg := NewDefault()
	cfg.Mappings = []Mapping{{LocalRoot: "/src", RemoteDest: "/dst"}}
	cfg.DebounceMs = 250

	if err := Write(dir, cfg); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Mappings) != 1 || got.Mappings[0].LocalRoot != "/src" {
		t.Fatalf("Mappings = %+v, want one mapping for /src", got.Mappings)
	}
	if got.DebounceMs != 250 {
		t.Fatalf("DebounceMs = %d, want 250", got.DebounceMs)
	}
}
