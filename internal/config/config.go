// Package config loads and generates the JSON configuration file describing
// mappings, skip policy, debounce interval, scanner concurrency, and the
// remote agent command: a documented struct tree marshaled with
// encoding/json, a NewDefault/Load/Write trio, and a fixed config file
// name.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pixelgardenlabs/pgsync/internal/plog"
)

// FileName is the name of the configuration file, looked up in the
// directory passed to Load (the daemon's -config flag, "." by default).
const FileName = "pgsync.config.json"

// Mapping describes one local tree mirrored to one remote destination root.
type Mapping struct {
	LocalRoot  string `json:"localRoot"`
	RemoteDest string `json:"remoteDest"`
}

// SkipPolicy selects which skip predicate a mapping uses.
type SkipPolicy string

const (
	SkipNone      SkipPolicy = "none"
	SkipDotGit    SkipPolicy = "dotgit"
	SkipGitignore SkipPolicy = "gitignore"
)

// PerformanceConfig tunes scanner and streamer concurrency.
type PerformanceConfig struct {
	ScannerConcurrency int `json:"scannerConcurrency" comment:"Max goroutines computing signatures concurrently. The scan buffer pool (6 buffers of 4MiB) bounds memory regardless of this value."`
	MemoryBudgetBytes  int64 `json:"memoryBudgetBytes" comment:"Cap on in-flight WriteChunk payload bytes across all mappings."`
}

// AgentConfig describes how to spawn the remote agent subprocess.
type AgentConfig struct {
	Command []string `json:"command" comment:"argv of the remote agent subprocess, e.g. [\"ssh\", \"host\", \"pgsync-agent\"]."`
	Codec   string   `json:"codec" comment:"WriteChunk wire codec: none, zstd, or gzip."`
}

// Config is the root configuration document.
type Config struct {
	LogLevel        string            `json:"logLevel"`
	Mappings        []Mapping         `json:"mappings"`
	SkipPolicy      SkipPolicy        `json:"skipPolicy"`
	SkipPatterns    []string          `json:"skipPatterns,omitempty" comment:"Used only when skipPolicy is gitignore."`
	DebounceMs      int               `json:"debounceMs"`
	Performance     PerformanceConfig `json:"performance"`
	Agent           AgentConfig       `json:"agent"`
}

// DebounceInterval returns the configured debounce interval as a duration.
func (c Config) DebounceInterval() time.Duration {
	return time.Duration(c.DebounceMs) * time.Millisecond
}

// NewDefault returns a Config with sensible defaults. Mappings is left
// empty so the daemon refuses to run until the user configures at least
// one.
func NewDefault() Config {
	return Config{
		LogLevel:   "info",
		Mappings:   []Mapping{},
		SkipPolicy: SkipDotGit,
		DebounceMs: 100,
		Performance: PerformanceConfig{
			ScannerConcurrency: 8,
			MemoryBudgetBytes:  64 * 1024 * 1024,
		},
		Agent: AgentConfig{
			Command: []string{},
			Codec:   "none",
		},
	}
}

// Load reads FileName from dir. If the file doesn't exist, it returns
// NewDefault() without error.
func Load(dir string) (Config, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return Config{}, fmt.Errorf("config: resolve dir %s: %w", dir, err)
	}
	path := filepath.Join(absDir, FileName)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewDefault(), nil
		}
		return Config{}, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	plog.Info("loading configuration", "path", path)
	cfg := NewDefault()
	if err := json.NewDecoder(f).Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Write marshals cfg as indented JSON into dir/FileName.
func Write(dir string, cfg Config) error {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("config: resolve dir %s: %w", dir, err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	path := filepath.Join(absDir, FileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
