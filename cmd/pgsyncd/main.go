// Command pgsyncd is the thin binary wiring configuration, logging, the
// filesystem watcher, the remote agent transport, and the sync orchestrator
// together. It owns spawning and tearing down the
// remote agent subprocess; everything else is the orchestrator's job.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/pixelgardenlabs/pgsync/internal/agent/jsonagent"
	"github.com/pixelgardenlabs/pgsync/internal/config"
	"github.com/pixelgardenlabs/pgsync/internal/orchestrator"
	"github.com/pixelgardenlabs/pgsync/internal/plog"
	"github.com/pixelgardenlabs/pgsync/internal/skip"
	"github.com/pixelgardenlabs/pgsync/internal/util"
	"github.com/pixelgardenlabs/pgsync/internal/watcher/fsnotifywatcher"
	"github.com/pixelgardenlabs/pgsync/internal/watcher/manualwatcher"
)

const appName = "pgsyncd"

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func init() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage of %s (version %s):\n", appName, version)
		fmt.Fprintf(flag.CommandLine.Output(), "Continuously mirrors local directory trees to a remote agent.\n\n")
		flag.PrintDefaults()
	}
}

func main() {
	configDir := flag.String("config", ".", "Directory containing pgsync.config.json.")
	once := flag.Bool("once", false, "Run a single initial-scan sync pass against every mapping, then exit.")
	quiet := flag.Bool("quiet", false, "Suppress informational logging; only warnings and errors are printed.")
	versionFlag := flag.Bool("version", false, "Print the version and exit.")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("%s version %s\n", appName, version)
		return
	}

	plog.SetQuiet(*quiet)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		plog.Info("received shutdown signal")
		cancel()
	}()

	if err := run(ctx, *configDir, *once); err != nil {
		plog.Error(appName+" exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configDir string, runOnce bool) error {
	cfg, err := config.Load(configDir)
	if err != nil {
		return fmt.Errorf("pgsyncd: load config: %w", err)
	}
	if len(cfg.Mappings) == 0 {
		return fmt.Errorf("pgsyncd: no mappings configured in %s/%s", configDir, config.FileName)
	}
	plog.SetLevelName(cfg.LogLevel)

	ap, rwc, err := spawnAgent(cfg.Agent.Command)
	if err != nil {
		return err
	}
	client := jsonagent.NewClient(rwc, jsonagent.Codec(cfg.Agent.Codec))

	mappings := make([]orchestrator.Mapping, len(cfg.Mappings))
	for i, m := range cfg.Mappings {
		root, err := util.ExpandPath(m.LocalRoot)
		if err != nil {
			return fmt.Errorf("pgsyncd: expand %s: %w", m.LocalRoot, err)
		}
		mappings[i] = orchestrator.Mapping{
			Root: root,
			Dest: m.RemoteDest,
			Skip: skipPredicate(cfg),
		}
	}

	// In -once mode, every mapping's IDLE/SYNCING loop runs independently
	// (orchestrator.Run fans one goroutine out per mapping); onComplete
	// fires once per mapping's first pass, so done closes only once all
	// of them have reported at least one completed pass.
	var completed atomic.Int32
	var doneOnce sync.Once
	done := make(chan struct{})
	onComplete := func() {
		plog.Info("sync pass complete")
		if runOnce && int(completed.Add(1)) >= len(cfg.Mappings) {
			doneOnce.Do(func() { close(done) })
		}
	}

	orch := orchestrator.New(client, mappings, cfg.DebounceInterval(), cfg.Performance.MemoryBudgetBytes, onComplete)
	orch.SetScannerConcurrency(cfg.Performance.ScannerConcurrency)

	for i, m := range mappings {
		cb := orch.Callback(i)
		if runOnce {
			mw := manualwatcher.New(cb)
			orch.AttachWatcher(mw)
			continue
		}
		fw, err := fsnotifywatcher.New(m.Root, cb)
		if err != nil {
			return fmt.Errorf("pgsyncd: watch %s: %w", m.Root, err)
		}
		if err := fw.Start(ctx); err != nil {
			return fmt.Errorf("pgsyncd: start watcher for %s: %w", m.Root, err)
		}
		orch.AttachWatcher(fw)
	}

	runCtx := ctx
	var runCancel context.CancelFunc
	if runOnce {
		runCtx, runCancel = context.WithCancel(ctx)
		defer runCancel()
		go func() {
			select {
			case <-done:
				runCancel()
			case <-ctx.Done():
			}
		}()
	}

	runErr := orch.Run(runCtx)

	// orch.Close tears down every attached watcher and, via the Agent
	// interface, the RPC client itself (which in turn closes the
	// subprocess's stdio pipes) — closing client separately would double-close them.
	closeErr := orch.Close()
	if werr := ap.wait(); werr != nil {
		plog.Warn("agent subprocess exited with error", "error", werr)
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("pgsyncd: sync loop: %w", runErr)
	}
	if closeErr != nil {
		return fmt.Errorf("pgsyncd: shutdown: %w", closeErr)
	}
	return nil
}

// skipPredicate builds the configured skip.Predicate once per run; every
// mapping shares the same policy.
func skipPredicate(cfg config.Config) skip.Predicate {
	switch cfg.SkipPolicy {
	case config.SkipDotGit:
		return skip.DotGit
	case config.SkipGitignore:
		p := skip.NewPatterns(cfg.SkipPatterns)
		return p.Skip
	default:
		return skip.None
	}
}
