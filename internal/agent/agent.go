// Package agent defines the Agent interface: the only contract the core
// sync engine depends on for talking to a remote mutation executor.
// Concrete wire encodings live in subpackages (jsonagent, memoryagent).
package agent

import (
	"context"
	"errors"

	"github.com/pixelgardenlabs/pgsync/internal/action"
	"github.com/pixelgardenlabs/pgsync/internal/digest"
	"github.com/pixelgardenlabs/pgsync/internal/subpath"
)

// ErrRPC is the sentinel wrapped around any transport-level failure
// (framing error, EOF, remote-reported error) an Agent implementation
// encounters. The orchestrator treats errors.Is(err, ErrRPC) as fatal,
// unlike per-path or per-batch scan/stream failures.
var ErrRPC = errors.New("agent: rpc failure")

// ScanEntry is one (subpath, signature) pair returned by FullScan.
type ScanEntry struct {
	Sub subpath.SubPath
	Sig digest.Signature
}

// Agent is the remote mutation executor's contract: apply metadata/content
// actions and report the remote's current tree state. Implementations may
// acknowledge Apply asynchronously; Drain is the barrier that waits for
// every action sent so far to be acknowledged.
type Agent interface {
	// FullScan requests the remote's complete (subpath, signature) listing
	// for root, used to rebuild the VFS on startup.
	FullScan(ctx context.Context, root string) ([]ScanEntry, error)

	// Apply sends one action to the remote. It must return only after the
	// action has been written to the transport; acknowledgement of remote
	// execution may still be outstanding.
	Apply(ctx context.Context, a action.Action) error

	// Drain blocks until every Apply sent so far has been acknowledged.
	Drain(ctx context.Context) error

	// Close tears down the underlying transport.
	Close() error
}
