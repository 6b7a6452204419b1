package jsonagent

import (
	"bufio"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/pixelgardenlabs/pgsync/internal/action"
	"github.com/pixelgardenlabs/pgsync/internal/agent"
	"github.com/pixelgardenlabs/pgsync/internal/digest"
	"github.com/pixelgardenlabs/pgsync/internal/subpath"
)

// Client is a concrete agent.Agent implementation framing newline-delimited
// JSON envelopes over a duplex byte stream — typically a spawned remote
// agent subprocess's stdio pipes.
type Client struct {
	rwc   io.ReadWriteCloser
	enc   *json.Encoder
	codec Codec

	writeMu sync.Mutex // serializes envelope writes; the pipe has one writer

	mu        sync.Mutex
	cond      *sync.Cond
	nextSeq   uint64
	ackedUpTo uint64
	pending   map[uint64]chan []scanEntryWire // seq -> reply channel, for FullScan

	readErr error
	closed  bool
}

// NewClient wraps rwc in a jsonagent.Client. codec selects the optional
// compression applied to WriteChunk payload bytes before they are
// base64-encoded on the wire; CodecNone disables compression.
func NewClient(rwc io.ReadWriteCloser, codec Codec) *Client {
	c := &Client{
		rwc:     rwc,
		enc:     json.NewEncoder(rwc),
		codec:   codec,
		pending: make(map[uint64]chan []scanEntryWire),
	}
	c.cond = sync.NewCond(&c.mu)
	go c.readLoop()
	return c
}

func (c *Client) readLoop() {
	scanner := bufio.NewScanner(c.rwc)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	for scanner.Scan() {
		var env envelope
		if err := json.Unmarshal(scanner.Bytes(), &env); err != nil {
			c.failAll(fmt.Errorf("jsonagent: decode envelope: %w: %w", agent.ErrRPC, err))
			return
		}
		c.handleInbound(env)
	}
	if err := scanner.Err(); err != nil {
		c.failAll(fmt.Errorf("jsonagent: read: %w: %w", agent.ErrRPC, err))
		return
	}
	c.failAll(fmt.Errorf("jsonagent: remote closed connection: %w: %w", agent.ErrRPC, io.ErrUnexpectedEOF))
}

func (c *Client) handleInbound(env envelope) {
	c.mu.Lock()
	if env.Ack != nil && *env.Ack > c.ackedUpTo {
		c.ackedUpTo = *env.Ack
	}
	if env.Kind == kindFullScan {
		if ch, ok := c.pending[env.Seq]; ok {
			delete(c.pending, env.Seq)
			c.mu.Unlock()
			ch <- env.Entries
			c.mu.Lock()
		}
	}
	c.cond.Broadcast()
	c.mu.Unlock()
}

func (c *Client) failAll(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.readErr = err
	for seq, ch := range c.pending {
		close(ch)
		delete(c.pending, seq)
	}
	c.cond.Broadcast()
}

func (c *Client) send(env envelope) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.enc.Encode(env)
}

func (c *Client) allocSeq() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextSeq++
	return c.nextSeq
}

// FullScan requests the remote's complete signature listing for root.
func (c *Client) FullScan(ctx context.Context, root string) ([]agent.ScanEntry, error) {
	seq := c.allocSeq()
	payload, err := json.Marshal(fullScanPayload{Root: root})
	if err != nil {
		return nil, fmt.Errorf("jsonagent: marshal full_scan payload: %w", err)
	}

	replyCh := make(chan []scanEntryWire, 1)
	c.mu.Lock()
	c.pending[seq] = replyCh
	c.mu.Unlock()

	if err := c.send(envelope{Seq: seq, Kind: kindFullScan, Payload: payload}); err != nil {
		return nil, fmt.Errorf("jsonagent: send full_scan: %w: %w", agent.ErrRPC, err)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case entries, ok := <-replyCh:
		if !ok {
			return nil, c.closeErr()
		}
		return decodeEntries(entries)
	}
}

func (c *Client) closeErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readErr != nil {
		return c.readErr
	}
	return fmt.Errorf("jsonagent: closed: %w", agent.ErrRPC)
}

// Apply sends one action as its corresponding envelope. It returns once the
// write has completed; acknowledgement may still be outstanding.
func (c *Client) Apply(ctx context.Context, a action.Action) error {
	seq := c.allocSeq()
	env, err := c.encodeAction(seq, a)
	if err != nil {
		return err
	}
	if err := c.send(env); err != nil {
		return fmt.Errorf("jsonagent: send %s: %w: %w", a.Kind, agent.ErrRPC, err)
	}
	return nil
}

func (c *Client) encodeAction(seq uint64, a action.Action) (envelope, error) {
	sub := []string(a.Sub)
	switch a.Kind {
	case action.Remove:
		p, err := json.Marshal(removePayload{Dest: a.Dest, Sub: sub})
		return envelope{Seq: seq, Kind: kindRemove, Payload: p}, err
	case action.PutDir:
		p, err := json.Marshal(putDirPayload{Dest: a.Dest, Sub: sub, Perms: a.Perms})
		return envelope{Seq: seq, Kind: kindPutDir, Payload: p}, err
	case action.PutFile:
		p, err := json.Marshal(putFilePayload{Dest: a.Dest, Sub: sub, Perms: a.Perms})
		return envelope{Seq: seq, Kind: kindPutFile, Payload: p}, err
	case action.PutLink:
		p, err := json.Marshal(putLinkPayload{Dest: a.Dest, Sub: sub, Target: a.Target})
		return envelope{Seq: seq, Kind: kindPutLink, Payload: p}, err
	case action.SetPerms:
		p, err := json.Marshal(setPermsPayload{Dest: a.Dest, Sub: sub, Perms: a.Perms})
		return envelope{Seq: seq, Kind: kindSetPerms, Payload: p}, err
	case action.WriteChunk:
		data, err := c.codec.compress(a.Bytes)
		if err != nil {
			return envelope{}, fmt.Errorf("jsonagent: compress write_chunk: %w", err)
		}
		p, err := json.Marshal(writeChunkPayload{
			Dest: a.Dest, Sub: sub, BlockIndex: a.BlockIndex,
			Hash: hex.EncodeToString(a.Hash[:]), Codec: string(c.codec), Data: data,
		})
		return envelope{Seq: seq, Kind: kindWriteChunk, Payload: p}, err
	case action.SetSize:
		p, err := json.Marshal(setSizePayload{Dest: a.Dest, Sub: sub, Size: a.Size})
		return envelope{Seq: seq, Kind: kindSetSize, Payload: p}, err
	default:
		return envelope{}, fmt.Errorf("jsonagent: unknown action kind %v", a.Kind)
	}
}

// Drain blocks until every seq sent so far has been acknowledged.
func (c *Client) Drain(ctx context.Context) error {
	seq := c.allocSeq()
	if err := c.send(envelope{Seq: seq, Drain: true}); err != nil {
		return fmt.Errorf("jsonagent: send drain: %w: %w", agent.ErrRPC, err)
	}

	done := make(chan error, 1)
	go func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for c.ackedUpTo < seq-1 && c.readErr == nil {
			c.cond.Wait()
		}
		done <- c.readErr
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// Close tears down the underlying transport.
func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return c.rwc.Close()
}

func decodeEntries(wire []scanEntryWire) ([]agent.ScanEntry, error) {
	out := make([]agent.ScanEntry, 0, len(wire))
	for _, w := range wire {
		sig, err := decodeSignature(w)
		if err != nil {
			return nil, err
		}
		out = append(out, agent.ScanEntry{Sub: subpath.SubPath(w.Sub), Sig: sig})
	}
	return out, nil
}

func decodeSignature(w scanEntryWire) (digest.Signature, error) {
	switch w.Kind {
	case "dir":
		return digest.Dir(w.Perms), nil
	case "symlink":
		return digest.Symlink(w.Target), nil
	case "file":
		hashes := make([]digest.Bytes, 0, len(w.BlockHashes))
		for _, h := range w.BlockHashes {
			raw, err := hex.DecodeString(h)
			if err != nil {
				return digest.Signature{}, fmt.Errorf("jsonagent: decode block hash: %w", err)
			}
			var b digest.Bytes
			copy(b[:], raw)
			hashes = append(hashes, b)
		}
		return digest.File(w.Perms, hashes, w.Size), nil
	default:
		return digest.Signature{}, nil
	}
}
