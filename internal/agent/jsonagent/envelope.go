// Package jsonagent implements agent.Agent over a newline-delimited JSON
// envelope protocol carried on any io.ReadWriteCloser — the duplex pipe to
// a spawned remote agent subprocess.
package jsonagent

import (
	"encoding/json"

	"github.com/pixelgardenlabs/pgsync/internal/digest"
)

// envelope is the wire frame: exactly one JSON object per line. Requests
// set Seq/Kind/Payload; FullScan responses additionally set Entries;
// acknowledgements set Ack; drain requests set Seq and Drain.
type envelope struct {
	Seq     uint64          `json:"seq,omitempty"`
	Kind    string          `json:"kind,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Entries []scanEntryWire `json:"entries,omitempty"`
	Ack     *uint64         `json:"ack,omitempty"`
	Drain   bool            `json:"drain,omitempty"`
}

type scanEntryWire struct {
	Sub         []string       `json:"sub"`
	Kind        string         `json:"kind"`
	Perms       digest.PermSet `json:"perms,omitempty"`
	Target      string         `json:"target,omitempty"`
	Size        uint64         `json:"size,omitempty"`
	BlockHashes []string       `json:"blockHashes,omitempty"`
}

const (
	kindFullScan   = "full_scan"
	kindRemove     = "remove"
	kindPutDir     = "put_dir"
	kindPutFile    = "put_file"
	kindPutLink    = "put_link"
	kindSetPerms   = "set_perms"
	kindWriteChunk = "write_chunk"
	kindSetSize    = "set_size"
)

type removePayload struct {
	Dest string   `json:"dest"`
	Sub  []string `json:"sub"`
}

type putDirPayload struct {
	Dest  string         `json:"dest"`
	Sub   []string       `json:"sub"`
	Perms digest.PermSet `json:"perms"`
}

type putFilePayload struct {
	Dest  string         `json:"dest"`
	Sub   []string       `json:"sub"`
	Perms digest.PermSet `json:"perms"`
}

type putLinkPayload struct {
	Dest   string   `json:"dest"`
	Sub    []string `json:"sub"`
	Target string   `json:"target"`
}

type setPermsPayload struct {
	Dest  string         `json:"dest"`
	Sub   []string       `json:"sub"`
	Perms digest.PermSet `json:"perms"`
}

type writeChunkPayload struct {
	Dest       string   `json:"dest"`
	Sub        []string `json:"sub"`
	BlockIndex int      `json:"blockIndex"`
	Hash       string   `json:"hash"`
	Codec      string   `json:"codec"`
	Data       []byte   `json:"data"` // base64 via encoding/json; optionally codec-compressed first
}

type setSizePayload struct {
	Dest string   `json:"dest"`
	Sub  []string `json:"sub"`
	Size uint64   `json:"size"`
}

type fullScanPayload struct {
	Root string `json:"root"`
}
