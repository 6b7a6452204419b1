package jsonagent

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
)

// Codec selects optional compression for WriteChunk payload bytes before
// they are base64-encoded into the JSON envelope. A small or already
// well-compressed block rarely benefits, so CodecNone is the default. Both
// sides must agree on the codec; it travels in each write_chunk payload.
type Codec string

const (
	CodecNone Codec = "none"
	CodecZstd Codec = "zstd"
	CodecGzip Codec = "gzip"
)

func (c Codec) compress(data []byte) ([]byte, error) {
	switch c {
	case "", CodecNone:
		return data, nil
	case CodecZstd:
		var buf bytes.Buffer
		w, err := zstd.NewWriter(&buf, zstd.WithEncoderLevel(zstd.SpeedFastest))
		if err != nil {
			return nil, fmt.Errorf("jsonagent: new zstd writer: %w", err)
		}
		if _, err := w.Write(data); err != nil {
			w.Close()
			return nil, fmt.Errorf("jsonagent: zstd compress: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("jsonagent: zstd close: %w", err)
		}
		return buf.Bytes(), nil
	case CodecGzip:
		var buf bytes.Buffer
		w, err := pgzip.NewWriterLevel(&buf, pgzip.BestSpeed)
		if err != nil {
			return nil, fmt.Errorf("jsonagent: new pgzip writer: %w", err)
		}
		if _, err := w.Write(data); err != nil {
			w.Close()
			return nil, fmt.Errorf("jsonagent: pgzip compress: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("jsonagent: pgzip close: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("jsonagent: unknown codec %q", c)
	}
}

func (c Codec) decompress(data []byte) ([]byte, error) {
	switch c {
	case "", CodecNone:
		return data, nil
	case CodecZstd:
		r, err := zstd.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("jsonagent: new zstd reader: %w", err)
		}
		defer r.Close()
		return io.ReadAll(r)
	case CodecGzip:
		r, err := pgzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("jsonagent: new pgzip reader: %w", err)
		}
		defer r.Close()
		return io.ReadAll(r)
	default:
		return nil, fmt.Errorf("jsonagent: unknown codec %q", c)
	}
}
