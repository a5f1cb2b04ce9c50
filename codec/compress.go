// Package codec provides compressing decorators over a netkit.Codec. The
// engine is codec-agnostic, so compression belongs on the codec boundary
// (C3), not on the cache tiers beneath it.
package codec

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/golang/snappy"

	"github.com/corexis/netkit"
)

// Algorithm identifies a supported compression scheme. The encoded byte
// stream is prefixed with algorithm+1 (0 means "not compressed") so mixed
// histories stay decodable after a codec's algorithm changes.
type Algorithm byte

const (
	None Algorithm = iota
	Gzip
	Brotli
	Snappy
)

func (a Algorithm) String() string {
	switch a {
	case Gzip:
		return "gzip"
	case Brotli:
		return "brotli"
	case Snappy:
		return "snappy"
	default:
		return "none"
	}
}

// Compressing wraps an inner netkit.Codec, compressing its encoded bytes
// and decompressing before handing them to the inner Decode.
type Compressing struct {
	Inner     netkit.Codec
	Algorithm Algorithm
	// Level applies to Brotli and Gzip; ignored for Snappy.
	Level int
}

// NewCompressing wraps inner with the given compression algorithm at its
// default level.
func NewCompressing(inner netkit.Codec, algo Algorithm) *Compressing {
	level := 6
	if algo == Brotli {
		level = 6
	}
	return &Compressing{Inner: inner, Algorithm: algo, Level: level}
}

func (c *Compressing) Encode(v any) ([]byte, error) {
	raw, err := c.Inner.Encode(v)
	if err != nil {
		return nil, err
	}
	compressed, err := c.compress(raw)
	if err != nil {
		netkit.GetLogger().Warn("compression failed, storing uncompressed", "algorithm", c.Algorithm, "error", err)
		out := make([]byte, len(raw)+1)
		out[0] = byte(None)
		copy(out[1:], raw)
		return out, nil
	}
	out := make([]byte, len(compressed)+1)
	out[0] = byte(c.Algorithm + 1)
	copy(out[1:], compressed)
	return out, nil
}

func (c *Compressing) Decode(data []byte, target any) error {
	if len(data) == 0 {
		return nil
	}
	marker := data[0]
	payload := data[1:]
	if marker == 0 {
		return c.Inner.Decode(payload, target)
	}
	raw, err := decompressWith(Algorithm(marker-1), payload)
	if err != nil {
		return fmt.Errorf("codec: decompression failed: %w", err)
	}
	return c.Inner.Decode(raw, target)
}

func (c *Compressing) ContentType() string { return c.Inner.ContentType() }

func (c *Compressing) compress(data []byte) ([]byte, error) {
	switch c.Algorithm {
	case Gzip:
		var buf bytes.Buffer
		w, err := gzip.NewWriterLevel(&buf, c.Level)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(data); err != nil {
			_ = w.Close()
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case Brotli:
		var buf bytes.Buffer
		w := brotli.NewWriterLevel(&buf, c.Level)
		if _, err := w.Write(data); err != nil {
			_ = w.Close()
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case Snappy:
		return snappy.Encode(nil, data), nil
	default:
		return data, nil
	}
}

func decompressWith(algo Algorithm, data []byte) ([]byte, error) {
	switch algo {
	case Gzip:
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	case Brotli:
		return io.ReadAll(brotli.NewReader(bytes.NewReader(data)))
	case Snappy:
		return snappy.Decode(nil, data)
	default:
		return data, nil
	}
}

var _ netkit.Codec = (*Compressing)(nil)
