// Package compress implements reversible gzip+base64 compression for slot
// entry content. Content below the size threshold passes through untouched
// with algorithm "none" metadata so callers can treat every entry uniformly.
package compress

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"fmt"
	"io"
	"sync/atomic"
	"time"
)

// DefaultThreshold is the minimum content size, in bytes, worth compressing.
const DefaultThreshold = 1024

const (
	AlgorithmGzip = "gzip"
	AlgorithmNone = "none"
)

// Metadata describes how a piece of content was compressed. It is persisted
// alongside the content and must round-trip through JSON unchanged.
type Metadata struct {
	IsCompressed     bool       `json:"is_compressed"`
	Algorithm        string     `json:"algorithm"`
	OriginalSize     int        `json:"original_size"`
	CompressedSize   int        `json:"compressed_size"`
	CompressionRatio float64    `json:"compression_ratio"`
	CompressedAt     *time.Time `json:"compressed_at,omitempty"`
}

// Compressor compresses content above a configurable size threshold. The
// threshold is read by storage operations while the config watcher updates
// it, so it is stored atomically.
type Compressor struct {
	threshold atomic.Int64
}

// NewCompressor creates a Compressor. threshold <= 0 selects DefaultThreshold.
func NewCompressor(threshold int) *Compressor {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	c := &Compressor{}
	c.threshold.Store(int64(threshold))
	return c
}

// Threshold returns the current compression threshold in bytes.
func (c *Compressor) Threshold() int { return int(c.threshold.Load()) }

// SetThreshold updates the threshold. Used by config hot reload.
func (c *Compressor) SetThreshold(threshold int) {
	if threshold > 0 {
		c.threshold.Store(int64(threshold))
	}
}

// ShouldCompress reports whether text is large enough to be worth compressing.
func (c *Compressor) ShouldCompress(text string) bool {
	return int64(len(text)) >= c.threshold.Load()
}

// CompressContent gzips and base64-encodes text. Content below the threshold
// is returned as-is with algorithm "none" metadata.
func (c *Compressor) CompressContent(text string) (string, *Metadata, error) {
	if !c.ShouldCompress(text) {
		return text, &Metadata{
			IsCompressed:     false,
			Algorithm:        AlgorithmNone,
			OriginalSize:     len(text),
			CompressedSize:   len(text),
			CompressionRatio: 1.0,
		}, nil
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(text)); err != nil {
		return "", nil, fmt.Errorf("gzip write: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", nil, fmt.Errorf("gzip close: %w", err)
	}

	encoded := base64.StdEncoding.EncodeToString(buf.Bytes())
	now := time.Now().UTC()

	meta := &Metadata{
		IsCompressed:   true,
		Algorithm:      AlgorithmGzip,
		OriginalSize:   len(text),
		CompressedSize: len(encoded),
		CompressedAt:   &now,
	}
	if meta.OriginalSize > 0 {
		meta.CompressionRatio = float64(meta.CompressedSize) / float64(meta.OriginalSize)
	}

	return encoded, meta, nil
}

// DecompressContent reverses CompressContent. Passthrough metadata returns
// the payload unchanged. A malformed base64 or gzip payload is an error.
func (c *Compressor) DecompressContent(payload string, meta *Metadata) (string, error) {
	if meta == nil || !meta.IsCompressed || meta.Algorithm == AlgorithmNone {
		return payload, nil
	}
	if meta.Algorithm != AlgorithmGzip {
		return "", fmt.Errorf("unsupported compression algorithm %q", meta.Algorithm)
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("decode base64: %w", err)
	}

	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("gzip reader: %w", err)
	}
	defer zr.Close()

	text, err := io.ReadAll(zr)
	if err != nil {
		return "", fmt.Errorf("gzip read: %w", err)
	}

	return string(text), nil
}
