package data

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/quiverml/quiver/pkg/plugin"
)

// MemoryElement holds its content directly. The configuration carries the
// bytes base64-encoded so element configs stay JSON-compatible.
type MemoryElement struct {
	bytes       []byte
	contentType string
}

// NewMemoryElement wraps raw bytes in an element.
func NewMemoryElement(b []byte, contentType string) *MemoryElement {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &MemoryElement{bytes: b, contentType: contentType}
}

func (e *MemoryElement) DefaultConfig() plugin.Config {
	return plugin.Config{
		"bytes":        "",
		"content_type": "application/octet-stream",
	}
}

func (e *MemoryElement) Configure(reg *plugin.Registry, cfg plugin.Config) error {
	encoded := cfg.StringOr("bytes", "")
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("decoding bytes: %w", err)
	}
	e.bytes = decoded
	e.contentType = cfg.StringOr("content_type", "application/octet-stream")
	return nil
}

func (e *MemoryElement) Config() plugin.Config {
	return plugin.Config{
		"bytes":        base64.StdEncoding.EncodeToString(e.bytes),
		"content_type": e.contentType,
	}
}

func (e *MemoryElement) UUID() string {
	return checksumID(e.bytes)
}

func (e *MemoryElement) ContentType() string {
	return e.contentType
}

func (e *MemoryElement) Bytes(ctx context.Context) ([]byte, error) {
	out := make([]byte, len(e.bytes))
	copy(out, e.bytes)
	return out, nil
}
