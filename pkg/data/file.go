package data

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/quiverml/quiver/pkg/plugin"
)

// FileElement reads its content from a local file. The content type is
// inferred from the file extension unless configured explicitly.
type FileElement struct {
	path        string
	contentType string
}

// NewFileElement builds an element for a local path.
func NewFileElement(path string) *FileElement {
	e := &FileElement{path: path}
	e.contentType = inferContentType(path, "")
	return e
}

func (e *FileElement) DefaultConfig() plugin.Config {
	return plugin.Config{
		"path":         "",
		"content_type": "",
	}
}

func (e *FileElement) Configure(reg *plugin.Registry, cfg plugin.Config) error {
	e.path = cfg.StringOr("path", "")
	if e.path == "" {
		return fmt.Errorf("file element requires a path")
	}
	e.contentType = inferContentType(e.path, cfg.StringOr("content_type", ""))
	return nil
}

func (e *FileElement) Config() plugin.Config {
	return plugin.Config{
		"path":         e.path,
		"content_type": e.contentType,
	}
}

func (e *FileElement) UUID() string {
	return checksumID([]byte("file:" + e.path))
}

func (e *FileElement) ContentType() string {
	return e.contentType
}

func (e *FileElement) Bytes(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(e.path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", e.path, err)
	}
	return b, nil
}

func inferContentType(path, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
