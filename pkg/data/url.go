package data

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/quiverml/quiver/pkg/plugin"
)

// URLElement fetches its content over HTTP.
type URLElement struct {
	url         string
	contentType string
	timeout     time.Duration

	client *http.Client
}

func (e *URLElement) DefaultConfig() plugin.Config {
	return plugin.Config{
		"url":          "",
		"content_type": "application/octet-stream",
		"timeout":      "30s",
	}
}

func (e *URLElement) Configure(reg *plugin.Registry, cfg plugin.Config) error {
	e.url = cfg.StringOr("url", "")
	if e.url == "" {
		return fmt.Errorf("url element requires a url")
	}
	e.contentType = cfg.StringOr("content_type", "application/octet-stream")
	e.timeout = cfg.DurationOr("timeout", 30*time.Second)
	e.client = &http.Client{Timeout: e.timeout}
	return nil
}

func (e *URLElement) Config() plugin.Config {
	return plugin.Config{
		"url":          e.url,
		"content_type": e.contentType,
		"timeout":      e.timeout.String(),
	}
}

func (e *URLElement) UUID() string {
	return checksumID([]byte("url:" + e.url))
}

func (e *URLElement) ContentType() string {
	return e.contentType
}

func (e *URLElement) Bytes(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", e.url, err)
	}

	client := e.client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", e.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: unexpected status %d", e.url, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
