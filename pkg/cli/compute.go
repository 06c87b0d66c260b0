package cli

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
)

func newComputeCommand() *Command {
	cmd := &Command{
		Name:        "compute",
		Description: "Compute and store a descriptor for a local file",
		Flags:       flag.NewFlagSet("compute", flag.ExitOnError),
		Run:         runCompute,
	}

	cmd.Flags.String("file", "", "Path of the file to describe")
	cmd.Flags.String("content-type", "", "MIME type (inferred from the extension if empty)")
	cmd.Flags.String("registry", "http://localhost:8080", "Quiver server URL")

	return cmd
}

// fileSource reads a local file into the inline data-element tree the
// server accepts, so the server never needs access to the local filesystem.
func fileSource(path, contentType string) (map[string]interface{}, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(path))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return map[string]interface{}{
		"type": "memory",
		"memory": map[string]interface{}{
			"bytes":        base64.StdEncoding.EncodeToString(b),
			"content_type": contentType,
		},
	}, nil
}

func postJSON(url string, body interface{}) (*http.Response, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return http.Post(url, "application/json", bytes.NewReader(b))
}

func readError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	b, _ := io.ReadAll(resp.Body)
	if json.Unmarshal(b, &payload) == nil && payload.Error != "" {
		return fmt.Errorf("server returned %s: %s", resp.Status, payload.Error)
	}
	return fmt.Errorf("server returned %s", resp.Status)
}

func runCompute(args []string) error {
	cmd := newComputeCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	file := cmd.Flags.Lookup("file").Value.String()
	contentType := cmd.Flags.Lookup("content-type").Value.String()
	registry := cmd.Flags.Lookup("registry").Value.String()

	if file == "" {
		return fmt.Errorf("file is required")
	}

	source, err := fileSource(file, contentType)
	if err != nil {
		return err
	}

	resp, err := postJSON(registry+"/api/v1/descriptors", map[string]interface{}{"source": source})
	if err != nil {
		return fmt.Errorf("failed to compute descriptor: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return readError(resp)
	}

	var created struct {
		UUID      string `json:"uuid"`
		Dimension int    `json:"dimension"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	fmt.Printf("Stored descriptor %s (%d dimensions) for %s\n", created.UUID, created.Dimension, file)
	return nil
}
