package cli

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"strconv"
)

func newQueryCommand() *Command {
	cmd := &Command{
		Name:        "query",
		Description: "Find the nearest stored descriptors to a local file",
		Flags:       flag.NewFlagSet("query", flag.ExitOnError),
		Run:         runQuery,
	}

	cmd.Flags.String("file", "", "Path of the query file")
	cmd.Flags.String("content-type", "", "MIME type (inferred from the extension if empty)")
	cmd.Flags.Int("k", 10, "Number of neighbors to return")
	cmd.Flags.String("registry", "http://localhost:8080", "Quiver server URL")
	cmd.Flags.Bool("build", false, "Rebuild the index from the set before querying")

	return cmd
}

func runQuery(args []string) error {
	cmd := newQueryCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	file := cmd.Flags.Lookup("file").Value.String()
	contentType := cmd.Flags.Lookup("content-type").Value.String()
	registry := cmd.Flags.Lookup("registry").Value.String()
	build := cmd.Flags.Lookup("build").Value.String() == "true"
	k, err := strconv.Atoi(cmd.Flags.Lookup("k").Value.String())
	if err != nil || k < 1 {
		return fmt.Errorf("k must be a positive integer")
	}

	if file == "" {
		return fmt.Errorf("file is required")
	}

	if build {
		resp, err := postJSON(registry+"/api/v1/nn/build", nil)
		if err != nil {
			return fmt.Errorf("failed to build index: %w", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("index build returned %s", resp.Status)
		}
	}

	source, err := fileSource(file, contentType)
	if err != nil {
		return err
	}

	resp, err := postJSON(registry+"/api/v1/nn", map[string]interface{}{
		"source": source,
		"k":      k,
	})
	if err != nil {
		return fmt.Errorf("failed to query neighbors: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return readError(resp)
	}

	var result struct {
		Neighbors []struct {
			UUID     string  `json:"uuid"`
			Distance float64 `json:"distance"`
		} `json:"neighbors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if len(result.Neighbors) == 0 {
		fmt.Println("No neighbors found")
		return nil
	}
	for i, n := range result.Neighbors {
		fmt.Printf("%2d. %s  distance=%.6f\n", i+1, n.UUID, n.Distance)
	}
	return nil
}
