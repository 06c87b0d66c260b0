package cli

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
)

func newPipelineCommand() *Command {
	cmd := &Command{
		Name:        "pipeline",
		Description: "Show the server's live pipeline configuration",
		Flags:       flag.NewFlagSet("pipeline", flag.ExitOnError),
		Run:         runPipeline,
	}

	cmd.Flags.String("registry", "http://localhost:8080", "Quiver server URL")

	return cmd
}

func runPipeline(args []string) error {
	cmd := newPipelineCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	registry := cmd.Flags.Lookup("registry").Value.String()

	resp, err := http.Get(registry + "/api/v1/pipeline")
	if err != nil {
		return fmt.Errorf("failed to fetch pipeline: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return readError(resp)
	}

	var def map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&def); err != nil {
		return fmt.Errorf("failed to decode pipeline: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(def)
}
