package cli

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"sort"
)

func newPluginsCommand() *Command {
	cmd := &Command{
		Name:        "plugins",
		Description: "List pluggable interfaces and their implementations",
		Flags:       flag.NewFlagSet("plugins", flag.ExitOnError),
		Run:         runPlugins,
	}

	cmd.Flags.String("registry", "http://localhost:8080", "Quiver server URL")
	cmd.Flags.String("interface", "", "Show only the named interface")

	return cmd
}

// interfaceSummary mirrors the server's plugin listing payload.
type interfaceSummary struct {
	Name            string   `json:"name"`
	PathVar         string   `json:"path_var"`
	Implementations []string `json:"implementations"`
}

func runPlugins(args []string) error {
	cmd := newPluginsCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	registry := cmd.Flags.Lookup("registry").Value.String()
	only := cmd.Flags.Lookup("interface").Value.String()

	resp, err := http.Get(registry + "/api/v1/plugins")
	if err != nil {
		return fmt.Errorf("failed to list plugins: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %s", resp.Status)
	}

	var payload struct {
		Interfaces []interfaceSummary `json:"interfaces"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("failed to decode plugin listing: %w", err)
	}

	sort.Slice(payload.Interfaces, func(i, j int) bool {
		return payload.Interfaces[i].Name < payload.Interfaces[j].Name
	})

	for _, iface := range payload.Interfaces {
		if only != "" && iface.Name != only {
			continue
		}
		fmt.Printf("%s (%d implementations)\n", iface.Name, len(iface.Implementations))
		if iface.PathVar != "" {
			fmt.Printf("  module path: $%s\n", iface.PathVar)
		}
		for _, impl := range iface.Implementations {
			fmt.Printf("  - %s\n", impl)
		}
	}
	if only != "" {
		for _, iface := range payload.Interfaces {
			if iface.Name == only {
				return nil
			}
		}
		return fmt.Errorf("unknown interface: %s", only)
	}
	return nil
}
