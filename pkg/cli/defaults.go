package cli

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/quiverml/quiver/pkg/plugin"

	// Pull in the built-in implementations so defaults can be generated
	// without a running server.
	_ "github.com/quiverml/quiver/pkg/data"
	_ "github.com/quiverml/quiver/pkg/descriptorset"
	_ "github.com/quiverml/quiver/pkg/generator"
	_ "github.com/quiverml/quiver/pkg/nnindex"
)

func newDefaultsCommand() *Command {
	cmd := &Command{
		Name:        "defaults",
		Description: "Print the default configuration tree for an interface",
		Flags:       flag.NewFlagSet("defaults", flag.ExitOnError),
		Run:         runDefaults,
	}

	cmd.Flags.String("interface", "", "Interface name (e.g. nn-index)")
	cmd.Flags.String("type", "", "Preselect an implementation in the emitted tree")

	return cmd
}

func runDefaults(args []string) error {
	cmd := newDefaultsCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	ifaceName := cmd.Flags.Lookup("interface").Value.String()
	impl := cmd.Flags.Lookup("type").Value.String()

	reg := plugin.Default()
	if ifaceName == "" {
		fmt.Println("Available interfaces:")
		for _, name := range reg.Interfaces() {
			fmt.Printf("  - %s\n", name)
		}
		return fmt.Errorf("interface is required")
	}

	cfg, err := reg.MakeDefaultConfig(ifaceName)
	if err != nil {
		return err
	}
	if impl != "" {
		entry, err := reg.Get(ifaceName)
		if err != nil {
			return err
		}
		if _, ok := entry.Lookup(impl); !ok {
			return fmt.Errorf("unknown implementation %q for interface %q", impl, ifaceName)
		}
		cfg[plugin.TypeField] = impl
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(cfg)
}
