package descriptor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/quiverml/quiver/pkg/plugin"
)

// FileElement persists its vector as a JSON file under a configured
// directory, one file per descriptor UUID.
type FileElement struct {
	uuid    string
	saveDir string
}

func (e *FileElement) DefaultConfig() plugin.Config {
	return plugin.Config{
		"uuid":     "",
		"save_dir": "",
	}
}

func (e *FileElement) Configure(reg *plugin.Registry, cfg plugin.Config) error {
	e.uuid = cfg.StringOr("uuid", "")
	if e.uuid == "" {
		return fmt.Errorf("descriptor element requires a uuid")
	}
	e.saveDir = cfg.StringOr("save_dir", "")
	if e.saveDir == "" {
		return fmt.Errorf("file descriptor element requires a save_dir")
	}
	return nil
}

func (e *FileElement) Config() plugin.Config {
	return plugin.Config{
		"uuid":     e.uuid,
		"save_dir": e.saveDir,
	}
}

func (e *FileElement) UUID() string {
	return e.uuid
}

func (e *FileElement) path() string {
	return filepath.Join(e.saveDir, e.uuid+".json")
}

func (e *FileElement) Vector() ([]float64, bool) {
	b, err := os.ReadFile(e.path())
	if err != nil {
		return nil, false
	}
	var v []float64
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, false
	}
	return v, true
}

func (e *FileElement) SetVector(v []float64) error {
	if err := os.MkdirAll(e.saveDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", e.saveDir, err)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := os.WriteFile(e.path(), b, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", e.path(), err)
	}
	return nil
}
