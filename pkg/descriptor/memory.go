package descriptor

import (
	"fmt"

	"github.com/quiverml/quiver/pkg/plugin"
)

// MemoryElement keeps its vector in process memory. The configuration
// carries identity only; vectors are data, not configuration.
type MemoryElement struct {
	uuid   string
	vector []float64
	set    bool
}

// NewMemoryElement allocates an element with no vector yet.
func NewMemoryElement(uuid string) *MemoryElement {
	return &MemoryElement{uuid: uuid}
}

// NewMemoryElementWithVector allocates an element holding v.
func NewMemoryElementWithVector(uuid string, v []float64) *MemoryElement {
	e := &MemoryElement{uuid: uuid}
	e.SetVector(v)
	return e
}

func (e *MemoryElement) DefaultConfig() plugin.Config {
	return plugin.Config{"uuid": ""}
}

func (e *MemoryElement) Configure(reg *plugin.Registry, cfg plugin.Config) error {
	e.uuid = cfg.StringOr("uuid", "")
	if e.uuid == "" {
		return fmt.Errorf("descriptor element requires a uuid")
	}
	return nil
}

func (e *MemoryElement) Config() plugin.Config {
	return plugin.Config{"uuid": e.uuid}
}

func (e *MemoryElement) UUID() string {
	return e.uuid
}

func (e *MemoryElement) Vector() ([]float64, bool) {
	if !e.set {
		return nil, false
	}
	out := make([]float64, len(e.vector))
	copy(out, e.vector)
	return out, true
}

func (e *MemoryElement) SetVector(v []float64) error {
	e.vector = make([]float64, len(v))
	copy(e.vector, v)
	e.set = true
	return nil
}
