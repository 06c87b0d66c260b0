package descriptor

import (
	"github.com/quiverml/quiver/pkg/plugin"
)

// InterfaceName is the registry name for the descriptor element interface.
const InterfaceName = "descriptor-element"

// Element is an identified feature vector. The vector may be unset for
// elements that have been allocated but not yet computed.
type Element interface {
	plugin.Pluggable

	UUID() string
	Vector() ([]float64, bool)
	SetVector(v []float64) error
}

func init() {
	plugin.MustRegisterInterface(plugin.Interface{
		Name:         InterfaceName,
		Type:         plugin.InterfaceFor[Element](),
		PathVar:      "QUIVER_DESCRIPTOR_ELEMENT_PATH",
		ExportSymbol: "DescriptorElementProviders",
	})
	plugin.MustRegister(InterfaceName, plugin.Provider{
		Name: "memory",
		New:  func() plugin.Pluggable { return &MemoryElement{} },
	})
	plugin.MustRegister(InterfaceName, plugin.Provider{
		Name: "file",
		New:  func() plugin.Pluggable { return &FileElement{} },
	})
}
