package descriptor

import (
	"fmt"

	"github.com/quiverml/quiver/pkg/plugin"
)

// Factory stamps out descriptor elements of one configured backend type.
// Its configuration is the element's pluggable-slot tree with the uuid left
// blank; New fills the uuid in per element.
type Factory struct {
	reg      *plugin.Registry
	elemType string
	params   plugin.Config
}

// NewFactory builds a factory from an element slot configuration.
func NewFactory(reg *plugin.Registry, cfg plugin.Config) (*Factory, error) {
	elemType, _ := cfg[plugin.TypeField].(string)
	if elemType == "" {
		return nil, fmt.Errorf("descriptor factory: configuration is missing the %q selector", plugin.TypeField)
	}

	entry, err := reg.Get(InterfaceName)
	if err != nil {
		return nil, err
	}
	if _, ok := entry.Lookup(elemType); !ok {
		return nil, &plugin.UnknownImplementationError{Interface: InterfaceName, Name: elemType}
	}

	params, _ := plugin.AsConfig(cfg[elemType])
	return &Factory{
		reg:      reg,
		elemType: elemType,
		params:   params.Clone(),
	}, nil
}

// DefaultFactoryConfig is the factory configuration used when none is given:
// in-memory elements.
func DefaultFactoryConfig() plugin.Config {
	return plugin.DefaultSlot(InterfaceName, "memory")
}

// New allocates an element for the given descriptor UUID.
func (f *Factory) New(uuid string) (Element, error) {
	params := f.params.Clone()
	if params == nil {
		params = plugin.Config{}
	}
	params["uuid"] = uuid

	return plugin.Resolve[Element](f.reg, InterfaceName, plugin.Config{
		plugin.TypeField: f.elemType,
		f.elemType:       params,
	})
}

// Config returns the factory's slot configuration with the uuid blanked.
func (f *Factory) Config() plugin.Config {
	params := f.params.Clone()
	if params == nil {
		params = plugin.Config{}
	}
	params["uuid"] = ""
	return plugin.Config{
		plugin.TypeField: f.elemType,
		f.elemType:       params,
	}
}
