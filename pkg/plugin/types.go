package plugin

import (
	"reflect"
)

// Config is a JSON-compatible configuration tree. Values are limited to the
// types produced by encoding/json and gopkg.in/yaml.v3 unmarshaling: bool,
// float64, int, string, nil, []interface{} and map[string]interface{}.
type Config map[string]interface{}

// TypeField is the selector key naming the chosen implementation inside a
// pluggable slot.
const TypeField = "type"

// Pluggable is the configurable contract every implementation satisfies.
//
// DefaultConfig reports every constructor parameter with its default value.
// Configure applies a configuration that has already been merged over the
// defaults; implementations validate required parameters here and resolve any
// nested pluggable slots against the supplied registry. Config reports the
// instance's current parameters in the same shape Configure accepts, so that
// FromConfig(ToConfig(x)) reproduces x.
type Pluggable interface {
	DefaultConfig() Config
	Configure(reg *Registry, cfg Config) error
	Config() Config
}

// Provider constructs instances of one named implementation.
type Provider struct {
	// Name identifies the implementation, unique within its interface.
	Name string

	// New returns a new unconfigured instance.
	New func() Pluggable

	// Usable, when non-nil, reports whether the implementation's runtime
	// dependencies are satisfied. Implementations returning an error are
	// filtered out of the registry with a warning.
	Usable func() error
}

// Interface describes one abstract capability that implementations satisfy.
// Interfaces are immutable once registered; one exists per capability.
type Interface struct {
	// Name identifies the interface, e.g. "descriptor-set".
	Name string

	// Type is the Go interface type every implementation's product must
	// satisfy. Candidates failing this structural check are filtered out.
	Type reflect.Type

	// PathVar names an environment variable holding an
	// os.PathListSeparator-delimited list of shared-object module paths to
	// load in addition to the statically registered providers. Empty
	// disables external module loading for this interface.
	PathVar string

	// ExportSymbol names the module-level symbol external modules use to
	// explicitly export providers for this interface. An explicit export
	// takes precedence over the module's generic Providers symbol.
	ExportSymbol string
}

// GenericExportSymbol is the fallback symbol consulted in an external module
// when the interface-specific export symbol is absent. Providers found under
// it are filtered by interface satisfaction.
const GenericExportSymbol = "Providers"

// InterfaceFor builds the reflect.Type descriptor for a Go interface type T.
// Usage: plugin.InterfaceFor[descriptorset.Set]().
func InterfaceFor[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
