package descriptorset

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/quiverml/quiver/pkg/descriptor"
	"github.com/quiverml/quiver/pkg/plugin"
)

// InterfaceName is the registry name for the descriptor set interface.
const InterfaceName = "descriptor-set"

// Set is a keyed store of descriptor vectors addressed by UUID.
type Set interface {
	plugin.Pluggable

	Add(ctx context.Context, elems ...descriptor.Element) error
	Get(ctx context.Context, uuid string) (descriptor.Element, error)
	GetMany(ctx context.Context, uuids []string) ([]descriptor.Element, error)
	Has(ctx context.Context, uuid string) (bool, error)
	Remove(ctx context.Context, uuid string) error
	Count(ctx context.Context) (int, error)
	UUIDs(ctx context.Context) ([]string, error)
	Clear(ctx context.Context) error
}

// NotFoundError reports a UUID with no stored descriptor.
type NotFoundError struct {
	UUID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no descriptor stored for uuid %q", e.UUID)
}

func init() {
	plugin.MustRegisterInterface(plugin.Interface{
		Name:         InterfaceName,
		Type:         plugin.InterfaceFor[Set](),
		PathVar:      "QUIVER_DESCRIPTOR_SET_PATH",
		ExportSymbol: "DescriptorSetProviders",
	})
	plugin.MustRegister(InterfaceName, plugin.Provider{
		Name: "memory",
		New:  func() plugin.Pluggable { return &MemorySet{} },
	})
	plugin.MustRegister(InterfaceName, plugin.Provider{
		Name: "sqlite",
		New:  func() plugin.Pluggable { return &SQLiteSet{} },
	})
	plugin.MustRegister(InterfaceName, plugin.Provider{
		Name: "postgres",
		New:  func() plugin.Pluggable { return &PostgresSet{} },
	})
	plugin.MustRegister(InterfaceName, plugin.Provider{
		Name: "redis",
		New:  func() plugin.Pluggable { return &RedisSet{} },
	})
	plugin.MustRegister(InterfaceName, plugin.Provider{
		Name: "cached",
		New:  func() plugin.Pluggable { return &CachedSet{} },
	})
}

// vectorOf extracts the element's vector, failing when it has none. Sets
// store vectors, so vectorless elements cannot be added.
func vectorOf(elem descriptor.Element) ([]float64, error) {
	v, ok := elem.Vector()
	if !ok {
		return nil, fmt.Errorf("descriptor %q has no vector", elem.UUID())
	}
	return v, nil
}

func encodeVector(v []float64) ([]byte, error) {
	return json.Marshal(v)
}

func decodeVector(b []byte) ([]float64, error) {
	var v []float64
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, fmt.Errorf("decoding stored vector: %w", err)
	}
	return v, nil
}
