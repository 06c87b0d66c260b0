package nnindex

import (
	"context"
	"fmt"

	"github.com/quiverml/quiver/pkg/descriptor"
	"github.com/quiverml/quiver/pkg/plugin"
)

// InterfaceName is the registry name for the nearest-neighbor index interface.
const InterfaceName = "nn-index"

// Neighbor is one query result: the matched descriptor and its distance
// from the query vector.
type Neighbor struct {
	Element  descriptor.Element
	Distance float64
}

// Index answers k-nearest-neighbor queries over an indexed descriptor
// collection.
type Index interface {
	plugin.Pluggable

	// Build replaces the index contents with the given descriptors.
	Build(ctx context.Context, elems []descriptor.Element) error

	// Query returns the k nearest indexed descriptors to the query
	// vector, closest first.
	Query(ctx context.Context, query []float64, k int) ([]Neighbor, error)

	// Count reports the number of indexed descriptors.
	Count(ctx context.Context) (int, error)
}

func init() {
	plugin.MustRegisterInterface(plugin.Interface{
		Name:         InterfaceName,
		Type:         plugin.InterfaceFor[Index](),
		PathVar:      "QUIVER_NN_INDEX_PATH",
		ExportSymbol: "NNIndexProviders",
	})
	plugin.MustRegister(InterfaceName, plugin.Provider{
		Name: "linear",
		New:  func() plugin.Pluggable { return &LinearIndex{} },
	})
	plugin.MustRegister(InterfaceName, plugin.Provider{
		Name: "lsh",
		New:  func() plugin.Pluggable { return &LSHIndex{} },
	})
}

func validateQuery(query []float64, k int) error {
	if len(query) == 0 {
		return fmt.Errorf("query vector is empty")
	}
	if k < 1 {
		return fmt.Errorf("k must be positive, got %d", k)
	}
	return nil
}
