package nnindex

import (
	"context"
	"fmt"
	"sort"

	"github.com/quiverml/quiver/pkg/descriptor"
	"github.com/quiverml/quiver/pkg/descriptorset"
	"github.com/quiverml/quiver/pkg/plugin"
)

// LinearIndex is an exact nearest-neighbor index that scans every indexed
// descriptor per query. The descriptors live in a nested descriptor set
// slot, so the scan can run over any set backend.
type LinearIndex struct {
	metric  string
	dist    distanceFunc
	set     descriptorset.Set
	setName string
}

func (idx *LinearIndex) DefaultConfig() plugin.Config {
	return plugin.Config{
		"metric": "euclidean",
		"set":    plugin.DefaultSlot(descriptorset.InterfaceName, "memory"),
	}
}

func (idx *LinearIndex) Configure(reg *plugin.Registry, cfg plugin.Config) error {
	idx.metric = cfg.StringOr("metric", "euclidean")
	dist, err := distanceByName(idx.metric)
	if err != nil {
		return err
	}
	idx.dist = dist

	set, name, err := plugin.ResolveSlot[descriptorset.Set](reg, descriptorset.InterfaceName, cfg["set"])
	if err != nil {
		return err
	}
	idx.set = set
	idx.setName = name
	return nil
}

func (idx *LinearIndex) Config() plugin.Config {
	return plugin.Config{
		"metric": idx.metric,
		"set":    plugin.SlotConfig(idx.setName, idx.set),
	}
}

// Set returns the backing descriptor set.
func (idx *LinearIndex) Set() descriptorset.Set {
	return idx.set
}

func (idx *LinearIndex) Build(ctx context.Context, elems []descriptor.Element) error {
	if err := idx.set.Clear(ctx); err != nil {
		return err
	}
	return idx.set.Add(ctx, elems...)
}

func (idx *LinearIndex) Query(ctx context.Context, query []float64, k int) ([]Neighbor, error) {
	if err := validateQuery(query, k); err != nil {
		return nil, err
	}

	uuids, err := idx.set.UUIDs(ctx)
	if err != nil {
		return nil, err
	}
	if len(uuids) == 0 {
		return nil, fmt.Errorf("index is empty")
	}

	neighbors := make([]Neighbor, 0, len(uuids))
	for _, uuid := range uuids {
		elem, err := idx.set.Get(ctx, uuid)
		if err != nil {
			return nil, err
		}
		v, ok := elem.Vector()
		if !ok {
			continue
		}
		if len(v) != len(query) {
			return nil, fmt.Errorf("query dimension %d does not match indexed dimension %d", len(query), len(v))
		}
		neighbors = append(neighbors, Neighbor{Element: elem, Distance: idx.dist(query, v)})
	}

	sort.Slice(neighbors, func(i, j int) bool {
		return neighbors[i].Distance < neighbors[j].Distance
	})
	if k < len(neighbors) {
		neighbors = neighbors[:k]
	}
	return neighbors, nil
}

func (idx *LinearIndex) Count(ctx context.Context) (int, error) {
	return idx.set.Count(ctx)
}
