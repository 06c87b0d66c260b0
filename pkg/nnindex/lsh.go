package nnindex

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"

	"github.com/quiverml/quiver/pkg/descriptor"
	"github.com/quiverml/quiver/pkg/plugin"
)

// LSHIndex is an approximate nearest-neighbor index using random-hyperplane
// locality-sensitive hashing. Queries consider only descriptors that share a
// hash bucket with the query in at least one table, falling back to a full
// scan when no bucket matches.
type LSHIndex struct {
	hashSize  int
	numTables int
	seed      int64

	mu      sync.RWMutex
	dim     int
	planes  [][][]float64 // [table][bit][dim]
	tables  []map[uint64][]string
	vectors map[string][]float64
}

func (idx *LSHIndex) DefaultConfig() plugin.Config {
	return plugin.Config{
		"hash_size":  8,
		"num_tables": 4,
		"seed":       0,
	}
}

func (idx *LSHIndex) Configure(reg *plugin.Registry, cfg plugin.Config) error {
	idx.hashSize = cfg.IntOr("hash_size", 8)
	if idx.hashSize < 1 || idx.hashSize > 64 {
		return fmt.Errorf("hash_size must be between 1 and 64, got %d", idx.hashSize)
	}
	idx.numTables = cfg.IntOr("num_tables", 4)
	if idx.numTables < 1 {
		return fmt.Errorf("num_tables must be positive, got %d", idx.numTables)
	}
	seed, _ := cfg.Int("seed")
	idx.seed = int64(seed)
	idx.vectors = make(map[string][]float64)
	return nil
}

func (idx *LSHIndex) Config() plugin.Config {
	return plugin.Config{
		"hash_size":  idx.hashSize,
		"num_tables": idx.numTables,
		"seed":       int(idx.seed),
	}
}

// hyperplanes draws the random projection planes for the indexed dimension.
func (idx *LSHIndex) hyperplanes(dim int) [][][]float64 {
	rng := rand.New(rand.NewSource(idx.seed))
	planes := make([][][]float64, idx.numTables)
	for t := range planes {
		planes[t] = make([][]float64, idx.hashSize)
		for b := range planes[t] {
			plane := make([]float64, dim)
			for d := range plane {
				plane[d] = rng.NormFloat64()
			}
			planes[t][b] = plane
		}
	}
	return planes
}

func (idx *LSHIndex) hash(table int, v []float64) uint64 {
	var h uint64
	for b, plane := range idx.planes[table] {
		var dot float64
		for d := range v {
			dot += plane[d] * v[d]
		}
		if dot >= 0 {
			h |= 1 << uint(b)
		}
	}
	return h
}

func (idx *LSHIndex) Build(ctx context.Context, elems []descriptor.Element) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.vectors = make(map[string][]float64, len(elems))
	idx.tables = make([]map[uint64][]string, idx.numTables)
	for t := range idx.tables {
		idx.tables[t] = make(map[uint64][]string)
	}
	idx.dim = 0

	for _, elem := range elems {
		v, ok := elem.Vector()
		if !ok {
			return fmt.Errorf("descriptor %q has no vector", elem.UUID())
		}
		if idx.dim == 0 {
			idx.dim = len(v)
			idx.planes = idx.hyperplanes(idx.dim)
		}
		if len(v) != idx.dim {
			return fmt.Errorf("descriptor %q has dimension %d, index has %d", elem.UUID(), len(v), idx.dim)
		}
		idx.vectors[elem.UUID()] = v
		for t := range idx.tables {
			h := idx.hash(t, v)
			idx.tables[t][h] = append(idx.tables[t][h], elem.UUID())
		}
	}
	return nil
}

func (idx *LSHIndex) Query(ctx context.Context, query []float64, k int) ([]Neighbor, error) {
	if err := validateQuery(query, k); err != nil {
		return nil, err
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.vectors) == 0 {
		return nil, fmt.Errorf("index is empty")
	}
	if len(query) != idx.dim {
		return nil, fmt.Errorf("query dimension %d does not match indexed dimension %d", len(query), idx.dim)
	}

	candidates := make(map[string]struct{})
	for t := range idx.tables {
		for _, uuid := range idx.tables[t][idx.hash(t, query)] {
			candidates[uuid] = struct{}{}
		}
	}
	// Hashing found nothing nearby; degrade to exact scan rather than
	// returning an empty result.
	if len(candidates) == 0 {
		for uuid := range idx.vectors {
			candidates[uuid] = struct{}{}
		}
	}

	neighbors := make([]Neighbor, 0, len(candidates))
	for uuid := range candidates {
		v := idx.vectors[uuid]
		neighbors = append(neighbors, Neighbor{
			Element:  descriptor.NewMemoryElementWithVector(uuid, v),
			Distance: euclideanDistance(query, v),
		})
	}
	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].Distance != neighbors[j].Distance {
			return neighbors[i].Distance < neighbors[j].Distance
		}
		return neighbors[i].Element.UUID() < neighbors[j].Element.UUID()
	})
	if k < len(neighbors) {
		neighbors = neighbors[:k]
	}
	return neighbors, nil
}

func (idx *LSHIndex) Count(ctx context.Context) (int, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.vectors), nil
}
