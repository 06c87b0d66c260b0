package descriptorset

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/quiverml/quiver/pkg/descriptor"
	"github.com/quiverml/quiver/pkg/plugin"
)

// MemorySet keeps descriptors in a process-local map. When a file cache
// path is configured, the map is loaded from it at configuration time and
// written back after every mutation.
type MemorySet struct {
	fileCache string

	mu      sync.RWMutex
	vectors map[string][]float64
}

func (s *MemorySet) DefaultConfig() plugin.Config {
	return plugin.Config{"file_cache": ""}
}

func (s *MemorySet) Configure(reg *plugin.Registry, cfg plugin.Config) error {
	s.fileCache = cfg.StringOr("file_cache", "")
	s.vectors = make(map[string][]float64)

	if s.fileCache == "" {
		return nil
	}
	b, err := os.ReadFile(s.fileCache)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading file cache %s: %w", s.fileCache, err)
	}
	if err := json.Unmarshal(b, &s.vectors); err != nil {
		return fmt.Errorf("decoding file cache %s: %w", s.fileCache, err)
	}
	return nil
}

func (s *MemorySet) Config() plugin.Config {
	return plugin.Config{"file_cache": s.fileCache}
}

// persistLocked writes the map to the file cache. Caller holds s.mu.
func (s *MemorySet) persistLocked() error {
	if s.fileCache == "" {
		return nil
	}
	b, err := json.Marshal(s.vectors)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.fileCache, b, 0o644); err != nil {
		return fmt.Errorf("writing file cache %s: %w", s.fileCache, err)
	}
	return nil
}

func (s *MemorySet) Add(ctx context.Context, elems ...descriptor.Element) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, elem := range elems {
		v, err := vectorOf(elem)
		if err != nil {
			return err
		}
		s.vectors[elem.UUID()] = v
	}
	return s.persistLocked()
}

func (s *MemorySet) Get(ctx context.Context, uuid string) (descriptor.Element, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.vectors[uuid]
	if !ok {
		return nil, &NotFoundError{UUID: uuid}
	}
	return descriptor.NewMemoryElementWithVector(uuid, v), nil
}

func (s *MemorySet) GetMany(ctx context.Context, uuids []string) ([]descriptor.Element, error) {
	out := make([]descriptor.Element, 0, len(uuids))
	for _, uuid := range uuids {
		elem, err := s.Get(ctx, uuid)
		if err != nil {
			return nil, err
		}
		out = append(out, elem)
	}
	return out, nil
}

func (s *MemorySet) Has(ctx context.Context, uuid string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.vectors[uuid]
	return ok, nil
}

func (s *MemorySet) Remove(ctx context.Context, uuid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.vectors[uuid]; !ok {
		return &NotFoundError{UUID: uuid}
	}
	delete(s.vectors, uuid)
	return s.persistLocked()
}

func (s *MemorySet) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.vectors), nil
}

func (s *MemorySet) UUIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.vectors))
	for uuid := range s.vectors {
		out = append(out, uuid)
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemorySet) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.vectors = make(map[string][]float64)
	return s.persistLocked()
}
