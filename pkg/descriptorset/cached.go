package descriptorset

import (
	"context"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/quiverml/quiver/pkg/descriptor"
	"github.com/quiverml/quiver/pkg/plugin"
)

// CacheObserver receives hit/miss notifications from a CachedSet, typically
// to feed metrics counters.
type CacheObserver interface {
	CacheHit()
	CacheMiss()
}

// CachedSet decorates another descriptor set with an expirable LRU read
// cache. The wrapped backend is a nested pluggable slot, so any other set
// implementation can sit behind it.
type CachedSet struct {
	maxEntries  int
	ttl         time.Duration
	backend     Set
	backendName string

	cache    *lru.LRU[string, []float64]
	observer atomic.Pointer[CacheObserver]
	hits     atomic.Uint64
	misses   atomic.Uint64
}

// NewCachedSet wraps an already-constructed backend. Used in tests and when
// composing sets programmatically.
func NewCachedSet(backend Set, backendName string, maxEntries int, ttl time.Duration) *CachedSet {
	return &CachedSet{
		maxEntries:  maxEntries,
		ttl:         ttl,
		backend:     backend,
		backendName: backendName,
		cache:       lru.NewLRU[string, []float64](maxEntries, nil, ttl),
	}
}

func (s *CachedSet) DefaultConfig() plugin.Config {
	return plugin.Config{
		"max_entries": 1024,
		"ttl":         "5m",
		"backend":     plugin.DefaultSlot(InterfaceName, "memory"),
	}
}

func (s *CachedSet) Configure(reg *plugin.Registry, cfg plugin.Config) error {
	s.maxEntries = cfg.IntOr("max_entries", 1024)
	s.ttl = cfg.DurationOr("ttl", 5*time.Minute)

	backend, name, err := plugin.ResolveSlot[Set](reg, InterfaceName, cfg["backend"])
	if err != nil {
		return err
	}
	s.backend = backend
	s.backendName = name
	s.cache = lru.NewLRU[string, []float64](s.maxEntries, nil, s.ttl)
	return nil
}

func (s *CachedSet) Config() plugin.Config {
	return plugin.Config{
		"max_entries": s.maxEntries,
		"ttl":         s.ttl.String(),
		"backend":     plugin.SlotConfig(s.backendName, s.backend),
	}
}

// Backend returns the wrapped set.
func (s *CachedSet) Backend() Set {
	return s.backend
}

// SetObserver installs a hit/miss observer. Safe to call on a live set.
func (s *CachedSet) SetObserver(obs CacheObserver) {
	s.observer.Store(&obs)
}

// Stats reports cumulative cache hits and misses.
func (s *CachedSet) Stats() (hits, misses uint64) {
	return s.hits.Load(), s.misses.Load()
}

func (s *CachedSet) recordHit() {
	s.hits.Add(1)
	if obs := s.observer.Load(); obs != nil {
		(*obs).CacheHit()
	}
}

func (s *CachedSet) recordMiss() {
	s.misses.Add(1)
	if obs := s.observer.Load(); obs != nil {
		(*obs).CacheMiss()
	}
}

func (s *CachedSet) Add(ctx context.Context, elems ...descriptor.Element) error {
	if err := s.backend.Add(ctx, elems...); err != nil {
		return err
	}
	for _, elem := range elems {
		if v, ok := elem.Vector(); ok {
			s.cache.Add(elem.UUID(), v)
		}
	}
	return nil
}

func (s *CachedSet) Get(ctx context.Context, uuid string) (descriptor.Element, error) {
	if v, ok := s.cache.Get(uuid); ok {
		s.recordHit()
		return descriptor.NewMemoryElementWithVector(uuid, v), nil
	}
	s.recordMiss()

	elem, err := s.backend.Get(ctx, uuid)
	if err != nil {
		return nil, err
	}
	if v, ok := elem.Vector(); ok {
		s.cache.Add(uuid, v)
	}
	return elem, nil
}

func (s *CachedSet) GetMany(ctx context.Context, uuids []string) ([]descriptor.Element, error) {
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

func (s *CachedSet) Has(ctx context.Context, uuid string) (bool, error) {
	if _, ok := s.cache.Get(uuid); ok {
		s.recordHit()
		return true, nil
	}
	s.recordMiss()
	return s.backend.Has(ctx, uuid)
}

func (s *CachedSet) Remove(ctx context.Context, uuid string) error {
	s.cache.Remove(uuid)
	return s.backend.Remove(ctx, uuid)
}

func (s *CachedSet) Count(ctx context.Context) (int, error) {
	return s.backend.Count(ctx)
}

func (s *CachedSet) UUIDs(ctx context.Context) ([]string, error) {
	return s.backend.UUIDs(ctx)
}

func (s *CachedSet) Clear(ctx context.Context) error {
	s.cache.Purge()
	return s.backend.Clear(ctx)
}
