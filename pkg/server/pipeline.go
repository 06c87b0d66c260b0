package server

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/quiverml/quiver/pkg/config"
	"github.com/quiverml/quiver/pkg/descriptor"
	"github.com/quiverml/quiver/pkg/descriptorset"
	"github.com/quiverml/quiver/pkg/generator"
	"github.com/quiverml/quiver/pkg/nnindex"
	"github.com/quiverml/quiver/pkg/observability"
	"github.com/quiverml/quiver/pkg/plugin"
)

// pipeline holds the resolved components of one retrieval pipeline. The
// implementation names are kept for metric labels.
type pipeline struct {
	factory       *descriptor.Factory
	generator     generator.Generator
	generatorName string
	set           descriptorset.Set
	setName       string
	index         nnindex.Index
	indexName     string
}

// buildPipeline resolves every component of a pipeline definition through
// the registry.
func buildPipeline(reg *plugin.Registry, def config.Pipeline) (*pipeline, error) {
	factory, err := descriptor.NewFactory(reg, def.Factory)
	if err != nil {
		return nil, fmt.Errorf("building descriptor factory: %w", err)
	}
	gen, genName, err := plugin.ResolveSlot[generator.Generator](reg, generator.InterfaceName, def.Generator)
	if err != nil {
		return nil, fmt.Errorf("building descriptor generator: %w", err)
	}
	set, setName, err := plugin.ResolveSlot[descriptorset.Set](reg, descriptorset.InterfaceName, def.Set)
	if err != nil {
		return nil, fmt.Errorf("building descriptor set: %w", err)
	}
	idx, idxName, err := plugin.ResolveSlot[nnindex.Index](reg, nnindex.InterfaceName, def.Index)
	if err != nil {
		return nil, fmt.Errorf("building nearest-neighbor index: %w", err)
	}
	return &pipeline{
		factory:       factory,
		generator:     gen,
		generatorName: genName,
		set:           set,
		setName:       setName,
		index:         idx,
		indexName:     idxName,
	}, nil
}

// definition reconstructs the slot trees of the live components.
func (p *pipeline) definition(reg *plugin.Registry) (config.Pipeline, error) {
	genCfg, err := reg.ToConfig(generator.InterfaceName, p.generator)
	if err != nil {
		return config.Pipeline{}, err
	}
	setCfg, err := reg.ToConfig(descriptorset.InterfaceName, p.set)
	if err != nil {
		return config.Pipeline{}, err
	}
	idxCfg, err := reg.ToConfig(nnindex.InterfaceName, p.index)
	if err != nil {
		return config.Pipeline{}, err
	}
	return config.Pipeline{
		Factory:   p.factory.Config(),
		Generator: genCfg,
		Set:       setCfg,
		Index:     idxCfg,
	}, nil
}

// close releases backends holding external connections.
func (p *pipeline) close() error {
	closables := []interface{}{p.index}
	closables = appendSetChain(closables, p.set)
	if li, ok := p.index.(*nnindex.LinearIndex); ok {
		closables = appendSetChain(closables, li.Set())
	}
	var firstErr error
	for _, c := range closables {
		if closer, ok := c.(io.Closer); ok {
			if err := closer.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// appendSetChain collects a set and, for caching wrappers, its backend.
func appendSetChain(dst []interface{}, set descriptorset.Set) []interface{} {
	for set != nil {
		dst = append(dst, set)
		cached, ok := set.(*descriptorset.CachedSet)
		if !ok {
			break
		}
		set = cached.Backend()
	}
	return dst
}

// pipelineState guards the live pipeline for concurrent handlers and
// reloads.
type pipelineState struct {
	mu   sync.RWMutex
	pipe *pipeline
}

func newPipelineState(p *pipeline) *pipelineState {
	return &pipelineState{pipe: p}
}

func (ps *pipelineState) current() *pipeline {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return ps.pipe
}

// swap installs a new pipeline and closes the old one's backends.
func (ps *pipelineState) swap(p *pipeline) error {
	ps.mu.Lock()
	old := ps.pipe
	ps.pipe = p
	ps.mu.Unlock()
	if old == nil {
		return nil
	}
	return old.close()
}

func (ps *pipelineState) close() error {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.pipe == nil {
		return nil
	}
	err := ps.pipe.close()
	ps.pipe = nil
	return err
}

// refreshHealthChecks registers probes for the live pipeline. The set probe
// exercises whatever backend is configured; concrete database and cache
// backends additionally get direct connection probes.
func (s *Server) refreshHealthChecks() {
	s.health.AddCheck("descriptor-set", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		_, err := s.pipeline.current().set.Count(ctx)
		return err
	})

	set := s.pipeline.current().set
	if cached, ok := set.(*descriptorset.CachedSet); ok {
		set = cached.Backend()
	}
	switch backend := set.(type) {
	case *descriptorset.PostgresSet:
		s.health.AddOptionalCheck("postgres", observability.DatabaseCheck(backend.DB()))
	case *descriptorset.RedisSet:
		s.health.AddOptionalCheck("redis", observability.RedisCheck(backend.Client()))
	}
}

// cacheMetricsObserver feeds CachedSet hit/miss notifications into the
// prometheus counters.
type cacheMetricsObserver struct {
	metrics *observability.Metrics
	cache   string
}

func (o cacheMetricsObserver) CacheHit() {
	o.metrics.CacheHitsTotal.WithLabelValues(o.cache).Inc()
}

func (o cacheMetricsObserver) CacheMiss() {
	o.metrics.CacheMissesTotal.WithLabelValues(o.cache).Inc()
}

// observeCaches attaches metric observers to any caching set in the
// pipeline, whether it is the primary set or nested under the index.
func (s *Server) observeCaches(p *pipeline) {
	if s.metrics == nil {
		return
	}
	sets := map[string]descriptorset.Set{"descriptor-set": p.set}
	if li, ok := p.index.(*nnindex.LinearIndex); ok {
		sets["index-set"] = li.Set()
	}
	for label, set := range sets {
		if cached, ok := set.(*descriptorset.CachedSet); ok {
			cached.SetObserver(cacheMetricsObserver{metrics: s.metrics, cache: label})
		}
	}
}

// reloadPipeline rebuilds the pipeline from the definition file and swaps it
// in. Used by the file watcher and the PUT handler shares its swap path.
func (s *Server) reloadPipeline() error {
	def, err := s.loadPipelineDefinition()
	if err != nil {
		return err
	}
	return s.applyPipeline(def)
}

// applyPipeline builds and installs a pipeline definition.
func (s *Server) applyPipeline(def config.Pipeline) error {
	pipe, err := buildPipeline(s.registry, def)
	if err != nil {
		if s.metrics != nil {
			s.metrics.ConstructErrorsTotal.WithLabelValues("pipeline", "build").Inc()
		}
		return err
	}
	if err := s.pipeline.swap(pipe); err != nil {
		s.logger.WithError(err).Warn("closing replaced pipeline backends")
	}
	s.observeCaches(pipe)
	s.refreshHealthChecks()
	s.logger.WithFields(map[string]interface{}{
		"generator": pipe.generatorName,
		"set":       pipe.setName,
		"index":     pipe.indexName,
	}).Info("pipeline configured")
	return nil
}
