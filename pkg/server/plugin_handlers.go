package server

import (
	"errors"
	"net/http"
	"sort"

	"github.com/quiverml/quiver/pkg/httputil"
	"github.com/quiverml/quiver/pkg/plugin"
)

// InterfaceSummary describes one pluggable interface and its visible
// implementations.
type InterfaceSummary struct {
	Name            string   `json:"name"`
	PathVar         string   `json:"path_var,omitempty"`
	Implementations []string `json:"implementations"`
}

// InterfaceDetail adds the default configuration tree per implementation.
type InterfaceDetail struct {
	InterfaceSummary
	DefaultConfigs map[string]plugin.Config `json:"default_configs"`
}

// listPlugins handles GET /api/v1/plugins
func (s *Server) listPlugins(w http.ResponseWriter, r *http.Request) {
	names := s.registry.Interfaces()
	sort.Strings(names)

	summaries := make([]InterfaceSummary, 0, len(names))
	for _, name := range names {
		entry, err := s.registry.Get(name)
		if err != nil {
			httputil.WriteInternalError(w, err)
			return
		}
		summaries = append(summaries, s.summarize(name, entry))
	}
	httputil.WriteSuccess(w, map[string]interface{}{"interfaces": summaries})
}

// getPluginInterface handles GET /api/v1/plugins/{interface}
func (s *Server) getPluginInterface(w http.ResponseWriter, r *http.Request) {
	name, ok := httputil.ParsePathStringOrError(w, r, "interface")
	if !ok {
		return
	}

	entry, err := s.registry.Get(name)
	if err != nil {
		var unknown *plugin.UnknownInterfaceError
		if errors.As(err, &unknown) {
			httputil.WriteNotFound(w, err.Error())
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	// MakeDefaultConfig carries every implementation's defaults; a per-impl
	// view clones it and selects one.
	defaults, err := s.registry.MakeDefaultConfig(name)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	detail := InterfaceDetail{
		InterfaceSummary: s.summarize(name, entry),
		DefaultConfigs:   make(map[string]plugin.Config, entry.Len()),
	}
	for _, impl := range entry.Names() {
		cfg := defaults.Clone()
		cfg[plugin.TypeField] = impl
		detail.DefaultConfigs[impl] = cfg
	}
	httputil.WriteSuccess(w, detail)
}

// rebuildPluginInterface handles POST /api/v1/plugins/{interface}/rebuild
func (s *Server) rebuildPluginInterface(w http.ResponseWriter, r *http.Request) {
	name, ok := httputil.ParsePathStringOrError(w, r, "interface")
	if !ok {
		return
	}

	entry, err := s.registry.Rebuild(name)
	if err != nil {
		if s.metrics != nil {
			s.metrics.ModuleScansTotal.WithLabelValues(name, "error").Inc()
		}
		var unknown *plugin.UnknownInterfaceError
		if errors.As(err, &unknown) {
			httputil.WriteNotFound(w, err.Error())
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	if s.metrics != nil {
		s.metrics.ModuleScansTotal.WithLabelValues(name, "ok").Inc()
		s.metrics.RegistryRebuildsTotal.WithLabelValues(name).Inc()
		s.metrics.ImplementationsVisible.WithLabelValues(name).Set(float64(entry.Len()))
	}
	httputil.WriteSuccess(w, s.summarize(name, entry))
}

func (s *Server) summarize(name string, entry *plugin.Entry) InterfaceSummary {
	return InterfaceSummary{
		Name:            name,
		PathVar:         entry.Interface().PathVar,
		Implementations: entry.Names(),
	}
}

// getPipeline handles GET /api/v1/pipeline
func (s *Server) getPipeline(w http.ResponseWriter, r *http.Request) {
	def, err := s.pipeline.current().definition(s.registry)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, def)
}

// updatePipeline handles PUT /api/v1/pipeline
func (s *Server) updatePipeline(w http.ResponseWriter, r *http.Request) {
	var def struct {
		Factory   plugin.Config `json:"factory"`
		Generator plugin.Config `json:"generator"`
		Set       plugin.Config `json:"set"`
		Index     plugin.Config `json:"index"`
	}
	if !httputil.ParseJSONOrError(w, r, &def) {
		return
	}

	// Unspecified components keep running untouched.
	live, err := s.pipeline.current().definition(s.registry)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	next := live
	if def.Factory != nil {
		next.Factory = def.Factory
	}
	if def.Generator != nil {
		next.Generator = def.Generator
	}
	if def.Set != nil {
		next.Set = def.Set
	}
	if def.Index != nil {
		next.Index = def.Index
	}

	if err := s.applyPipeline(next); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	applied, err := s.pipeline.current().definition(s.registry)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, applied)
}
