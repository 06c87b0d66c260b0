package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quiverml/quiver/pkg/config"
	"github.com/quiverml/quiver/pkg/httputil"
	"github.com/quiverml/quiver/pkg/observability"
	"github.com/quiverml/quiver/pkg/plugin"
)

// Version is reported by the health endpoints.
const Version = "0.1.0"

// Server is the HTTP front end over the plugin registry and the configured
// retrieval pipeline.
type Server struct {
	cfg      *config.Config
	logger   *observability.Logger
	registry *plugin.Registry
	metrics  *observability.Metrics
	promReg  *prometheus.Registry
	health   *observability.HealthChecker
	router   *mux.Router

	pipeline *pipelineState
	reloader *reloader
}

// NewServer builds a server from configuration: it loads the pipeline
// definition (or the default pipeline), resolves every component through the
// plugin registry, and wires routes, health checks, and metrics.
func NewServer(cfg *config.Config, logger *observability.Logger) (*Server, error) {
	s := &Server{
		cfg:      cfg,
		logger:   logger,
		registry: plugin.Default(),
		health:   observability.NewHealthChecker(Version),
		router:   mux.NewRouter(),
	}

	if cfg.Observability.MetricsEnabled {
		s.promReg = prometheus.NewRegistry()
		s.metrics = observability.NewMetrics(s.promReg)
	}

	def, err := s.loadPipelineDefinition()
	if err != nil {
		return nil, err
	}
	pipe, err := buildPipeline(s.registry, def)
	if err != nil {
		return nil, err
	}
	s.pipeline = newPipelineState(pipe)
	s.observeCaches(pipe)
	s.refreshHealthChecks()
	s.updateVisibilityMetrics()

	s.setupRoutes()
	return s, nil
}

func (s *Server) loadPipelineDefinition() (config.Pipeline, error) {
	if s.cfg.Pipeline.File == "" {
		return config.DefaultPipeline(), nil
	}
	return config.LoadPipeline(s.cfg.Pipeline.File)
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/healthz", s.health.Liveness).Methods("GET")
	s.router.HandleFunc("/readyz", s.health.Readiness).Methods("GET")
	if s.promReg != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.promReg, promhttp.HandlerOpts{})).Methods("GET")
	}

	// Plugin registry routes
	s.router.HandleFunc("/api/v1/plugins", s.listPlugins).Methods("GET")
	s.router.HandleFunc("/api/v1/plugins/{interface}", s.getPluginInterface).Methods("GET")
	s.router.HandleFunc("/api/v1/plugins/{interface}/rebuild", s.rebuildPluginInterface).Methods("POST")

	// Pipeline routes
	s.router.HandleFunc("/api/v1/pipeline", s.getPipeline).Methods("GET")
	s.router.HandleFunc("/api/v1/pipeline", s.updatePipeline).Methods("PUT")

	// Descriptor routes
	s.router.HandleFunc("/api/v1/descriptors", s.computeDescriptor).Methods("POST")
	s.router.HandleFunc("/api/v1/descriptors", s.listDescriptors).Methods("GET")
	s.router.HandleFunc("/api/v1/descriptors/batch", s.computeDescriptorBatch).Methods("POST")
	s.router.HandleFunc("/api/v1/descriptors/{uuid}", s.getDescriptor).Methods("GET")
	s.router.HandleFunc("/api/v1/descriptors/{uuid}", s.deleteDescriptor).Methods("DELETE")

	// Nearest neighbor routes
	s.router.HandleFunc("/api/v1/nn", s.queryNeighbors).Methods("POST")
	s.router.HandleFunc("/api/v1/nn/build", s.buildIndex).Methods("POST")
}

// Handler returns the router wrapped in the standard middleware stack.
func (s *Server) Handler() http.Handler {
	middlewares := []func(http.Handler) http.Handler{
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(s.logger),
		httputil.RecoveryMiddleware(s.logger),
		httputil.ContentTypeMiddleware,
		httputil.MaxBytesMiddleware(s.cfg.Server.MaxBodyBytes),
	}
	if s.metrics != nil {
		middlewares = append(middlewares, observability.HTTPMetricsMiddleware(s.metrics))
	}
	return httputil.Chain(middlewares...)(s.router)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Handler().ServeHTTP(w, r)
}

// Health exposes the health checker so callers can add process-level checks.
func (s *Server) Health() *observability.HealthChecker {
	return s.health
}

// Start launches the pipeline file watcher and the scheduled registry
// rebuild, when configured. Stop releases them and the pipeline backends.
func (s *Server) Start() error {
	r, err := newReloader(s)
	if err != nil {
		return err
	}
	s.reloader = r
	return nil
}

// Stop shuts down background workers and closes pipeline backends.
func (s *Server) Stop() error {
	if s.reloader != nil {
		s.reloader.stop()
		s.reloader = nil
	}
	return s.pipeline.close()
}

// updateVisibilityMetrics publishes the implementation count per interface.
func (s *Server) updateVisibilityMetrics() {
	if s.metrics == nil {
		return
	}
	for _, name := range s.registry.Interfaces() {
		entry, err := s.registry.Get(name)
		if err != nil {
			continue
		}
		s.metrics.ImplementationsVisible.WithLabelValues(name).Set(float64(entry.Len()))
	}
}
