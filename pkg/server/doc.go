// Package server provides the HTTP REST API over the plugin registry and a
// configured retrieval pipeline.
//
// # Overview
//
// The server exposes three groups of functionality:
//
//   - Plugin introspection: list pluggable interfaces, their visible
//     implementations, and per-implementation default configuration trees,
//     and trigger registry rebuilds to pick up newly installed modules.
//   - Descriptor computation: resolve a data element from a configuration
//     tree, run it through the pipeline's descriptor generator, and store
//     the result in the descriptor set.
//   - Nearest-neighbor search: build the index from the descriptor set and
//     query it with a raw vector or a data element.
//
// # API Endpoints
//
//	GET    /healthz                              - Liveness probe
//	GET    /readyz                               - Readiness probe
//	GET    /metrics                              - Prometheus metrics
//	GET    /api/v1/plugins                       - List pluggable interfaces
//	GET    /api/v1/plugins/{interface}           - Interface detail with default configs
//	POST   /api/v1/plugins/{interface}/rebuild   - Rescan modules for an interface
//	GET    /api/v1/pipeline                      - Live pipeline configuration
//	PUT    /api/v1/pipeline                      - Reconfigure pipeline components
//	POST   /api/v1/descriptors                   - Compute and store one descriptor
//	POST   /api/v1/descriptors/batch             - Compute descriptors concurrently
//	GET    /api/v1/descriptors                   - List stored descriptor UUIDs
//	GET    /api/v1/descriptors/{uuid}            - Fetch a descriptor vector
//	DELETE /api/v1/descriptors/{uuid}            - Remove a descriptor
//	POST   /api/v1/nn                            - Query nearest neighbors
//	POST   /api/v1/nn/build                      - Rebuild the index from the set
//
// # Usage Example
//
//	cfg, _ := config.LoadConfig()
//	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
//	srv, err := server.NewServer(cfg, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//	srv.Start()
//	defer srv.Stop()
//	http.ListenAndServe(cfg.Server.ListenAddr(), srv.Handler())
//
// The pipeline definition file can be hot-reloaded (QUIVER_PIPELINE_WATCH)
// and registry entries rebuilt on a cron schedule (QUIVER_REBUILD_SCHEDULE).
package server
