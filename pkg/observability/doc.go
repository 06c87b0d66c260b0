// Package observability provides structured logging, Prometheus metrics,
// health checks, and graceful shutdown for the quiver service.
//
// # Structured Logging
//
// Create logger:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.Info("server started")
//
// Context-aware logging:
//
//	logger.WithField("request_id", reqID).Error("request failed")
//
// # Prometheus Metrics
//
// Initialize metrics:
//
//	metrics := observability.NewMetrics(prometheus.NewRegistry())
//	metrics.HTTPRequestsTotal.WithLabelValues("GET", "/plugins", "200").Inc()
//
// Plugin and retrieval metrics:
//
//	metrics.ModuleScansTotal.WithLabelValues("descriptor-set", "ok").Inc()
//	metrics.DescriptorComputeDuration.WithLabelValues("byte-histogram").Observe(0.012)
//
// # Health Checks
//
// Configure health checker with named dependency checks:
//
//	checker := observability.NewHealthChecker()
//	checker.AddCheck("postgres", observability.DatabaseCheck(db))
//	status := checker.Check(ctx)
package observability
