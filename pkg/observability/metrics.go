package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Plugin registry metrics
	ModuleScansTotal       *prometheus.CounterVec
	RegistryRebuildsTotal  *prometheus.CounterVec
	ImplementationsVisible *prometheus.GaugeVec
	ConstructErrorsTotal   *prometheus.CounterVec

	// Descriptor metrics
	DescriptorComputeTotal    *prometheus.CounterVec
	DescriptorComputeDuration *prometheus.HistogramVec

	// Descriptor set metrics
	SetOperationsTotal   *prometheus.CounterVec
	SetOperationDuration *prometheus.HistogramVec

	// Nearest-neighbor index metrics
	IndexBuildDuration *prometheus.HistogramVec
	IndexQueriesTotal  *prometheus.CounterVec
	IndexQueryDuration *prometheus.HistogramVec

	// Cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiver_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quiver_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPResponseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quiver_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "path"},
		),

		ModuleScansTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiver_plugin_module_scans_total",
				Help: "Total number of external module scans",
			},
			[]string{"interface", "status"},
		),
		RegistryRebuildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiver_plugin_registry_rebuilds_total",
				Help: "Total number of registry entry rebuilds",
			},
			[]string{"interface"},
		),
		ImplementationsVisible: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "quiver_plugin_implementations_visible",
				Help: "Number of usable implementations per interface",
			},
			[]string{"interface"},
		),
		ConstructErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiver_plugin_construct_errors_total",
				Help: "Total number of configuration-driven construction failures",
			},
			[]string{"interface", "reason"},
		),

		DescriptorComputeTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiver_descriptor_compute_total",
				Help: "Total number of descriptor computations",
			},
			[]string{"generator", "status"},
		),
		DescriptorComputeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quiver_descriptor_compute_duration_seconds",
				Help:    "Descriptor computation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"generator"},
		),

		SetOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiver_descriptor_set_operations_total",
				Help: "Total number of descriptor set operations",
			},
			[]string{"operation", "backend", "status"},
		),
		SetOperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quiver_descriptor_set_operation_duration_seconds",
				Help:    "Descriptor set operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "backend"},
		),

		IndexBuildDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quiver_index_build_duration_seconds",
				Help:    "Nearest-neighbor index build duration in seconds",
				Buckets: []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60},
			},
			[]string{"index"},
		),
		IndexQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiver_index_queries_total",
				Help: "Total number of nearest-neighbor queries",
			},
			[]string{"index", "status"},
		),
		IndexQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quiver_index_query_duration_seconds",
				Help:    "Nearest-neighbor query duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"index"},
		),

		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiver_cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"cache"},
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiver_cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"cache"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPResponseSize,
		m.ModuleScansTotal,
		m.RegistryRebuildsTotal,
		m.ImplementationsVisible,
		m.ConstructErrorsTotal,
		m.DescriptorComputeTotal,
		m.DescriptorComputeDuration,
		m.SetOperationsTotal,
		m.SetOperationDuration,
		m.IndexBuildDuration,
		m.IndexQueriesTotal,
		m.IndexQueryDuration,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
	)

	return m
}

// responseWriter wraps http.ResponseWriter to capture status code and size
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
			metrics.HTTPResponseSize.WithLabelValues(r.Method, r.URL.Path).Observe(float64(rw.bytesWritten))
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
