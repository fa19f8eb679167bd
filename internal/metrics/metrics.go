package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the service.
	Registry = prometheus.NewRegistry()

	// HTTPRequests counts requests by method, path, and status.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds.
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// MatrixCacheHits counts matrix cache lookups by outcome (hit/miss).
	MatrixCacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "matrix_cache_lookups_total", Help: "Travel matrix cache lookups by outcome."},
		[]string{"outcome"},
	)
	// ProviderRequests counts outbound provider calls by kind and status.
	ProviderRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "provider_requests_total", Help: "Outbound provider requests by kind and status."},
		[]string{"kind", "status"},
	)
	// MatrixBuildDuration tracks end-to-end matrix build latency.
	MatrixBuildDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "matrix_build_duration_seconds", Help: "Travel matrix build duration in seconds.", Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 90}},
	)
	// SolveDuration tracks routing engine solve latency.
	SolveDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "solver_duration_seconds", Help: "Routing solve duration in seconds.", Buckets: []float64{.01, .05, .1, .5, 1, 2.5, 5, 10, 15}},
	)
	// SolveInfeasible counts solves that ended without a feasible solution.
	SolveInfeasible = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "solver_infeasible_total", Help: "Solves that found no feasible route."},
	)
)

// RegisterDefault registers all collectors on the service registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(MatrixCacheHits)
		Registry.MustRegister(ProviderRequests)
		Registry.MustRegister(MatrixBuildDuration)
		Registry.MustRegister(SolveDuration)
		Registry.MustRegister(SolveInfeasible)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
