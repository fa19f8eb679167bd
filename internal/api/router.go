package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"fleet-routing-service/internal/api/handlers"
	"fleet-routing-service/internal/metrics"
	"fleet-routing-service/internal/services"
)

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(logger zerolog.Logger, builder handlers.MatrixBuilder, search services.SearchParams) http.Handler {
	mux := http.NewServeMux()

	solveHandler := &handlers.SolveHandler{
		Builder: builder,
		Solve:   services.Solve,
		Search:  search,
	}

	mux.HandleFunc("/health", handlers.Health)
	mux.HandleFunc("/api/solve-routes", solveHandler.SolveRoutes)
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	return requestMiddleware(logger, mux)
}
