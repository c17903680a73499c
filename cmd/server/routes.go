package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brunobiangulo/goldeneval"
	"github.com/brunobiangulo/goldeneval/metrics"
)

type serverOptions struct {
	apiKey         string
	corsOrigins    string
	maxUploadBytes int64
}

// newServer builds the routed handler with its middleware chain.
func newServer(e goldeneval.Engine, m *metrics.Metrics, gatherer prometheus.Gatherer, opts serverOptions) http.Handler {
	h := newHandler(e, m, opts.maxUploadBytes)
	mux := http.NewServeMux()

	mux.HandleFunc("POST /evaluate", h.handleEvaluate)
	mux.HandleFunc("POST /datasets", h.handleImportDataset)
	mux.HandleFunc("GET /datasets", h.handleListDatasets)
	mux.HandleFunc("GET /datasets/{name}", h.handleGetDataset)
	mux.HandleFunc("DELETE /datasets/{name}", h.handleDeleteDataset)
	mux.HandleFunc("POST /datasets/{name}/evaluate", h.handleEvaluateDataset)
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// Middleware chain: recovery -> cors -> auth -> logging -> mux
	var handler http.Handler = mux
	handler = logMiddleware(m, handler)
	handler = authMiddleware(opts.apiKey, handler)
	handler = corsMiddleware(opts.corsOrigins, handler)
	handler = recoveryMiddleware(handler)
	return handler
}
