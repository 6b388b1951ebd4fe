/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the dashboard frontend

ROUTE GROUPS:
  /api/units/*      Unit metrics, manual computation, export
  /api/state        Statewide rollup
  /api/weights      Weight editor
  /api/recompute    Recompute with active overrides
  /api/session      Table upload
  /api/history/*    History ledger
  /api/periods/*    Period labels
  /api/scenarios/*  Demo scenarios
  /metrics          Prometheus metrics

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/serve.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultAllowedOrigins are the dashboard dev servers.
var DefaultAllowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}

// NewRouter creates a new router with all routes configured.
// A nil or empty origins list uses DefaultAllowedOrigins.
func NewRouter(h *Handler, origins []string) *chi.Mux {
	if len(origins) == 0 {
		origins = DefaultAllowedOrigins
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/units", func(r chi.Router) {
			r.Get("/", h.ListUnits)
			r.Get("/metrics", h.GetMetrics)
			r.Get("/export", h.ExportUnits)
			r.Post("/compute", h.ComputeUnit)
			r.Get("/{unit}", h.GetUnit)
		})

		r.Get("/state", h.GetState)

		r.Route("/weights", func(r chi.Router) {
			r.Get("/", h.GetWeights)
			r.Put("/", h.SetWeights)
		})
		r.Post("/recompute", h.Recompute)

		r.Post("/session", h.LoadSession)

		r.Route("/history", func(r chi.Router) {
			r.Get("/", h.GetHistory)
			r.Get("/export", h.ExportHistory)
			r.Post("/snapshots", h.CreateSnapshot)
		})

		r.Route("/periods", func(r chi.Router) {
			r.Get("/", h.ListPeriods)
			r.Get("/next", h.NextPeriod)
		})

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Capacity Engine</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Capacity Engine API</h1>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/units/metrics">/api/units/metrics</a> - Unit metrics</li>
<li><a href="/api/state">/api/state</a> - Statewide rollup</li>
<li><a href="/api/history">/api/history</a> - History ledger</li>
<li><a href="/api/scenarios">/api/scenarios</a> - Demo scenarios</li>
<li><a href="/metrics">/metrics</a> - Prometheus metrics</li>
</ul>
</body>
</html>`))
	})

	return r
}
