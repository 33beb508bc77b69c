/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. RequestID - tags each request for log correlation
  2. Logger    - request logging
  3. Recoverer - panic recovery (500 instead of crash)
  4. CORS      - allowed origins come from configuration
  5. metrics   - per-route request counters and latency histograms

SEE ALSO:
  - handlers.go: the handler functions routed here
  - metrics/metrics.go: the collectors the metrics middleware feeds
*/

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/warp/charge-engine/metrics"
)

// NewRouter builds the HTTP routing table. allowedOrigins feeds the CORS
// middleware; an empty list disables cross-origin access.
func NewRouter(h *Handler, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(metricsMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Post("/calculate", h.Calculate)

		r.Route("/charges", func(r chi.Router) {
			r.Get("/", h.ListCharges)
			r.Post("/", h.CreateCharge)
			r.Get("/{id}", h.GetCharge)
			r.Post("/{id}/void", h.VoidCharge)
		})

		r.Route("/staff", func(r chi.Router) {
			r.Get("/", h.ListStaff)
			r.Post("/", h.CreateStaff)
			r.Get("/{id}", h.GetStaff)
			r.Get("/{id}/statement", h.GetStatement)
			r.Get("/{id}/upcoming", h.GetUpcoming)
		})

		r.Route("/schedules", func(r chi.Router) {
			r.Get("/", h.ListSchedules)
			r.Post("/", h.CreateSchedule)
			r.Get("/{id}", h.GetSchedule)
			r.Post("/{id}/deactivate", h.DeactivateSchedule)
		})

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/generate", h.GenerateCharges)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	r.Get("/healthz", h.Health)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/", indexPage)

	return r
}

// metricsMiddleware records request counts and latency per route pattern.
// The pattern is resolved after the handler runs so parameterized routes
// collapse into one label value ("/api/charges/{id}", not each ID).
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()
		metrics.HTTPRequestDurationSeconds.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// indexPage serves a minimal landing page listing the API surface.
func indexPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Charge Engine</title></head>
<body>
<h1>Charge Engine</h1>
<p>Proration and recurring billing for staff charges.</p>
<ul>
<li><code>POST /api/calculate</code> preview a charge</li>
<li><code>POST /api/charges</code> post a charge</li>
<li><code>GET /api/staff/{id}/statement</code> monthly statement</li>
<li><code>GET /api/staff/{id}/upcoming</code> projected charges</li>
<li><code>POST /api/admin/generate</code> run monthly billing</li>
<li><code>GET /api/scenarios</code> demo data sets</li>
<li><code>GET /healthz</code> liveness</li>
<li><code>GET /metrics</code> Prometheus metrics</li>
</ul>
</body>
</html>
`))
}
