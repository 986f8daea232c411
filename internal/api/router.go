package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MikeSquared-Agency/Lectern/internal/analyzer"
	"github.com/MikeSquared-Agency/Lectern/internal/broker"
	"github.com/MikeSquared-Agency/Lectern/internal/inference"
)

// Deps wires the router. Broker and Model are optional.
type Deps struct {
	Analyzer     *analyzer.Analyzer
	Available    []string
	Broker       *broker.Broker
	Model        *inference.Handle
	AdminToken   string
	MaxBodyBytes int64
}

func NewRouter(d Deps, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(RateLimitMiddleware(120))

	analyze := NewAnalyzeHandler(d.Analyzer)
	catalog := NewCatalogHandler(d.Analyzer, d.Available)
	admin := NewAdminHandler(d.Broker, d.Model)

	r.Route("/api/v1", func(r chi.Router) {
		r.With(MaxBodyMiddleware(d.MaxBodyBytes)).Post("/analyze", analyze.Analyze)
		r.Get("/dimensions", catalog.Dimensions)
		r.Get("/weights", catalog.Weights)
		r.Get("/history", catalog.History)

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(d.AdminToken))
			r.Get("/admin/stats", admin.Stats)
			r.Post("/admin/model/reset", admin.ResetModel)
		})
	})

	return r
}

// NewMetricsRouter serves /health and /metrics. A nil gatherer uses the
// default registry.
func NewMetricsRouter(g prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if g == nil {
		r.Handle("/metrics", promhttp.Handler())
	} else {
		r.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	}
	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
