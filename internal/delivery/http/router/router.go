package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/user/bizanalyzer/internal/delivery/http/handler"
	"github.com/user/bizanalyzer/internal/delivery/http/middleware"
	"github.com/user/bizanalyzer/pkg/metrics"
)

func New(h *handler.Handler, m *metrics.Metrics, gatherer prometheus.Gatherer, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Metrics(m))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))

	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/api/health", h.HandleHealthCheck)

	r.Route("/api/runs/{runID}", func(r chi.Router) {
		r.Get("/", h.HandleGetRun)
		r.Get("/config", h.HandleGetRunConfig)
		r.Get("/results", h.HandleGetRunResults)
		r.Get("/screenshots/{screenshotID}", h.HandleGetScreenshot)
	})

	return r
}
