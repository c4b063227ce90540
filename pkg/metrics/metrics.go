package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	PagesTotal          *prometheus.CounterVec
	RetriesTotal        *prometheus.CounterVec
	RenderDuration      *prometheus.HistogramVec
	AnalysisTotal       *prometheus.CounterVec
	AnalysisDuration    prometheus.Histogram
	FrontierSize        prometheus.Gauge
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New registers the metrics on reg. Pass prometheus.DefaultRegisterer in main
// and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		PagesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bizanalyzer_pages_total",
			Help: "Pages that reached a terminal state.",
		}, []string{"status"}), // succeeded, failed
		RetriesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bizanalyzer_retries_total",
			Help: "Retries issued by the retry policy.",
		}, []string{"reason"}),
		RenderDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bizanalyzer_render_duration_seconds",
			Help:    "Duration of page renders.",
			Buckets: []float64{1, 5, 10, 15, 30, 60, 120},
		}, []string{"domain"}),
		AnalysisTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bizanalyzer_analysis_total",
			Help: "Analyses produced, by shape.",
		}, []string{"kind"}),
		AnalysisDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "bizanalyzer_analysis_duration_seconds",
			Help:    "Duration of model completion calls.",
			Buckets: prometheus.DefBuckets,
		}),
		FrontierSize: f.NewGauge(prometheus.GaugeOpts{
			Name: "bizanalyzer_frontier_size",
			Help: "Current number of requests in the frontier.",
		}),
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
	}
}
