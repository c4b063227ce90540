package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.uber.org/zap"
)

const pushJob = "bizanalyzer"

// metricsServer exposes the registry of a running crawl.
type metricsServer struct {
	server *http.Server
	addr   string
}

func startMetricsServer(addr string, gatherer prometheus.Gatherer, log *zap.Logger) (*metricsServer, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen for metrics on %s: %w", addr, err)
	}
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	m := &metricsServer{
		server: &http.Server{
			Handler:      r,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		addr: ln.Addr().String(),
	}
	go func() {
		log.Info("Serving crawl metrics", zap.String("addr", m.addr))
		if err := m.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server stopped", zap.Error(err))
		}
	}()
	return m, nil
}

func (m *metricsServer) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return m.server.Shutdown(ctx)
}

// pushMetrics sends the registry to a Prometheus Pushgateway, grouped by run.
func pushMetrics(ctx context.Context, gatewayURL, runID string, gatherer prometheus.Gatherer) error {
	err := push.New(gatewayURL, pushJob).
		Gatherer(gatherer).
		Grouping("run_id", runID).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
