package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/user/bizanalyzer/pkg/metrics"
)

func crawlRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.PagesTotal.WithLabelValues("processed").Add(3)
	m.RetriesTotal.WithLabelValues("navigation_timeout").Inc()
	return reg
}

func TestStartMetricsServer(t *testing.T) {
	ms, err := startMetricsServer("127.0.0.1:0", crawlRegistry(), zap.NewNop())
	require.NoError(t, err)
	defer func() { assert.NoError(t, ms.Shutdown()) }()

	resp, err := http.Get("http://" + ms.addr + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `bizanalyzer_pages_total{status="processed"} 3`)
	assert.Contains(t, string(body), `bizanalyzer_retries_total{reason="navigation_timeout"} 1`)
}

func TestPushMetrics(t *testing.T) {
	var (
		method, path string
		body         []byte
	)
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer gateway.Close()

	require.NoError(t, pushMetrics(context.Background(), gateway.URL, "run-1", crawlRegistry()))

	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/metrics/job/bizanalyzer/run_id/run-1", path)
	assert.NotEmpty(t, body)
}

func TestPushMetrics_GatewayError(t *testing.T) {
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer gateway.Close()

	err := pushMetrics(context.Background(), gateway.URL, "run-1", crawlRegistry())
	assert.ErrorContains(t, err, "push metrics")
}

func TestOpenResultOutput(t *testing.T) {
	t.Run("stdout", func(t *testing.T) {
		var stdout bytes.Buffer
		w, closeOutput, err := openResultOutput("-", &stdout)
		require.NoError(t, err)
		_, err = io.WriteString(w, "{}\n")
		require.NoError(t, err)
		require.NoError(t, closeOutput())
		assert.Equal(t, "{}\n", stdout.String())
	})

	t.Run("file appends", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "results.jsonl")
		require.NoError(t, os.WriteFile(path, []byte("{\"run\":1}\n"), 0o600))

		w, closeOutput, err := openResultOutput(path, io.Discard)
		require.NoError(t, err)
		_, err = io.WriteString(w, "{\"run\":2}\n")
		require.NoError(t, err)
		require.NoError(t, closeOutput())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "{\"run\":1}\n{\"run\":2}\n", string(data))
	})
}
