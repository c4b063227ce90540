package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/user/bizanalyzer/internal/delivery/http/response"
	"github.com/user/bizanalyzer/internal/entity"
	"github.com/user/bizanalyzer/internal/repository"
)

const healthTimeout = 2 * time.Second

// Pinger is a backing store that can report its connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type Handler struct {
	blobs    repository.BlobStore
	results  repository.ResultSink
	failures repository.FailedRequestRepository
	checks   map[string]Pinger
	logger   *zap.Logger
}

func NewHandler(
	blobs repository.BlobStore,
	results repository.ResultSink,
	failures repository.FailedRequestRepository,
	checks map[string]Pinger,
	logger *zap.Logger,
) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		blobs:    blobs,
		results:  results,
		failures: failures,
		checks:   checks,
		logger:   logger,
	}
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := response.HealthResponse{Status: "ok", Components: make(map[string]string, len(names))}
	for _, name := range names {
		if err := h.checks[name].Ping(ctx); err != nil {
			h.logger.Error("health check failed", zap.String("component", name), zap.Error(err))
			resp.Components[name] = "unhealthy"
			resp.Status = "degraded"
			continue
		}
		resp.Components[name] = "healthy"
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	h.writeJSON(w, status, resp)
}

func (h *Handler) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	var result entity.RunResult
	h.getBlob(w, r, repository.KeyCrawlerResult, &result)
}

func (h *Handler) HandleGetRunConfig(w http.ResponseWriter, r *http.Request) {
	var cfg entity.RunConfig
	h.getBlob(w, r, repository.KeyConfig, &cfg)
}

func (h *Handler) HandleGetRunResults(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	results, err := h.results.ListByRun(r.Context(), runID)
	if err != nil {
		h.logger.Error("failed to list page results", zap.String("run_id", runID), zap.Error(err))
		h.writeJSONError(w, "Could not retrieve results", http.StatusInternalServerError)
		return
	}
	failed, err := h.failures.ListByRun(r.Context(), runID)
	if err != nil {
		h.logger.Error("failed to list failed requests", zap.String("run_id", runID), zap.Error(err))
		h.writeJSONError(w, "Could not retrieve results", http.StatusInternalServerError)
		return
	}

	resp := response.RunResultsResponse{
		RunID:          runID,
		Results:        results,
		FailedRequests: failed,
	}
	if resp.Results == nil {
		resp.Results = []*entity.PageResult{}
	}
	if resp.FailedRequests == nil {
		resp.FailedRequests = []*entity.FailedRequest{}
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleGetScreenshot(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	screenshotID := chi.URLParam(r, "screenshotID")

	data, contentType, err := h.blobs.GetBytes(r.Context(), runID, repository.ScreenshotKey(screenshotID))
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			h.writeJSONError(w, "Screenshot not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to read screenshot", zap.String("run_id", runID), zap.String("screenshot_id", screenshotID), zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Error("failed to write screenshot", zap.Error(err))
	}
}

func (h *Handler) getBlob(w http.ResponseWriter, r *http.Request, key string, v any) {
	runID := chi.URLParam(r, "runID")
	if err := h.blobs.GetJSON(r.Context(), runID, key, v); err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			h.writeJSONError(w, "Run not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to read run record", zap.String("run_id", runID), zap.String("key", key), zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, v)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, response.ErrorResponse{Error: message})
}
