package entity_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/bizanalyzer/internal/entity"
)

func strPtr(s string) *string { return &s }

func TestBusinessAnalysis_JSONShapes(t *testing.T) {
	tests := []struct {
		name     string
		analysis entity.BusinessAnalysis
		want     string
	}{
		{
			name: "parsed",
			analysis: entity.ParsedAnalysis(&entity.BusinessProfile{
				Title:        strPtr("Acme"),
				Observations: []string{"Family owned"},
				ContactInfo:  &entity.ContactInfo{Phone: strPtr("+1 555 0100")},
			}),
			want: `{"title":"Acme","observations":["Family owned"],"contactInfo":{"phone":"+1 555 0100"}}`,
		},
		{
			name:     "unparsed",
			analysis: entity.UnparsedAnalysis("I cannot analyze this"),
			want:     `{"rawModelOutput":"I cannot analyze this"}`,
		},
		{
			name:     "unavailable",
			analysis: entity.UnavailableAnalysis("503 from provider", "Acme Bakery"),
			want:     `{"errorMessage":"503 from provider","truncatedSourceText":"Acme Bakery"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.analysis)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))

			var back entity.BusinessAnalysis
			require.NoError(t, json.Unmarshal(data, &back))
			assert.Equal(t, tt.analysis.Kind, back.Kind)
		})
	}
}

func TestBusinessAnalysis_UnknownKind(t *testing.T) {
	_, err := json.Marshal(entity.BusinessAnalysis{})
	assert.Error(t, err)
}

func TestStartURL_AcceptsStringOrObject(t *testing.T) {
	var in entity.JobInput
	require.NoError(t, json.Unmarshal([]byte(`{
		"startUrls": ["https://a.example/", {"url": "https://b.example/"}],
		"maxPagesToCrawl": 3
	}`), &in))

	assert.Equal(t, []string{"https://a.example/", "https://b.example/"}, in.URLs())
	assert.Equal(t, 3, in.MaxPagesToCrawl)
	assert.False(t, in.IncludeScreenshots)
}

func TestIsRetryableAndErrorKind(t *testing.T) {
	tests := []struct {
		err       error
		retryable bool
		kind      string
	}{
		{err: fmt.Errorf("wrap: %w", entity.ErrNavigationTimeout), retryable: true, kind: "navigation_timeout"},
		{err: entity.ErrTargetCrashed, retryable: true, kind: "target_crashed"},
		{err: entity.ErrRenderFailed, retryable: true, kind: "render_failed"},
		{err: &entity.AnalysisUnavailableError{Message: "x"}, retryable: true, kind: "analysis_unavailable"},
		{err: entity.NonRetryable("bad url %q", "x"), retryable: false, kind: "non_retryable"},
		{err: &entity.ConfigurationError{Field: "f", Reason: "r"}, retryable: false, kind: "configuration"},
		{err: context.Canceled, retryable: false, kind: "unknown"},
		{err: errors.New("mystery"), retryable: true, kind: "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.retryable, entity.IsRetryable(tt.err))
			assert.Equal(t, tt.kind, entity.ErrorKind(tt.err))
		})
	}
	assert.False(t, entity.IsRetryable(nil))
	assert.Empty(t, entity.ErrorKind(nil))
}

func TestRunStats_Summary(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Second)
	stats := entity.RunStats{
		RunID:          "run-1",
		PagesProcessed: 4,
		PagesFailed:    1,
		RetriesIssued:  3,
		StartedAt:      start,
		EndedAt:        &end,
		Status:         entity.RunSucceeded,
	}

	got := stats.Summary()
	assert.Equal(t, entity.RunSucceeded, got.Status)
	assert.Equal(t, 4, got.PagesProcessed)
	assert.Equal(t, 1, got.Errors)
	assert.Equal(t, 3, got.Retries)
	assert.Equal(t, 5, got.TotalPagesCrawled)
	assert.Equal(t, 1, got.FailedRequests)
	assert.Equal(t, end, got.EndTime)
	require.NotNil(t, got.CrawlingTime)
	assert.Equal(t, int64(2000), *got.CrawlingTime)

	running := entity.RunStats{Status: entity.RunRunning}.Summary()
	assert.Nil(t, running.CrawlingTime)
}
