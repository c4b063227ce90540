package usecase

import (
	"fmt"
	"sync"
	"time"

	"github.com/user/bizanalyzer/internal/entity"
	"github.com/user/bizanalyzer/pkg/metrics"
)

// RunAggregator owns the RunStats of one run. It is safe for concurrent use.
type RunAggregator struct {
	mu        sync.Mutex
	stats     entity.RunStats
	finalized bool
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewRunAggregator starts a run record in the Running state.
func NewRunAggregator(runID string, m *metrics.Metrics) *RunAggregator {
	return newRunAggregator(runID, m, time.Now)
}

func newRunAggregator(runID string, m *metrics.Metrics, now func() time.Time) *RunAggregator {
	return &RunAggregator{
		stats: entity.RunStats{
			RunID:     runID,
			StartedAt: now(),
			Status:    entity.RunRunning,
		},
		metrics: m,
		now:     now,
	}
}

// RecordSuccess counts a processed page.
func (a *RunAggregator) RecordSuccess() error {
	return a.record(func(s *entity.RunStats) { s.PagesProcessed++ }, "succeeded")
}

// RecordFailure counts a terminally failed page.
func (a *RunAggregator) RecordFailure() error {
	return a.record(func(s *entity.RunStats) { s.PagesFailed++ }, "failed")
}

// RecordRetry counts a retry issued by the policy.
func (a *RunAggregator) RecordRetry() error {
	return a.record(func(s *entity.RunStats) { s.RetriesIssued++ }, "")
}

func (a *RunAggregator) record(update func(*entity.RunStats), pageStatus string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.finalized {
		return entity.ErrRunFinalized
	}
	update(&a.stats)
	if a.metrics != nil && pageStatus != "" {
		a.metrics.PagesTotal.WithLabelValues(pageStatus).Inc()
	}
	return nil
}

// Snapshot returns a copy of the current counters.
func (a *RunAggregator) Snapshot() entity.RunStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

// Finalize stamps endedAt, sets the terminal status and freezes the record.
// Calling it twice returns entity.ErrRunFinalized.
func (a *RunAggregator) Finalize(status entity.RunStatus, runErr error) (entity.RunStats, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.finalized {
		return a.stats, entity.ErrRunFinalized
	}
	if status != entity.RunSucceeded && status != entity.RunFailed {
		return a.stats, fmt.Errorf("finalize run: %q is not a terminal status", status)
	}
	ended := a.now()
	a.stats.EndedAt = &ended
	a.stats.Status = status
	if runErr != nil {
		a.stats.Error = runErr.Error()
	}
	a.finalized = true
	return a.stats, nil
}
