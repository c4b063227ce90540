package usecase_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/bizanalyzer/internal/entity"
	"github.com/user/bizanalyzer/internal/usecase"
	"github.com/user/bizanalyzer/pkg/metrics"
)

func TestRunAggregator_ConcurrentUpdates(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	agg := usecase.NewRunAggregator("run-1", m)

	var wg sync.WaitGroup
	for range 100 {
		wg.Add(3)
		go func() { defer wg.Done(); assert.NoError(t, agg.RecordSuccess()) }()
		go func() { defer wg.Done(); assert.NoError(t, agg.RecordFailure()) }()
		go func() { defer wg.Done(); assert.NoError(t, agg.RecordRetry()) }()
	}
	wg.Wait()

	snap := agg.Snapshot()
	assert.Equal(t, 100, snap.PagesProcessed)
	assert.Equal(t, 100, snap.PagesFailed)
	assert.Equal(t, 100, snap.RetriesIssued)
	assert.Equal(t, entity.RunRunning, snap.Status)
	assert.Equal(t, 100.0, testutil.ToFloat64(m.PagesTotal.WithLabelValues("succeeded")))
	assert.Equal(t, 100.0, testutil.ToFloat64(m.PagesTotal.WithLabelValues("failed")))
}

func TestRunAggregator_FinalizeOnce(t *testing.T) {
	agg := usecase.NewRunAggregator("run-1", nil)
	require.NoError(t, agg.RecordSuccess())

	stats, err := agg.Finalize(entity.RunSucceeded, nil)
	require.NoError(t, err)
	assert.Equal(t, entity.RunSucceeded, stats.Status)
	require.NotNil(t, stats.EndedAt)
	assert.False(t, stats.EndedAt.Before(stats.StartedAt))

	again, err := agg.Finalize(entity.RunFailed, errors.New("late"))
	assert.ErrorIs(t, err, entity.ErrRunFinalized)
	assert.Equal(t, entity.RunSucceeded, again.Status)
	assert.Empty(t, again.Error)

	assert.ErrorIs(t, agg.RecordSuccess(), entity.ErrRunFinalized)
	assert.ErrorIs(t, agg.RecordFailure(), entity.ErrRunFinalized)
	assert.ErrorIs(t, agg.RecordRetry(), entity.ErrRunFinalized)
	assert.Equal(t, 1, agg.Snapshot().PagesProcessed)
}

func TestRunAggregator_FinalizeFailedKeepsError(t *testing.T) {
	agg := usecase.NewRunAggregator("run-1", nil)

	stats, err := agg.Finalize(entity.RunFailed, entity.ErrRunTimeout)
	require.NoError(t, err)
	assert.Equal(t, entity.RunFailed, stats.Status)
	assert.Equal(t, entity.ErrRunTimeout.Error(), stats.Error)
}

func TestRunAggregator_FinalizeRejectsRunning(t *testing.T) {
	agg := usecase.NewRunAggregator("run-1", nil)

	_, err := agg.Finalize(entity.RunRunning, nil)
	require.Error(t, err)

	_, err = agg.Finalize(entity.RunSucceeded, nil)
	assert.NoError(t, err)
}
