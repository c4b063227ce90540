package repository

import (
	"context"

	"github.com/user/bizanalyzer/internal/entity"
)

// ResultSink receives one PageResult per processed page, in arrival order.
type ResultSink interface {
	// Append stores a result. Records are never updated afterwards.
	Append(ctx context.Context, result *entity.PageResult) error
	// ListByRun returns the results of a run in insertion order.
	ListByRun(ctx context.Context, runID string) ([]*entity.PageResult, error)
}

// FailedRequestRepository keeps a row per terminally failed request.
type FailedRequestRepository interface {
	Save(ctx context.Context, failed *entity.FailedRequest) error
	ListByRun(ctx context.Context, runID string) ([]*entity.FailedRequest, error)
}
