package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/bizanalyzer/internal/entity"
)

// FailedRequestRepoImpl records terminal failures in the failed_requests table.
type FailedRequestRepoImpl struct {
	db *pgxpool.Pool
}

// NewFailedRequestRepo creates a new instance of FailedRequestRepoImpl.
func NewFailedRequestRepo(db *pgxpool.Pool) *FailedRequestRepoImpl {
	return &FailedRequestRepoImpl{db: db}
}

// Save stores a terminal failure. A request fails terminally once per run, so a
// conflicting row only refreshes the diagnostic fields.
func (r *FailedRequestRepoImpl) Save(ctx context.Context, failed *entity.FailedRequest) error {
	query := `
		INSERT INTO failed_requests (run_id, request_id, url, error_kind, failure_reason, attempt_count, truncated_source_text, last_attempt_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8)
		ON CONFLICT (run_id, request_id) DO UPDATE SET
			error_kind = EXCLUDED.error_kind,
			failure_reason = EXCLUDED.failure_reason,
			attempt_count = EXCLUDED.attempt_count,
			truncated_source_text = EXCLUDED.truncated_source_text,
			last_attempt_at = EXCLUDED.last_attempt_at
		RETURNING id;
	`
	return r.db.QueryRow(ctx, query,
		failed.RunID,
		failed.RequestID,
		failed.URL,
		failed.ErrorKind,
		failed.FailureReason,
		failed.AttemptCount,
		failed.TruncatedSourceText,
		failed.LastAttemptAt,
	).Scan(&failed.ID)
}

// ListByRun retrieves the failures of a run.
func (r *FailedRequestRepoImpl) ListByRun(ctx context.Context, runID string) ([]*entity.FailedRequest, error) {
	query := `
		SELECT id, run_id, request_id, url, error_kind, failure_reason, attempt_count,
		       COALESCE(truncated_source_text, ''), last_attempt_at
		FROM failed_requests
		WHERE run_id = $1
		ORDER BY id ASC;
	`
	rows, err := r.db.Query(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var failed []*entity.FailedRequest
	for rows.Next() {
		var fr entity.FailedRequest
		if err := rows.Scan(
			&fr.ID,
			&fr.RunID,
			&fr.RequestID,
			&fr.URL,
			&fr.ErrorKind,
			&fr.FailureReason,
			&fr.AttemptCount,
			&fr.TruncatedSourceText,
			&fr.LastAttemptAt,
		); err != nil {
			return nil, err
		}
		failed = append(failed, &fr)
	}
	return failed, rows.Err()
}
