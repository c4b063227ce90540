package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/bizanalyzer/internal/entity"
)

// PageResultRepoImpl is the result sink backed by the page_results table.
type PageResultRepoImpl struct {
	db *pgxpool.Pool
}

// NewPageResultRepo creates a new instance of PageResultRepoImpl.
func NewPageResultRepo(db *pgxpool.Pool) *PageResultRepoImpl {
	return &PageResultRepoImpl{db: db}
}

// Append inserts the result. Rows are never updated.
func (r *PageResultRepoImpl) Append(ctx context.Context, result *entity.PageResult) error {
	analysisJSON, err := json.Marshal(result.Analysis)
	if err != nil {
		return fmt.Errorf("encode analysis: %w", err)
	}

	query := `
		INSERT INTO page_results (run_id, url, analysis_kind, analysis, screenshot_id, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6);
	`
	_, err = r.db.Exec(ctx, query,
		result.RunID,
		result.URL,
		string(result.Analysis.Kind),
		analysisJSON,
		result.ScreenshotID,
		result.Timestamp,
	)
	return err
}

// ListByRun returns the results of a run in insertion order.
func (r *PageResultRepoImpl) ListByRun(ctx context.Context, runID string) ([]*entity.PageResult, error) {
	query := `
		SELECT run_id, url, analysis, COALESCE(screenshot_id, ''), created_at
		FROM page_results
		WHERE run_id = $1
		ORDER BY id ASC;
	`
	rows, err := r.db.Query(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*entity.PageResult
	for rows.Next() {
		var (
			res          entity.PageResult
			analysisJSON []byte
		)
		if err := rows.Scan(&res.RunID, &res.URL, &analysisJSON, &res.ScreenshotID, &res.Timestamp); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(analysisJSON, &res.Analysis); err != nil {
			return nil, fmt.Errorf("decode analysis of %s: %w", res.URL, err)
		}
		results = append(results, &res)
	}
	return results, rows.Err()
}

// Ping checks database connectivity.
func (r *PageResultRepoImpl) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}
