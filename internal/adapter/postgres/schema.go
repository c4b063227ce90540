package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS page_results (
	id            BIGSERIAL PRIMARY KEY,
	run_id        TEXT        NOT NULL,
	url           TEXT        NOT NULL,
	analysis_kind TEXT        NOT NULL,
	analysis      JSONB       NOT NULL,
	screenshot_id TEXT,
	created_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS page_results_run_idx ON page_results (run_id, id);

CREATE TABLE IF NOT EXISTS failed_requests (
	id                    BIGSERIAL PRIMARY KEY,
	run_id                TEXT        NOT NULL,
	request_id            TEXT        NOT NULL,
	url                   TEXT        NOT NULL,
	error_kind            TEXT        NOT NULL,
	failure_reason        TEXT        NOT NULL,
	attempt_count         INT         NOT NULL,
	truncated_source_text TEXT,
	last_attempt_at       TIMESTAMPTZ NOT NULL,
	UNIQUE (run_id, request_id)
);
`

// EnsureSchema creates the tables used by the repositories when missing.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
