package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pulseguard/pulseguard/internal/domain/result"
)

var _ result.Repo = (*ResultRepoImpl)(nil)

type ResultRepoImpl struct{ db *DB }

func NewResultRepo(db *DB) *ResultRepoImpl { return &ResultRepoImpl{db: db} }

const (
	qResultInsert = `
INSERT INTO check_results (monitor_id, status_code, response_time_ms, up,
                           error_message, failure_kind, response_headers, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
RETURNING id;`

	qResultsByMonitor = `
SELECT id, monitor_id, status_code, response_time_ms, up, error_message, failure_kind,
       response_headers, created_at
FROM check_results
WHERE monitor_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2;`

	qResultsRange = `
SELECT id, monitor_id, status_code, response_time_ms, up, error_message, failure_kind,
       response_headers, created_at
FROM check_results
WHERE monitor_id = $1 AND created_at >= $2 AND created_at < $3
ORDER BY created_at;`

	// Streak of most-recent down results inside the window: down rows that
	// come before the first up row, newest first.
	qRecentFailureStreak = `
WITH recent AS (
    SELECT up, row_number() OVER (ORDER BY created_at DESC, id DESC) AS rn
    FROM check_results
    WHERE monitor_id = $1
    ORDER BY created_at DESC, id DESC
    LIMIT $2
)
SELECT count(*)
FROM recent
WHERE NOT up
  AND rn < COALESCE((SELECT min(rn) FROM recent WHERE up), $2 + 1);`
)

func scanResult(row pgx.Rows, r *result.CheckResult) error {
	var (
		latencyMs int64
		headers   []byte
		kind      string
	)
	if err := row.Scan(
		&r.ID, &r.MonitorID, &r.StatusCode, &latencyMs, &r.Up,
		&r.ErrorMessage, &kind, &headers, &r.CreatedAt,
	); err != nil {
		return fmt.Errorf("scan check result: %w", err)
	}
	r.ResponseTime = time.Duration(latencyMs) * time.Millisecond
	r.FailureKind = result.FailureKind(kind)
	return unmarshalJSON(headers, &r.ResponseHeaders)
}

func (rp *ResultRepoImpl) Insert(ctx context.Context, r *result.CheckResult) error {
	ctx, cancel := rp.db.withTimeout(ctx)
	defer cancel()

	headers, err := marshalJSON(r.ResponseHeaders)
	if err != nil {
		return err
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	return rp.db.execQueryer(ctx).QueryRow(ctx, qResultInsert,
		r.MonitorID, r.StatusCode, r.ResponseTime.Milliseconds(), r.Up,
		r.ErrorMessage, string(r.FailureKind), headers, r.CreatedAt,
	).Scan(&r.ID)
}

func (rp *ResultRepoImpl) ListByMonitor(ctx context.Context, monitorID int64, limit int) ([]*result.CheckResult, error) {
	if limit <= 0 {
		limit = 50
	}
	ctx, cancel := rp.db.withTimeout(ctx)
	defer cancel()

	rows, err := rp.db.Pool.Query(ctx, qResultsByMonitor, monitorID, limit)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()
	return collectResults(rows)
}

func (rp *ResultRepoImpl) ListRange(ctx context.Context, monitorID int64, from, to time.Time) ([]*result.CheckResult, error) {
	ctx, cancel := rp.db.withTimeout(ctx)
	defer cancel()

	rows, err := rp.db.Pool.Query(ctx, qResultsRange, monitorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("query results range: %w", err)
	}
	defer rows.Close()
	return collectResults(rows)
}

func (rp *ResultRepoImpl) CountRecentFailures(ctx context.Context, monitorID int64, window int) (int, error) {
	if window <= 0 {
		window = result.DefaultFailureWindow
	}
	ctx, cancel := rp.db.withTimeout(ctx)
	defer cancel()

	var n int
	if err := rp.db.Pool.QueryRow(ctx, qRecentFailureStreak, monitorID, window).Scan(&n); err != nil {
		return 0, fmt.Errorf("count recent failures: %w", err)
	}
	return n, nil
}

func collectResults(rows pgx.Rows) ([]*result.CheckResult, error) {
	var out []*result.CheckResult
	for rows.Next() {
		var r result.CheckResult
		if err := scanResult(rows, &r); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}
