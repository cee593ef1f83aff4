package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pulseguard/pulseguard/internal/domain/jobs"
)

var _ jobs.Registry = (*JobRepoImpl)(nil)

// JobRepoImpl is the durable recurring-job registry. Jobs are keyed by string
// so reschedule works as remove-then-add across process restarts.
type JobRepoImpl struct{ db *DB }

func NewJobRepo(db *DB) *JobRepoImpl { return &JobRepoImpl{db: db} }

const (
	qJobInsert = `
INSERT INTO jobs (key, monitor_id, interval_sec, next_run)
VALUES ($1, $2, $3, $4)
ON CONFLICT (key) DO NOTHING;`

	qJobDelete = `DELETE FROM jobs WHERE key = $1;`

	qJobList = `
SELECT key, monitor_id, interval_sec, next_run, created_at, updated_at
FROM jobs
ORDER BY key;`

	qJobFetchDue = `
SELECT key, monitor_id, interval_sec, next_run, created_at, updated_at
FROM jobs
WHERE next_run <= $1
ORDER BY next_run
FOR UPDATE SKIP LOCKED
LIMIT $2;`

	qJobBumpNextRun = `
UPDATE jobs
SET next_run = next_run + (interval_sec * INTERVAL '1 second'),
    updated_at = now()
WHERE key = ANY($1) AND next_run + (interval_sec * INTERVAL '1 second') > $2;`

	// A job that fell far behind is realigned to one interval from now instead
	// of firing a burst of catch-up runs.
	qJobRealign = `
UPDATE jobs
SET next_run = $2 + (interval_sec * INTERVAL '1 second'),
    updated_at = now()
WHERE key = ANY($1) AND next_run + (interval_sec * INTERVAL '1 second') <= $2;`
)

func scanJob(row pgx.Row, j *jobs.Job) error {
	var intervalSec int
	if err := row.Scan(&j.Key, &j.MonitorID, &intervalSec, &j.NextRun, &j.CreatedAt, &j.UpdatedAt); err != nil {
		return fmt.Errorf("scan job: %w", err)
	}
	j.Interval = time.Duration(intervalSec) * time.Second
	return nil
}

func (r *JobRepoImpl) Add(ctx context.Context, j *jobs.Job) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if j.NextRun.IsZero() {
		j.NextRun = time.Now().UTC()
	}
	cmd, err := r.db.execQueryer(ctx).Exec(ctx, qJobInsert,
		j.Key, j.MonitorID, int(j.Interval/time.Second), j.NextRun,
	)
	if err != nil {
		return fmt.Errorf("add job: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return jobs.ErrDuplicateKey
	}
	return nil
}

func (r *JobRepoImpl) Remove(ctx context.Context, key string) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	// Missing key is a no-op by contract.
	if _, err := r.db.execQueryer(ctx).Exec(ctx, qJobDelete, key); err != nil {
		return fmt.Errorf("remove job: %w", err)
	}
	return nil
}

func (r *JobRepoImpl) List(ctx context.Context) ([]*jobs.Job, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qJobList)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []*jobs.Job
	for rows.Next() {
		var j jobs.Job
		if err := scanJob(rows, &j); err != nil {
			return nil, err
		}
		out = append(out, &j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (r *JobRepoImpl) FetchDue(ctx context.Context, now time.Time, limit int) ([]*jobs.Job, error) {
	if limit <= 0 {
		limit = 100
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, qJobFetchDue, now, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch due jobs: %w", err)
	}

	var (
		out  []*jobs.Job
		keys []string
	)
	for rows.Next() {
		var j jobs.Job
		if err := scanJob(rows, &j); err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, &j)
		keys = append(keys, j.Key)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	if _, err := tx.Exec(ctx, qJobBumpNextRun, keys, now); err != nil {
		return nil, fmt.Errorf("bump next_run: %w", err)
	}
	if _, err := tx.Exec(ctx, qJobRealign, keys, now); err != nil {
		return nil, fmt.Errorf("realign next_run: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return out, nil
}
