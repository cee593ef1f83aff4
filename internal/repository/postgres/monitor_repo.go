package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pulseguard/pulseguard/internal/domain/monitor"
)

var _ monitor.Repo = (*MonitorRepoImpl)(nil)

type MonitorRepoImpl struct {
	db *DB
}

func NewMonitorRepo(db *DB) *MonitorRepoImpl { return &MonitorRepoImpl{db: db} }

const monitorColumns = `
id, owner_id, name, url, http_method, timeout_ms, headers, body,
interval_sec, max_latency_ms, max_consecutive_failures, paused,
last_checked_at, created_at, updated_at`

const (
	qMonitorInsert = `
INSERT INTO monitors (owner_id, name, url, http_method, timeout_ms, headers, body,
                      interval_sec, max_latency_ms, max_consecutive_failures, paused)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
RETURNING ` + monitorColumns + `;`

	qMonitorGetByID = `
SELECT ` + monitorColumns + ` FROM monitors WHERE id = $1;`

	qMonitorListByOwner = `
SELECT ` + monitorColumns + ` FROM monitors WHERE owner_id = $1 ORDER BY id DESC;`

	qMonitorUpdate = `
UPDATE monitors
SET name = $2, url = $3, http_method = $4, timeout_ms = $5, headers = $6, body = $7,
    interval_sec = $8, max_latency_ms = $9, max_consecutive_failures = $10,
    updated_at = now()
WHERE id = $1;`

	qMonitorDelete = `DELETE FROM monitors WHERE id = $1;`

	qMonitorTouch = `UPDATE monitors SET last_checked_at = $2 WHERE id = $1;`

	qMonitorSetPaused = `UPDATE monitors SET paused = $2, updated_at = now() WHERE id = $1;`
)

func scanMonitor(row pgx.Row, m *monitor.Monitor) error {
	var (
		timeoutMs    int64
		intervalSec  int
		maxLatencyMs int64
		headers      []byte
	)
	if err := row.Scan(
		&m.ID, &m.OwnerID, &m.Name, &m.URL, &m.HTTPMethod,
		&timeoutMs, &headers, &m.Body,
		&intervalSec, &maxLatencyMs, &m.MaxConsecutiveFailures, &m.Paused,
		&m.LastCheckedAt, &m.CreatedAt, &m.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("scan monitor: %w", err)
	}
	m.Timeout = time.Duration(timeoutMs) * time.Millisecond
	m.Interval = time.Duration(intervalSec) * time.Second
	m.MaxLatency = time.Duration(maxLatencyMs) * time.Millisecond
	return unmarshalJSON(headers, &m.Headers)
}

func monitorArgs(m *monitor.Monitor) ([]any, error) {
	headers, err := marshalJSON(m.Headers)
	if err != nil {
		return nil, err
	}
	return []any{
		m.Name, m.URL, m.HTTPMethod,
		m.Timeout.Milliseconds(), headers, m.Body,
		int(m.Interval / time.Second), m.MaxLatency.Milliseconds(),
		m.MaxConsecutiveFailures,
	}, nil
}

func (r *MonitorRepoImpl) Create(ctx context.Context, m *monitor.Monitor) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	args, err := monitorArgs(m)
	if err != nil {
		return err
	}
	args = append([]any{m.OwnerID}, append(args, m.Paused)...)
	row := r.db.execQueryer(ctx).QueryRow(ctx, qMonitorInsert, args...)
	return scanMonitor(row, m)
}

func (r *MonitorRepoImpl) GetByID(ctx context.Context, id int64) (*monitor.Monitor, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var m monitor.Monitor
	if err := scanMonitor(r.db.execQueryer(ctx).QueryRow(ctx, qMonitorGetByID, id), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MonitorRepoImpl) ListByOwner(ctx context.Context, ownerID int64) ([]*monitor.Monitor, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qMonitorListByOwner, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query monitors: %w", err)
	}
	defer rows.Close()

	var out []*monitor.Monitor
	for rows.Next() {
		var m monitor.Monitor
		if err := scanMonitor(rows, &m); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (r *MonitorRepoImpl) Update(ctx context.Context, m *monitor.Monitor) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	args, err := monitorArgs(m)
	if err != nil {
		return err
	}
	args = append([]any{m.ID}, args...)
	cmd, err := r.db.execQueryer(ctx).Exec(ctx, qMonitorUpdate, args...)
	if err != nil {
		return fmt.Errorf("update monitor: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MonitorRepoImpl) Delete(ctx context.Context, id int64) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	cmd, err := r.db.Pool.Exec(ctx, qMonitorDelete, id)
	if err != nil {
		return fmt.Errorf("delete monitor: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MonitorRepoImpl) TouchLastChecked(ctx context.Context, id int64, at time.Time) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	_, err := r.db.execQueryer(ctx).Exec(ctx, qMonitorTouch, id, at)
	return err
}

func (r *MonitorRepoImpl) SetPaused(ctx context.Context, id int64, paused bool) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	cmd, err := r.db.execQueryer(ctx).Exec(ctx, qMonitorSetPaused, id, paused)
	if err != nil {
		return fmt.Errorf("set paused: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
