package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pulseguard/pulseguard/internal/domain/alert"
)

var _ alert.HistoryRepo = (*HistoryRepoImpl)(nil)

type HistoryRepoImpl struct{ db *DB }

func NewHistoryRepo(db *DB) *HistoryRepoImpl { return &HistoryRepoImpl{db: db} }

const historyColumns = `
id, rule_id, monitor_id, status, title, message, metadata, channels_notified,
triggered_at, acknowledged_at, acknowledged_by, resolved_at`

const (
	qHistoryInsert = `
INSERT INTO alert_history (rule_id, monitor_id, status, title, message, metadata,
                           channels_notified, triggered_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
RETURNING id;`

	qHistoryGetByID = `
SELECT ` + historyColumns + ` FROM alert_history WHERE id = $1;`

	qHistoryUpdate = `
UPDATE alert_history
SET status = $2, acknowledged_at = $3, acknowledged_by = $4, resolved_at = $5
WHERE id = $1;`

	qHistoryFindOpen = `
SELECT ` + historyColumns + `
FROM alert_history
WHERE rule_id = $1 AND monitor_id = $2 AND status <> 'resolved'
ORDER BY triggered_at DESC
LIMIT 1;`

	qHistoryByMonitor = `
SELECT ` + historyColumns + `
FROM alert_history
WHERE monitor_id = $1
ORDER BY triggered_at DESC
LIMIT $2;`
)

func scanHistory(row pgx.Row, h *alert.History) error {
	var (
		status   string
		metadata []byte
		notified []byte
	)
	if err := row.Scan(
		&h.ID, &h.RuleID, &h.MonitorID, &status, &h.Title, &h.Message,
		&metadata, &notified, &h.TriggeredAt,
		&h.AcknowledgedAt, &h.AcknowledgedBy, &h.ResolvedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("scan alert history: %w", err)
	}
	h.Status = alert.HistoryStatus(status)
	if err := unmarshalJSON(metadata, &h.Metadata); err != nil {
		return err
	}
	return unmarshalJSON(notified, &h.ChannelsNotified)
}

func (rp *HistoryRepoImpl) Insert(ctx context.Context, h *alert.History) error {
	ctx, cancel := rp.db.withTimeout(ctx)
	defer cancel()

	metadata, err := marshalJSON(h.Metadata)
	if err != nil {
		return err
	}
	notified, err := marshalJSON(h.ChannelsNotified)
	if err != nil {
		return err
	}
	if h.TriggeredAt.IsZero() {
		h.TriggeredAt = time.Now().UTC()
	}
	return rp.db.execQueryer(ctx).QueryRow(ctx, qHistoryInsert,
		h.RuleID, h.MonitorID, string(h.Status), h.Title, h.Message,
		metadata, notified, h.TriggeredAt,
	).Scan(&h.ID)
}

func (rp *HistoryRepoImpl) GetByID(ctx context.Context, id int64) (*alert.History, error) {
	ctx, cancel := rp.db.withTimeout(ctx)
	defer cancel()

	var h alert.History
	if err := scanHistory(rp.db.Pool.QueryRow(ctx, qHistoryGetByID, id), &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (rp *HistoryRepoImpl) Update(ctx context.Context, h *alert.History) error {
	ctx, cancel := rp.db.withTimeout(ctx)
	defer cancel()

	cmd, err := rp.db.execQueryer(ctx).Exec(ctx, qHistoryUpdate,
		h.ID, string(h.Status), h.AcknowledgedAt, h.AcknowledgedBy, h.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("update alert history: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (rp *HistoryRepoImpl) FindOpen(ctx context.Context, ruleID, monitorID int64) (*alert.History, error) {
	ctx, cancel := rp.db.withTimeout(ctx)
	defer cancel()

	var h alert.History
	err := scanHistory(rp.db.Pool.QueryRow(ctx, qHistoryFindOpen, ruleID, monitorID), &h)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (rp *HistoryRepoImpl) ListByMonitor(ctx context.Context, monitorID int64, limit int) ([]*alert.History, error) {
	if limit <= 0 {
		limit = 50
	}
	ctx, cancel := rp.db.withTimeout(ctx)
	defer cancel()

	rows, err := rp.db.Pool.Query(ctx, qHistoryByMonitor, monitorID, limit)
	if err != nil {
		return nil, fmt.Errorf("query alert history: %w", err)
	}
	defer rows.Close()

	var out []*alert.History
	for rows.Next() {
		var h alert.History
		if err := scanHistory(rows, &h); err != nil {
			return nil, err
		}
		out = append(out, &h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}
