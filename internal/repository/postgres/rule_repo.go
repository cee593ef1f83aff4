package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pulseguard/pulseguard/internal/domain/alert"
)

var _ alert.RuleRepo = (*RuleRepoImpl)(nil)

type RuleRepoImpl struct{ db *DB }

func NewRuleRepo(db *DB) *RuleRepoImpl { return &RuleRepoImpl{db: db} }

const ruleColumns = `
id, owner_id, monitor_id, type, severity, enabled, conditions, channels, created_at, updated_at`

const (
	qRuleInsert = `
INSERT INTO alert_rules (owner_id, monitor_id, type, severity, enabled, conditions, channels)
VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING ` + ruleColumns + `;`

	qRuleGetByID = `
SELECT ` + ruleColumns + ` FROM alert_rules WHERE id = $1;`

	// Rules bound to the monitor plus the owner's global rules
	// (monitor_id IS NULL).
	qRulesEnabled = `
SELECT ` + ruleColumns + `
FROM alert_rules
WHERE enabled
  AND (monitor_id = $1 OR (monitor_id IS NULL AND owner_id = $2))
ORDER BY id;`
)

func scanRule(row pgx.Row, r *alert.Rule) error {
	var (
		ruleType   string
		conditions []byte
		channels   []byte
	)
	if err := row.Scan(
		&r.ID, &r.OwnerID, &r.MonitorID, &ruleType, &r.Severity, &r.Enabled,
		&conditions, &channels, &r.CreatedAt, &r.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("scan alert rule: %w", err)
	}
	r.Type = alert.RuleType(ruleType)
	if err := unmarshalJSON(conditions, &r.Conditions); err != nil {
		return err
	}
	return unmarshalJSON(channels, &r.Channels)
}

func (rp *RuleRepoImpl) Create(ctx context.Context, r *alert.Rule) error {
	ctx, cancel := rp.db.withTimeout(ctx)
	defer cancel()

	conditions, err := marshalJSON(r.Conditions)
	if err != nil {
		return err
	}
	channels, err := marshalJSON(r.Channels)
	if err != nil {
		return err
	}
	row := rp.db.execQueryer(ctx).QueryRow(ctx, qRuleInsert,
		r.OwnerID, r.MonitorID, string(r.Type), r.Severity, r.Enabled, conditions, channels,
	)
	return scanRule(row, r)
}

func (rp *RuleRepoImpl) GetByID(ctx context.Context, id int64) (*alert.Rule, error) {
	ctx, cancel := rp.db.withTimeout(ctx)
	defer cancel()

	var r alert.Rule
	if err := scanRule(rp.db.Pool.QueryRow(ctx, qRuleGetByID, id), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (rp *RuleRepoImpl) FindEnabled(ctx context.Context, monitorID, ownerID int64) ([]*alert.Rule, error) {
	ctx, cancel := rp.db.withTimeout(ctx)
	defer cancel()

	rows, err := rp.db.Pool.Query(ctx, qRulesEnabled, monitorID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query enabled rules: %w", err)
	}
	defer rows.Close()

	var out []*alert.Rule
	for rows.Next() {
		var r alert.Rule
		if err := scanRule(rows, &r); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}
