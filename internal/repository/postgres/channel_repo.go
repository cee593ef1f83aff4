package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pulseguard/pulseguard/internal/domain/channel"
)

var _ channel.Repo = (*ChannelRepoImpl)(nil)

type ChannelRepoImpl struct{ db *DB }

func NewChannelRepo(db *DB) *ChannelRepoImpl { return &ChannelRepoImpl{db: db} }

const channelColumns = `
id, owner_id, name, kind, enabled, email_to, webhook_url, webhook_headers,
quiet_hours, last_test_at, last_test_success, created_at, updated_at`

const (
	qChannelInsert = `
INSERT INTO notification_channels (owner_id, name, kind, enabled, email_to,
                                   webhook_url, webhook_headers, quiet_hours)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
RETURNING ` + channelColumns + `;`

	qChannelGetByID = `
SELECT ` + channelColumns + ` FROM notification_channels WHERE id = $1;`

	qChannelListByOwner = `
SELECT ` + channelColumns + ` FROM notification_channels WHERE owner_id = $1 ORDER BY id;`

	qChannelRecordTest = `
UPDATE notification_channels
SET last_test_at = $2, last_test_success = $3, updated_at = now()
WHERE id = $1;`
)

func scanChannel(row pgx.Row, c *channel.Channel) error {
	var (
		kind       string
		emailTo    []byte
		headers    []byte
		quietHours []byte
	)
	if err := row.Scan(
		&c.ID, &c.OwnerID, &c.Name, &kind, &c.Enabled, &emailTo,
		&c.WebhookURL, &headers, &quietHours,
		&c.LastTestAt, &c.LastTestSuccess, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("scan channel: %w", err)
	}
	c.Kind = channel.Kind(kind)
	if err := unmarshalJSON(emailTo, &c.EmailTo); err != nil {
		return err
	}
	if err := unmarshalJSON(headers, &c.WebhookHeaders); err != nil {
		return err
	}
	if len(quietHours) > 0 && string(quietHours) != "null" {
		c.QuietHours = &channel.QuietHours{}
		return unmarshalJSON(quietHours, c.QuietHours)
	}
	return nil
}

func (rp *ChannelRepoImpl) Create(ctx context.Context, c *channel.Channel) error {
	ctx, cancel := rp.db.withTimeout(ctx)
	defer cancel()

	emailTo, err := marshalJSON(c.EmailTo)
	if err != nil {
		return err
	}
	headers, err := marshalJSON(c.WebhookHeaders)
	if err != nil {
		return err
	}
	var quietHours []byte
	if c.QuietHours != nil {
		if quietHours, err = marshalJSON(c.QuietHours); err != nil {
			return err
		}
	}
	row := rp.db.execQueryer(ctx).QueryRow(ctx, qChannelInsert,
		c.OwnerID, c.Name, string(c.Kind), c.Enabled, emailTo,
		c.WebhookURL, headers, quietHours,
	)
	return scanChannel(row, c)
}

func (rp *ChannelRepoImpl) GetByID(ctx context.Context, id int64) (*channel.Channel, error) {
	ctx, cancel := rp.db.withTimeout(ctx)
	defer cancel()

	var c channel.Channel
	if err := scanChannel(rp.db.Pool.QueryRow(ctx, qChannelGetByID, id), &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (rp *ChannelRepoImpl) ListByOwner(ctx context.Context, ownerID int64) ([]*channel.Channel, error) {
	ctx, cancel := rp.db.withTimeout(ctx)
	defer cancel()

	rows, err := rp.db.Pool.Query(ctx, qChannelListByOwner, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query channels: %w", err)
	}
	defer rows.Close()

	var out []*channel.Channel
	for rows.Next() {
		var c channel.Channel
		if err := scanChannel(rows, &c); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (rp *ChannelRepoImpl) RecordTest(ctx context.Context, id int64, at time.Time, success bool) error {
	ctx, cancel := rp.db.withTimeout(ctx)
	defer cancel()

	cmd, err := rp.db.execQueryer(ctx).Exec(ctx, qChannelRecordTest, id, at, success)
	if err != nil {
		return fmt.Errorf("record channel test: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
