package monitor

import (
	"context"
	"time"
)

type Repo interface {
	Create(ctx context.Context, m *Monitor) error
	GetByID(ctx context.Context, id int64) (*Monitor, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]*Monitor, error)
	Update(ctx context.Context, m *Monitor) error
	Delete(ctx context.Context, id int64) error
	TouchLastChecked(ctx context.Context, id int64, at time.Time) error
	SetPaused(ctx context.Context, id int64, paused bool) error
}
