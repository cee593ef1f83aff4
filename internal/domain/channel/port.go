package channel

import (
	"context"
	"time"
)

type Repo interface {
	Create(ctx context.Context, c *Channel) error
	GetByID(ctx context.Context, id int64) (*Channel, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]*Channel, error)
	RecordTest(ctx context.Context, id int64, at time.Time, success bool) error
}
