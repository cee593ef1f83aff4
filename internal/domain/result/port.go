package result

import (
	"context"
	"time"
)

type Repo interface {
	Insert(ctx context.Context, r *CheckResult) error
	ListByMonitor(ctx context.Context, monitorID int64, limit int) ([]*CheckResult, error)
	ListRange(ctx context.Context, monitorID int64, from, to time.Time) ([]*CheckResult, error)

	// CountRecentFailures returns the streak of most-recent consecutive down
	// results within the given window size; any up result terminates the streak.
	CountRecentFailures(ctx context.Context, monitorID int64, window int) (int, error)
}
