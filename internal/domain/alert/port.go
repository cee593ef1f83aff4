package alert

import "context"

type RuleRepo interface {
	Create(ctx context.Context, r *Rule) error
	GetByID(ctx context.Context, id int64) (*Rule, error)

	// FindEnabled returns every enabled rule bound to the monitor plus every
	// enabled global rule of the owner.
	FindEnabled(ctx context.Context, monitorID, ownerID int64) ([]*Rule, error)
}

type HistoryRepo interface {
	Insert(ctx context.Context, h *History) error
	GetByID(ctx context.Context, id int64) (*History, error)
	Update(ctx context.Context, h *History) error

	// FindOpen returns the unresolved record for (rule, monitor), or nil.
	FindOpen(ctx context.Context, ruleID, monitorID int64) (*History, error)
	ListByMonitor(ctx context.Context, monitorID int64, limit int) ([]*History, error)
}
