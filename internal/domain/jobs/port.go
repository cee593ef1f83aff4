package jobs

import (
	"context"
	"errors"
	"time"
)

// ErrDuplicateKey is returned by Add when a job with the same key already
// exists. Callers that want replace semantics must Remove first.
var ErrDuplicateKey = errors.New("job key already registered")

// Registry is the durable recurring-job store. The contract, not the backing
// store, is what matters: any at-least-once scheduler backend satisfies it.
type Registry interface {
	Add(ctx context.Context, j *Job) error
	// Remove deletes the job with the given key. Removing a missing key is a
	// no-op, not an error.
	Remove(ctx context.Context, key string) error
	List(ctx context.Context) ([]*Job, error)

	// FetchDue claims up to limit due jobs and advances their next_run by one
	// interval. Claimed jobs are invisible to concurrent fetchers.
	FetchDue(ctx context.Context, now time.Time, limit int) ([]*Job, error)
}

// ProbeEvents is the delivery path from the scheduler to the probe workers.
type ProbeEvents interface {
	PublishProbeRequested(ctx context.Context, jobKey string, monitorID int64) error
}
