package jobs

import "time"

// Job is one entry in the durable recurring-job registry. Exactly one job
// exists per non-paused monitor, keyed by monitor.JobKey.
type Job struct {
	Key       string        `json:"key"`
	MonitorID int64         `json:"monitor_id"`
	Interval  time.Duration `json:"interval"`
	NextRun   time.Time     `json:"next_run"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}
