package monitor

import (
	"strconv"
	"time"
)

type Monitor struct {
	ID                     int64             `json:"id"`
	OwnerID                int64             `json:"owner_id"`
	Name                   string            `json:"name"`
	URL                    string            `json:"url"`
	HTTPMethod             string            `json:"http_method"`
	Timeout                time.Duration     `json:"timeout"`
	Headers                map[string]string `json:"headers"`
	Body                   string            `json:"body"`
	Interval               time.Duration     `json:"interval"`
	MaxLatency             time.Duration     `json:"max_latency"`
	MaxConsecutiveFailures int               `json:"max_consecutive_failures"`
	Paused                 bool              `json:"paused"`
	LastCheckedAt          *time.Time        `json:"last_checked_at"`
	CreatedAt              time.Time         `json:"created_at"`
	UpdatedAt              time.Time         `json:"updated_at"`
}

// JobKey is the stable identifier of the recurring check-job for a monitor.
// Keys survive process restarts, so reschedule works as remove-then-add.
func JobKey(id int64) string {
	return "monitor-" + strconv.FormatInt(id, 10)
}
