package kafka

import (
	"context"
	"time"

	"github.com/pulseguard/pulseguard/internal/domain/jobs"
)

// ProbeRequested is the wire event carried from the scheduler to the probe
// workers. Delivery is at-least-once; workers must tolerate duplicates.
type ProbeRequested struct {
	JobKey      string    `json:"job_key"`
	MonitorID   int64     `json:"monitor_id"`
	RequestedAt time.Time `json:"requested_at"`
}

type ProbeEventsKafka struct {
	p *Producer
}

func NewProbeEventsKafka(p *Producer) *ProbeEventsKafka { return &ProbeEventsKafka{p: p} }

var _ jobs.ProbeEvents = (*ProbeEventsKafka)(nil)

func (e *ProbeEventsKafka) PublishProbeRequested(ctx context.Context, jobKey string, monitorID int64) error {
	return e.p.PublishJSON(ctx, KeyFromInt64(monitorID), ProbeRequested{
		JobKey:      jobKey,
		MonitorID:   monitorID,
		RequestedAt: time.Now().UTC(),
	})
}
