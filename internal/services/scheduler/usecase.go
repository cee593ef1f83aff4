package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/pulseguard/pulseguard/internal/domain/jobs"
	"github.com/pulseguard/pulseguard/internal/domain/monitor"
	"github.com/pulseguard/pulseguard/internal/obs"
	"github.com/pulseguard/pulseguard/internal/obs/retry"
)

// ErrAlreadyScheduled is returned when a monitor's job key is already
// registered. Callers must Unschedule first; Reschedule does both.
var ErrAlreadyScheduled = errors.New("monitor already scheduled")

// Usecase owns the monitor -> recurring-job mapping. Registry writes go
// through the queue-delivery retry policy; after 3 attempts the error is
// surfaced as fatal for that operation.
type Usecase struct {
	jobs      jobs.Registry
	events    jobs.ProbeEvents
	log       *zap.Logger
	clock     func() time.Time
	policyFor func(name string) retry.Policy
}

func NewUsecase(reg jobs.Registry, events jobs.ProbeEvents, log *zap.Logger) *Usecase {
	if log == nil {
		log = zap.NewNop()
	}
	return &Usecase{
		jobs:      reg,
		events:    events,
		log:       log,
		clock:     func() time.Time { return time.Now().UTC() },
		policyFor: func(name string) retry.Policy { return retry.QueueDeliveryPolicy(name, log) },
	}
}

// WithClock fixes the usecase's notion of now, for tests.
func (u *Usecase) WithClock(clock func() time.Time) *Usecase {
	cp := *u
	cp.clock = clock
	return &cp
}

// WithRetryPolicy swaps the queue-delivery retry policy, for tests.
func (u *Usecase) WithRetryPolicy(policyFor func(name string) retry.Policy) *Usecase {
	cp := *u
	cp.policyFor = policyFor
	return &cp
}

// Schedule registers the recurring job for a monitor. Double-registering the
// same key is an error by contract.
func (u *Usecase) Schedule(ctx context.Context, m *monitor.Monitor) error {
	job := &jobs.Job{
		Key:       monitor.JobKey(m.ID),
		MonitorID: m.ID,
		Interval:  m.Interval,
		NextRun:   u.clock().Add(m.Interval),
	}
	err := retry.Do(ctx, func() error {
		if err := u.jobs.Add(ctx, job); err != nil {
			if errors.Is(err, jobs.ErrDuplicateKey) {
				return fmt.Errorf("%w: %s", ErrAlreadyScheduled, job.Key)
			}
			return err
		}
		return nil
	}, u.registryPolicy("job_add"))
	if err != nil {
		return fmt.Errorf("schedule %s: %w", job.Key, err)
	}
	return nil
}

// Unschedule removes the monitor's job. Removing a monitor that has no job is
// a no-op, not an error.
func (u *Usecase) Unschedule(ctx context.Context, monitorID int64) error {
	key := monitor.JobKey(monitorID)
	err := retry.Do(ctx, func() error {
		return u.jobs.Remove(ctx, key)
	}, u.registryPolicy("job_remove"))
	if err != nil {
		return fmt.Errorf("unschedule %s: %w", key, err)
	}
	return nil
}

// Reschedule re-registers the job with the monitor's current configuration.
func (u *Usecase) Reschedule(ctx context.Context, m *monitor.Monitor) error {
	if err := u.Unschedule(ctx, m.ID); err != nil {
		return err
	}
	return u.Schedule(ctx, m)
}

func (u *Usecase) Pause(ctx context.Context, monitorID int64) error {
	return u.Unschedule(ctx, monitorID)
}

func (u *Usecase) Resume(ctx context.Context, m *monitor.Monitor) error {
	return u.Schedule(ctx, m)
}

func (u *Usecase) registryPolicy(name string) retry.Policy {
	p := u.policyFor(name)
	retryable := p.Retryable
	p.Retryable = func(err error) bool {
		// A duplicate key never heals by retrying.
		return retryable(err) && !errors.Is(err, ErrAlreadyScheduled)
	}
	return p
}

// Tick claims due jobs and publishes one probe request per job. Returns
// (fetched, published, errors).
func (u *Usecase) Tick(ctx context.Context, limit int) (int, int, int, error) {
	if limit <= 0 {
		limit = 100
	}

	tr := otel.Tracer("scheduler.uc")
	ctxTick, span := tr.Start(ctx, "scheduler.tick",
		trace.WithAttributes(attribute.Int("batch.limit", limit)),
	)
	defer span.End()

	due, err := u.jobs.FetchDue(ctxTick, u.clock(), limit)
	if err != nil {
		span.RecordError(err)
		return 0, 0, 1, fmt.Errorf("fetch due: %w", err)
	}
	if len(due) == 0 {
		span.SetAttributes(attribute.Int("batch.fetched", 0))
		return 0, 0, 0, nil
	}
	span.SetAttributes(attribute.Int("batch.fetched", len(due)))

	published, errs := 0, 0
	for _, j := range due {
		_, sp := tr.Start(ctxTick, "scheduler.publish",
			trace.WithAttributes(
				attribute.String("job.key", j.Key),
				attribute.Int64("monitor.id", j.MonitorID),
			),
		)
		pubErr := retry.Do(ctxTick, func() error {
			return u.events.PublishProbeRequested(ctxTick, j.Key, j.MonitorID)
		}, u.policyFor("probe_publish"))
		if pubErr != nil {
			errs++
			sp.RecordError(pubErr)
			obs.WithTrace(ctxTick, u.log).Warn("publish probe request",
				zap.String("job_key", j.Key), zap.Error(pubErr))
			sp.End()
			continue
		}
		published++
		sp.End()
	}

	span.SetAttributes(
		attribute.Int("batch.published", published),
		attribute.Int("batch.errors", errs),
	)
	return len(due), published, errs, nil
}
