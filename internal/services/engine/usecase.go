package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/pulseguard/pulseguard/internal/alerting"
	"github.com/pulseguard/pulseguard/internal/domain/alert"
	"github.com/pulseguard/pulseguard/internal/domain/channel"
	"github.com/pulseguard/pulseguard/internal/domain/monitor"
	"github.com/pulseguard/pulseguard/internal/domain/result"
	"github.com/pulseguard/pulseguard/internal/notify"
	"github.com/pulseguard/pulseguard/internal/services/scheduler"
	"github.com/pulseguard/pulseguard/internal/stats"
)

const (
	MinInterval = 10 * time.Second
	MaxInterval = time.Hour
)

var (
	ErrInvalidInterval = fmt.Errorf("monitor interval must be between %s and %s", MinInterval, MaxInterval)
	ErrInvalidURL      = errors.New("monitor URL must not be empty")
)

var (
	mAlertsFired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "engine_alerts_fired_total", Help: "Alert firings dispatched",
	})
	mAlertsSuppressed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "engine_alerts_suppressed_total", Help: "Firings suppressed by an open alert",
	})
)

// Usecase is the orchestration core: monitor lifecycle tied to the job
// registry, metrics aggregation, and rule evaluation for fresh results.
type Usecase struct {
	log      *zap.Logger
	monitors monitor.Repo
	results  result.Repo
	rules    alert.RuleRepo
	history  alert.HistoryRepo
	sched    *scheduler.Usecase
	disp     *notify.Dispatcher
	channels channel.Repo
	tester   *notify.Tester
	clock    func() time.Time
}

func NewUsecase(
	log *zap.Logger,
	monitors monitor.Repo,
	results result.Repo,
	rules alert.RuleRepo,
	history alert.HistoryRepo,
	sched *scheduler.Usecase,
	disp *notify.Dispatcher,
) *Usecase {
	if log == nil {
		log = zap.NewNop()
	}
	return &Usecase{
		log:      log,
		monitors: monitors,
		results:  results,
		rules:    rules,
		history:  history,
		sched:    sched,
		disp:     disp,
		clock:    func() time.Time { return time.Now().UTC() },
	}
}

func (u *Usecase) WithClock(clock func() time.Time) *Usecase {
	cp := *u
	cp.clock = clock
	return &cp
}

// WithChannelTester enables TestNotificationChannel on this usecase.
func (u *Usecase) WithChannelTester(channels channel.Repo, tester *notify.Tester) *Usecase {
	cp := *u
	cp.channels = channels
	cp.tester = tester
	return &cp
}

func validateMonitor(m *monitor.Monitor) error {
	if strings.TrimSpace(m.URL) == "" {
		return ErrInvalidURL
	}
	if m.Interval < MinInterval || m.Interval > MaxInterval {
		return ErrInvalidInterval
	}
	return nil
}

// CreateMonitor validates and stores the monitor, then registers its
// recurring job unless it was created paused.
func (u *Usecase) CreateMonitor(ctx context.Context, m *monitor.Monitor) error {
	if err := validateMonitor(m); err != nil {
		return err
	}
	if m.HTTPMethod == "" {
		m.HTTPMethod = "GET"
	}
	if err := u.monitors.Create(ctx, m); err != nil {
		return fmt.Errorf("create monitor: %w", err)
	}
	if m.Paused {
		return nil
	}
	if err := u.sched.Schedule(ctx, m); err != nil {
		return fmt.Errorf("schedule monitor %d: %w", m.ID, err)
	}
	return nil
}

// UpdateMonitor stores the new configuration and replaces the monitor's job
// so the new interval takes effect from now.
func (u *Usecase) UpdateMonitor(ctx context.Context, m *monitor.Monitor) error {
	if err := validateMonitor(m); err != nil {
		return err
	}
	if err := u.monitors.Update(ctx, m); err != nil {
		return fmt.Errorf("update monitor: %w", err)
	}
	if m.Paused {
		return u.sched.Unschedule(ctx, m.ID)
	}
	return u.sched.Reschedule(ctx, m)
}

// DeleteMonitor removes the job first so no firing races the row delete.
func (u *Usecase) DeleteMonitor(ctx context.Context, id int64) error {
	if err := u.sched.Unschedule(ctx, id); err != nil {
		return err
	}
	if err := u.monitors.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete monitor: %w", err)
	}
	return nil
}

// PauseMonitor stops future firings. In-flight probes are not canceled.
func (u *Usecase) PauseMonitor(ctx context.Context, id int64) error {
	if err := u.monitors.SetPaused(ctx, id, true); err != nil {
		return fmt.Errorf("pause monitor: %w", err)
	}
	return u.sched.Pause(ctx, id)
}

func (u *Usecase) ResumeMonitor(ctx context.Context, id int64) error {
	m, err := u.monitors.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("resume monitor: %w", err)
	}
	if err := u.monitors.SetPaused(ctx, id, false); err != nil {
		return fmt.Errorf("resume monitor: %w", err)
	}
	m.Paused = false
	return u.sched.Resume(ctx, m)
}

// GetMonitorMetrics aggregates stored results over [from, to) into
// fixed-width buckets plus a range summary. interval is one of the accepted
// interval strings; anything else means one hour.
func (u *Usecase) GetMonitorMetrics(ctx context.Context, monitorID int64, from, to time.Time, interval string) (*stats.Aggregate, error) {
	rows, err := u.results.ListRange(ctx, monitorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	agg := stats.AggregateResults(rows, from, to, stats.ParseInterval(interval))
	return &agg, nil
}

// CheckAndSendAlerts evaluates every enabled rule for the monitor against a
// fresh result. Each firing that is not already covered by an open alert is
// dispatched and always audited, whatever the channels did.
func (u *Usecase) CheckAndSendAlerts(ctx context.Context, m *monitor.Monitor, res *result.CheckResult, consecutiveFailures int) error {
	rules, err := u.rules.FindEnabled(ctx, m.ID, m.OwnerID)
	if err != nil {
		return fmt.Errorf("find rules for monitor %d: %w", m.ID, err)
	}

	var errs []error
	for _, r := range rules {
		failures := consecutiveFailures
		// The handler counts over the default window; a rule demanding a
		// longer streak needs its own count.
		if w := alerting.Window(r); w > result.DefaultFailureWindow {
			failures, err = u.results.CountRecentFailures(ctx, m.ID, w)
			if err != nil {
				errs = append(errs, fmt.Errorf("count failures for rule %d: %w", r.ID, err))
				continue
			}
		}

		if !alerting.Evaluate(r, res, failures) {
			continue
		}

		open, err := u.history.FindOpen(ctx, r.ID, m.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("find open alert for rule %d: %w", r.ID, err))
			continue
		}
		if open != nil {
			mAlertsSuppressed.Inc()
			u.log.Debug("alert suppressed by open record",
				zap.Int64("rule_id", r.ID), zap.Int64("monitor_id", m.ID), zap.Int64("open_id", open.ID))
			continue
		}

		title := alerting.Title(r, m)
		message := alerting.Message(r, m, res, failures)
		notified := u.disp.Dispatch(ctx, r, m, res, title, message)

		rec := &alert.History{
			RuleID:    r.ID,
			MonitorID: m.ID,
			Status:    alert.StatusTriggered,
			Title:     title,
			Message:   message,
			Metadata: alert.Metadata{
				ResponseTime:        res.ResponseTime,
				StatusCode:          res.StatusCode,
				Error:               res.ErrorMessage,
				ConsecutiveFailures: failures,
			},
			ChannelsNotified: notified,
			TriggeredAt:      u.clock(),
		}
		if err := u.history.Insert(ctx, rec); err != nil {
			errs = append(errs, fmt.Errorf("persist alert for rule %d: %w", r.ID, err))
			continue
		}
		mAlertsFired.Inc()
		u.log.Info("alert fired",
			zap.Int64("rule_id", r.ID), zap.Int64("monitor_id", m.ID),
			zap.String("type", string(r.Type)), zap.String("title", title))
	}
	return errors.Join(errs...)
}

// TestNotificationChannel fires the channel's test delivery and records the
// outcome on the stored channel. The delivery error comes back to the caller.
func (u *Usecase) TestNotificationChannel(ctx context.Context, id int64) error {
	if u.channels == nil || u.tester == nil {
		return errors.New("channel testing is not configured")
	}
	ch, err := u.channels.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get channel %d: %w", id, err)
	}
	return u.tester.TestChannel(ctx, ch)
}

// AcknowledgeAlert moves a triggered record to acknowledged.
func (u *Usecase) AcknowledgeAlert(ctx context.Context, id int64, actor string) (*alert.History, error) {
	h, err := u.history.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get alert %d: %w", id, err)
	}
	if err := h.Acknowledge(actor, u.clock()); err != nil {
		return nil, err
	}
	if err := u.history.Update(ctx, h); err != nil {
		return nil, fmt.Errorf("update alert %d: %w", id, err)
	}
	return h, nil
}

// ResolveAlert closes a record; resolving an unacknowledged alert backfills
// the acknowledge fields with the resolver.
func (u *Usecase) ResolveAlert(ctx context.Context, id int64, actor string) (*alert.History, error) {
	h, err := u.history.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get alert %d: %w", id, err)
	}
	if err := h.Resolve(actor, u.clock()); err != nil {
		return nil, err
	}
	if err := u.history.Update(ctx, h); err != nil {
		return nil, fmt.Errorf("update alert %d: %w", id, err)
	}
	return h, nil
}
