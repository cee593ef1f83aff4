package probe_worker

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pulseguard/pulseguard/internal/domain/monitor"
	"github.com/pulseguard/pulseguard/internal/domain/result"
	"github.com/pulseguard/pulseguard/internal/repository/postgres"
)

// AlertSink evaluates alert rules for a fresh result and dispatches
// notifications. Implemented by the engine usecase.
type AlertSink interface {
	CheckAndSendAlerts(ctx context.Context, m *monitor.Monitor, res *result.CheckResult, consecutiveFailures int) error
}

// Handler runs one probe firing end to end: probe, persist, bookkeeping,
// alert evaluation. Store errors before persistence propagate so the message
// is redelivered; everything after the result is stored is log-only.
type Handler struct {
	Log      *zap.Logger
	Monitors monitor.Repo
	Results  result.Repo
	Exec     *Executor
	Alerts   AlertSink

	// Tx, when set, commits the result insert and the last-checked touch
	// together.
	Tx postgres.Transactor
}

func (h *Handler) HandleProbe(ctx context.Context, monitorID int64) (*result.CheckResult, error) {
	if monitorID <= 0 {
		return nil, nil
	}

	m, err := h.Monitors.GetByID(ctx, monitorID)
	if err != nil {
		return nil, fmt.Errorf("get monitor %d: %w", monitorID, err)
	}
	if m.Paused {
		// The job was removed on pause but a request may already be in flight.
		h.Log.Debug("skipping paused monitor", zap.Int64("monitor_id", m.ID))
		return nil, nil
	}

	res := h.Exec.Execute(ctx, m)

	if err := h.persist(ctx, m, res); err != nil {
		return nil, fmt.Errorf("persist result for monitor %d: %w", m.ID, err)
	}

	failures, err := h.Results.CountRecentFailures(ctx, m.ID, result.DefaultFailureWindow)
	if err != nil {
		h.Log.Warn("count recent failures", zap.Int64("monitor_id", m.ID), zap.Error(err))
		failures = 0
	}

	if err := h.Alerts.CheckAndSendAlerts(ctx, m, res, failures); err != nil {
		h.Log.Error("alert evaluation", zap.Int64("monitor_id", m.ID), zap.Error(err))
	}
	return res, nil
}

func (h *Handler) persist(ctx context.Context, m *monitor.Monitor, res *result.CheckResult) error {
	write := func(wctx context.Context) error {
		if err := h.Results.Insert(wctx, res); err != nil {
			return fmt.Errorf("insert result: %w", err)
		}
		if err := h.Monitors.TouchLastChecked(wctx, m.ID, res.CreatedAt); err != nil {
			return fmt.Errorf("touch last_checked_at: %w", err)
		}
		return nil
	}
	if h.Tx != nil {
		return h.Tx.WithTx(ctx, write)
	}
	return write(ctx)
}
