package probe_worker

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pulseguard/pulseguard/internal/domain/monitor"
	"github.com/pulseguard/pulseguard/internal/domain/result"
)

type stubMonitors struct {
	m       *monitor.Monitor
	touched []time.Time
}

func (s *stubMonitors) Create(context.Context, *monitor.Monitor) error { return nil }

func (s *stubMonitors) GetByID(_ context.Context, id int64) (*monitor.Monitor, error) {
	if s.m == nil || s.m.ID != id {
		return nil, errors.New("monitor not found")
	}
	cp := *s.m
	return &cp, nil
}

func (s *stubMonitors) ListByOwner(context.Context, int64) ([]*monitor.Monitor, error) {
	return nil, nil
}
func (s *stubMonitors) Update(context.Context, *monitor.Monitor) error { return nil }
func (s *stubMonitors) Delete(context.Context, int64) error            { return nil }

func (s *stubMonitors) TouchLastChecked(_ context.Context, _ int64, at time.Time) error {
	s.touched = append(s.touched, at)
	return nil
}

func (s *stubMonitors) SetPaused(context.Context, int64, bool) error { return nil }

type stubResults struct {
	inserted  []*result.CheckResult
	insertErr error
	failures  int
}

func (s *stubResults) Insert(_ context.Context, r *result.CheckResult) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.inserted = append(s.inserted, r)
	return nil
}

func (s *stubResults) ListByMonitor(context.Context, int64, int) ([]*result.CheckResult, error) {
	return nil, nil
}

func (s *stubResults) ListRange(context.Context, int64, time.Time, time.Time) ([]*result.CheckResult, error) {
	return nil, nil
}

func (s *stubResults) CountRecentFailures(context.Context, int64, int) (int, error) {
	return s.failures, nil
}

type stubAlerts struct {
	calls   int
	lastRes *result.CheckResult
	lastCnt int
}

func (s *stubAlerts) CheckAndSendAlerts(_ context.Context, _ *monitor.Monitor, res *result.CheckResult, cnt int) error {
	s.calls++
	s.lastRes = res
	s.lastCnt = cnt
	return nil
}

func TestHandleProbe_FullSequence(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	monitors := &stubMonitors{m: &monitor.Monitor{ID: 1, URL: srv.URL, Timeout: time.Second}}
	results := &stubResults{failures: 2}
	alerts := &stubAlerts{}

	h := &Handler{
		Log:      zap.NewNop(),
		Monitors: monitors,
		Results:  results,
		Exec:     testExecutor(),
		Alerts:   alerts,
	}

	res, err := h.HandleProbe(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.Up)

	require.Len(t, results.inserted, 1, "result is persisted")
	require.Len(t, monitors.touched, 1, "last_checked_at is touched")
	assert.Equal(t, res.CreatedAt, monitors.touched[0])
	assert.Equal(t, 1, alerts.calls)
	assert.Equal(t, 2, alerts.lastCnt, "failure streak is handed to alert evaluation")
}

func TestHandleProbe_PausedMonitorSkips(t *testing.T) {
	monitors := &stubMonitors{m: &monitor.Monitor{ID: 1, URL: "http://x.invalid", Paused: true}}
	alerts := &stubAlerts{}

	h := &Handler{Log: zap.NewNop(), Monitors: monitors, Results: &stubResults{},
		Exec: testExecutor(), Alerts: alerts}

	res, err := h.HandleProbe(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.Zero(t, alerts.calls)
}

func TestHandleProbe_UnknownMonitorPropagates(t *testing.T) {
	h := &Handler{Log: zap.NewNop(), Monitors: &stubMonitors{}, Results: &stubResults{},
		Exec: testExecutor(), Alerts: &stubAlerts{}}

	_, err := h.HandleProbe(context.Background(), 404)
	assert.Error(t, err, "store errors propagate for redelivery")
}

func TestHandleProbe_InsertFailurePropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	monitors := &stubMonitors{m: &monitor.Monitor{ID: 1, URL: srv.URL, Timeout: time.Second}}
	results := &stubResults{insertErr: errors.New("db down")}
	alerts := &stubAlerts{}

	h := &Handler{Log: zap.NewNop(), Monitors: monitors, Results: results,
		Exec: testExecutor(), Alerts: alerts}

	_, err := h.HandleProbe(context.Background(), 1)
	assert.Error(t, err)
	assert.Zero(t, alerts.calls, "alerts are not evaluated for unpersisted results")
}

func TestHandleProbe_InvalidIDIsNoop(t *testing.T) {
	h := &Handler{Log: zap.NewNop(), Monitors: &stubMonitors{}, Results: &stubResults{},
		Exec: testExecutor(), Alerts: &stubAlerts{}}

	res, err := h.HandleProbe(context.Background(), 0)
	assert.NoError(t, err)
	assert.Nil(t, res)
}
