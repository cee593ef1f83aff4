package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pulseguard/pulseguard/internal/domain/jobs"
	"github.com/pulseguard/pulseguard/internal/domain/monitor"
	"github.com/pulseguard/pulseguard/internal/obs/retry"
)

// fastPolicy keeps the 3-attempt contract but drops the multi-second backoff.
func fastPolicy(name string) retry.Policy {
	p := retry.QueueDeliveryPolicy(name, zap.NewNop())
	p.Backoff = retry.ExpoJitter{Base: time.Millisecond, Max: 2 * time.Millisecond}
	return p
}

func newTestUsecase(reg jobs.Registry, ev jobs.ProbeEvents) *Usecase {
	return NewUsecase(reg, ev, zap.NewNop()).WithRetryPolicy(fastPolicy)
}

type memRegistry struct {
	mu      sync.Mutex
	jobs    map[string]*jobs.Job
	addErr  error
	addErrN int // fail this many Add calls, then succeed
}

func newMemRegistry() *memRegistry {
	return &memRegistry{jobs: map[string]*jobs.Job{}}
}

func (m *memRegistry) Add(_ context.Context, j *jobs.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addErrN > 0 {
		m.addErrN--
		return m.addErr
	}
	if _, ok := m.jobs[j.Key]; ok {
		return jobs.ErrDuplicateKey
	}
	cp := *j
	m.jobs[j.Key] = &cp
	return nil
}

func (m *memRegistry) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, key)
	return nil
}

func (m *memRegistry) List(context.Context) ([]*jobs.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*jobs.Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		out = append(out, j)
	}
	return out, nil
}

func (m *memRegistry) FetchDue(_ context.Context, now time.Time, limit int) ([]*jobs.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var due []*jobs.Job
	for _, j := range m.jobs {
		if !j.NextRun.After(now) && len(due) < limit {
			j.NextRun = j.NextRun.Add(j.Interval)
			due = append(due, j)
		}
	}
	return due, nil
}

type memEvents struct {
	mu        sync.Mutex
	published []string
	err       error
	errN      int
}

func (m *memEvents) PublishProbeRequested(_ context.Context, jobKey string, _ int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errN > 0 {
		m.errN--
		return m.err
	}
	m.published = append(m.published, jobKey)
	return nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func testMonitor(id int64, interval time.Duration) *monitor.Monitor {
	return &monitor.Monitor{ID: id, Interval: interval}
}

func TestSchedule_RegistersKeyedJob(t *testing.T) {
	reg := newMemRegistry()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	uc := newTestUsecase(reg, &memEvents{}).WithClock(fixedClock(now))

	require.NoError(t, uc.Schedule(context.Background(), testMonitor(42, time.Minute)))

	j, ok := reg.jobs["monitor-42"]
	require.True(t, ok)
	assert.Equal(t, int64(42), j.MonitorID)
	assert.Equal(t, now.Add(time.Minute), j.NextRun, "first firing waits one interval")
}

func TestSchedule_DuplicateIsAnError(t *testing.T) {
	reg := newMemRegistry()
	uc := newTestUsecase(reg, &memEvents{})
	m := testMonitor(1, time.Minute)

	require.NoError(t, uc.Schedule(context.Background(), m))
	err := uc.Schedule(context.Background(), m)
	assert.ErrorIs(t, err, ErrAlreadyScheduled)
}

func TestUnschedule_MissingIsNoop(t *testing.T) {
	uc := newTestUsecase(newMemRegistry(), &memEvents{})
	assert.NoError(t, uc.Unschedule(context.Background(), 999))
}

func TestReschedule_ReplacesJob(t *testing.T) {
	reg := newMemRegistry()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	uc := newTestUsecase(reg, &memEvents{}).WithClock(fixedClock(now))

	m := testMonitor(5, time.Minute)
	require.NoError(t, uc.Schedule(context.Background(), m))

	m.Interval = 5 * time.Minute
	require.NoError(t, uc.Reschedule(context.Background(), m))

	j := reg.jobs["monitor-5"]
	require.NotNil(t, j)
	assert.Equal(t, 5*time.Minute, j.Interval)
	assert.Equal(t, now.Add(5*time.Minute), j.NextRun)
}

func TestSchedule_RetriesTransientFailures(t *testing.T) {
	reg := newMemRegistry()
	reg.addErr = errors.New("registry unavailable")
	reg.addErrN = 2
	uc := newTestUsecase(reg, &memEvents{})

	require.NoError(t, uc.Schedule(context.Background(), testMonitor(9, time.Minute)))
	assert.Contains(t, reg.jobs, "monitor-9")
}

func TestSchedule_GivesUpAfterRetriesExhausted(t *testing.T) {
	reg := newMemRegistry()
	reg.addErr = errors.New("registry unavailable")
	reg.addErrN = 100
	uc := newTestUsecase(reg, &memEvents{})

	err := uc.Schedule(context.Background(), testMonitor(9, time.Minute))
	assert.Error(t, err)
}

func TestTick_PublishesDueJobs(t *testing.T) {
	reg := newMemRegistry()
	ev := &memEvents{}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	uc := newTestUsecase(reg, ev).WithClock(fixedClock(now))

	require.NoError(t, uc.Schedule(context.Background(), testMonitor(1, time.Minute)))
	require.NoError(t, uc.Schedule(context.Background(), testMonitor(2, time.Hour)))

	// Nothing is due one second in.
	uc = uc.WithClock(fixedClock(now.Add(time.Second)))
	fetched, sent, errs, err := uc.Tick(context.Background(), 10)
	require.NoError(t, err)
	assert.Zero(t, fetched+sent+errs)

	// One minute later only the 1m job fires.
	uc = uc.WithClock(fixedClock(now.Add(time.Minute)))
	fetched, sent, _, err = uc.Tick(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, fetched)
	assert.Equal(t, 1, sent)
	assert.Equal(t, []string{"monitor-1"}, ev.published)

	// The job advanced, so an immediate second tick is quiet.
	fetched, _, _, err = uc.Tick(context.Background(), 10)
	require.NoError(t, err)
	assert.Zero(t, fetched)
}

func TestTick_PublishFailureIsCounted(t *testing.T) {
	reg := newMemRegistry()
	ev := &memEvents{err: errors.New("broker down"), errN: 100}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	uc := newTestUsecase(reg, ev).WithClock(fixedClock(now))

	require.NoError(t, uc.Schedule(context.Background(), testMonitor(1, time.Minute)))

	uc = uc.WithClock(fixedClock(now.Add(time.Minute)))
	fetched, sent, errs, err := uc.Tick(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, fetched)
	assert.Zero(t, sent)
	assert.Equal(t, 1, errs)
}
