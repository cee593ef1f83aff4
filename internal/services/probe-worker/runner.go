package probe_worker

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	kafkax "github.com/pulseguard/pulseguard/internal/repository/kafka"
)

const defaultConcurrency = 16

// Runner consumes ProbeRequested events and fans firings out to a bounded
// pool. Messages are committed once a slot is acquired; a firing that fails
// mid-way is logged and counted rather than redelivered, since probe results
// are point-in-time samples and the next interval produces a fresh one.
type Runner struct {
	log   *zap.Logger
	cons  *kafkax.Consumer
	h     *Handler
	sem   *semaphore.Weighted
	slots int64

	mMsgs    prometheus.Counter
	mProbes  prometheus.Counter
	mUp      prometheus.Counter
	mDown    prometheus.Counter
	mErrors  prometheus.Counter
	mLatency prometheus.Histogram
}

func NewRunner(log *zap.Logger, cons *kafkax.Consumer, h *Handler, concurrency int) *Runner {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Runner{
		log:   log,
		cons:  cons,
		h:     h,
		sem:   semaphore.NewWeighted(int64(concurrency)),
		slots: int64(concurrency),
		mMsgs: promauto.NewCounter(prometheus.CounterOpts{
			Name: "probe_messages_consumed_total", Help: "ProbeRequested messages consumed",
		}),
		mProbes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "probe_firings_total", Help: "Probe firings executed",
		}),
		mUp: promauto.NewCounter(prometheus.CounterOpts{
			Name: "probe_up_total", Help: "UP results",
		}),
		mDown: promauto.NewCounter(prometheus.CounterOpts{
			Name: "probe_down_total", Help: "DOWN results",
		}),
		mErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "probe_errors_total", Help: "Errors",
		}),
		mLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "probe_firing_duration_seconds",
			Help:    "Full firing duration, probe through alert evaluation",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (r *Runner) Run(ctx context.Context) error {
	handler := kafkax.JSONHandler(func(hctx context.Context, _ []byte, msg *kafkax.ProbeRequested) error {
		r.mMsgs.Inc()
		if err := r.sem.Acquire(hctx, 1); err != nil {
			return err
		}
		go func(monitorID int64) {
			defer r.sem.Release(1)
			r.fire(ctx, monitorID)
		}(msg.MonitorID)
		return nil
	})

	err := r.cons.Consume(ctx, handler)

	// Drain in-flight firings before reporting shutdown.
	_ = r.sem.Acquire(context.Background(), r.slots)
	r.sem.Release(r.slots)

	if err != nil && !errors.Is(err, context.Canceled) {
		r.mErrors.Inc()
		r.log.Warn("kafka consume", zap.Error(err))
		return err
	}
	return ctx.Err()
}

func (r *Runner) fire(ctx context.Context, monitorID int64) {
	r.mProbes.Inc()
	timer := prometheus.NewTimer(r.mLatency)
	defer timer.ObserveDuration()

	res, err := r.h.HandleProbe(ctx, monitorID)
	if err != nil {
		r.mErrors.Inc()
		r.log.Warn("probe firing", zap.Int64("monitor_id", monitorID), zap.Error(err))
		return
	}
	if res == nil {
		return
	}
	if res.Up {
		r.mUp.Inc()
	} else {
		r.mDown.Inc()
	}
}
