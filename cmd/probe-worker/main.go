package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	config "github.com/pulseguard/pulseguard/internal/config/probe-worker"
	"github.com/pulseguard/pulseguard/internal/notify"
	"github.com/pulseguard/pulseguard/internal/obs"
	kafkaRepo "github.com/pulseguard/pulseguard/internal/repository/kafka"
	pg "github.com/pulseguard/pulseguard/internal/repository/postgres"
	"github.com/pulseguard/pulseguard/internal/services/engine"
	probe "github.com/pulseguard/pulseguard/internal/services/probe-worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatal(err)
	}

	l, err := obs.NewLogger(cfg.Log.AsLoggerConfig())
	if err != nil {
		log.Fatal(err)
	}
	l.Info("starting probe-worker",
		zap.Any("kafka_in", cfg.In),
		zap.Int("concurrency", cfg.Worker.Concurrency),
		zap.String("metrics_addr", cfg.Worker.MetricsAddr),
	)

	otelCloser, err := obs.SetupOTel(ctx, cfg.OTEL.AsOTELConfig())
	if err != nil {
		l.Fatal("otel init", zap.Error(err))
	}
	defer func() { _ = otelCloser.Shutdown(context.Background()) }()

	db, err := pg.New(ctx, cfg.DB)
	if err != nil {
		l.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	cons := kafkaRepo.NewConsumer(&kafkaRepo.ConsumerConfig{
		Brokers: cfg.In.Brokers,
		GroupID: cfg.In.GroupID,
		Topic:   cfg.In.Topic,
		Logger:  l,
	})
	defer func() { _ = cons.Close() }()

	ms := obs.BootstrapMetricsServer(cfg.Worker.MetricsAddr, func(ctx context.Context) error {
		hctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		return db.Pool.Ping(hctx)
	}, l)

	monitors := pg.NewMonitorRepo(db)
	results := pg.NewResultRepo(db)
	rules := pg.NewRuleRepo(db)
	history := pg.NewHistoryRepo(db)

	channels := pg.NewChannelRepo(db)
	mailer := notify.NewMailer(cfg.SMTP, l)
	webhook := notify.NewWebhookSender(cfg.Webhook.Timeout)
	disp := notify.NewDispatcher(l, mailer, webhook, channels)
	tester := notify.NewTester(l, mailer, webhook, channels)

	// Alert evaluation never touches the job registry, so no scheduler here.
	eng := engine.NewUsecase(l, monitors, results, rules, history, nil, disp).
		WithChannelTester(channels, tester)

	handler := &probe.Handler{
		Log:      l,
		Monitors: monitors,
		Results:  results,
		Exec:     probe.NewExecutor(probe.NewHTTPClient(cfg.HTTP), cfg.HTTP.UserAgent),
		Alerts:   eng,
		Tx:       pg.NewTransactor(db, l),
	}
	runner := probe.NewRunner(l, cons, handler, cfg.Worker.Concurrency)

	errCh := make(chan error, 1)
	go func() { errCh <- runner.Run(ctx) }()

	l.Info("probe-worker started")

	select {
	case <-ctx.Done():
	case err = <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			l.Error("runner error", zap.Error(err))
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = ms.Shutdown(shCtx)
	l.Info("bye")
}
