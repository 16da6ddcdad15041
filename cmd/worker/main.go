package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/KlistenesLima/krt-bank-sub001/config"
	infradb "github.com/KlistenesLima/krt-bank-sub001/infra/db"
	"github.com/KlistenesLima/krt-bank-sub001/infra/ledger"
	"github.com/KlistenesLima/krt-bank-sub001/infra/metrics"
	"github.com/KlistenesLima/krt-bank-sub001/infra/repository"
	"github.com/KlistenesLima/krt-bank-sub001/internal/core/broker"
	"github.com/KlistenesLima/krt-bank-sub001/internal/core/fraud"
	"github.com/KlistenesLima/krt-bank-sub001/internal/core/saga"
	"github.com/KlistenesLima/krt-bank-sub001/internal/core/worker"
)

// The worker binary runs the two background loops: the saga orchestrator and
// the outbox processor. Both stop cooperatively on SIGINT/SIGTERM.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := infradb.Connect(
		cfg.Database.Host, cfg.Database.Port,
		cfg.Database.User, cfg.Database.Password, cfg.Database.Name,
	)
	if err != nil {
		logger.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("connected to database")

	rabbit := broker.NewRabbitMQ(cfg.RabbitMQ.URL)
	if err := rabbit.Connect(); err != nil {
		logger.Error("failed to connect to rabbitmq", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer rabbit.Close()

	if err := rabbit.DeclareExchange(cfg.RabbitMQ.Exchange); err != nil {
		logger.Error("failed to declare exchange", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("connected to rabbitmq", slog.String("exchange", cfg.RabbitMQ.Exchange))

	registry := prometheus.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(registry)

	transferRepo := repository.NewTransferRepository(db, cfg.Saga.ClaimLease)
	outboxRepo := repository.NewOutboxRepository(db, cfg.Outbox.MaxRetries)
	publisher := broker.NewRabbitMQPublisher(rabbit.Channel, cfg.RabbitMQ.Exchange)

	ledgerClient := ledger.NewClient(ledger.Config{
		BaseURL:              cfg.Ledger.BaseURL,
		RequestTimeout:       cfg.Ledger.RequestTimeout,
		MaxAttempts:          uint64(cfg.Ledger.MaxAttempts),
		RetryInitialInterval: cfg.Ledger.RetryInitialInterval,
		BreakerFailures:      uint32(cfg.Ledger.BreakerFailures),
		BreakerCooldown:      cfg.Ledger.BreakerCooldown,
	}, logger)

	orchestrator := saga.NewOrchestrator(
		transferRepo,
		ledgerClient,
		fraud.NewEngine(),
		recorder,
		saga.Config{
			PollInterval: cfg.Saga.PollInterval,
			BatchSize:    cfg.Saga.BatchSize,
			HistoryLimit: cfg.Saga.HistoryLimit,
		},
		logger,
	)

	outboxWorker := worker.NewOutboxWorker(
		outboxRepo,
		publisher,
		recorder,
		worker.Config{
			PollInterval:   cfg.Outbox.PollInterval,
			BatchSize:      cfg.Outbox.BatchSize,
			PublishTimeout: cfg.Outbox.PublishTimeout,
		},
		logger,
	)

	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Outbox.MetricsPort),
		Handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", slog.String("error", err.Error()))
		}
	}()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		orchestrator.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		outboxWorker.Run(ctx)
	}()

	<-ctx.Done()
	logger.Info("shutting down workers")
	wg.Wait()

	if err := metricsServer.Shutdown(context.Background()); err != nil {
		logger.Error("metrics server shutdown error", slog.String("error", err.Error()))
	}
}
