// darkbot DLQ — возвращает задачи из dead letter queue в основную очередь.
//
// Сообщения обрабатываются строго по одному. Envelope подтверждается
// только после подтверждённой публикации восстановленной задачи.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shaiso/darkbot/internal/config"
	"github.com/shaiso/darkbot/internal/mq"
	"github.com/shaiso/darkbot/internal/recovery"
	"github.com/shaiso/darkbot/internal/repo"
	"github.com/shaiso/darkbot/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		telemetry.SetupLogger("darkbot-dlq", "INFO", "json").Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Инициализируем structured logging
	logger := telemetry.SetupLogger("darkbot-dlq", cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting darkbot-dlq")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// RabbitMQ
	mqConn, err := mq.NewConnection(cfg.RabbitMQURL, "darkbot-dlq", logger)
	if err != nil {
		logger.Error("failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer mqConn.Close()

	topology := mq.NewTopology(cfg.Queues)
	if err := topology.Setup(ctx, mqConn); err != nil {
		logger.Error("failed to setup topology", "error", err)
		os.Exit(1)
	}

	processorCfg := recovery.Config{
		Conn:          mqConn,
		Queue:         topology.DLQQueue,
		Publisher:     mq.NewPublisher(mqConn, topology, logger),
		MaxRecoveries: cfg.DLQ.MaxRecoveries,
		RetryDelay:    cfg.DLQ.RetryDelay,
		Priority:      cfg.Queues.DLQPriority,
		Logger:        logger,
	}

	// PostgreSQL (опционально)
	pool, err := repo.NewPool(ctx, cfg.DBURL)
	switch {
	case errors.Is(err, repo.ErrNotConfigured):
		logger.Info("DB_URL not set, parked dead letters are only logged")
	case err != nil:
		logger.Warn("database not available, parked dead letters are only logged", "error", err)
	default:
		defer pool.Close()
		if err := repo.EnsureSchema(ctx, pool); err != nil {
			logger.Error("failed to ensure schema", "error", err)
			os.Exit(1)
		}
		processorCfg.Parked = repo.NewDeadLetterRepo(pool)
		logger.Info("database connected")
	}

	processor := recovery.New(processorCfg)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := processor.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("dlq consumer error", "error", err)
			cancel()
		}
	}()

	// HTTP mux: /healthz + /metrics
	server := &http.Server{
		Addr:              ":" + cfg.DLQPort,
		Handler:           telemetry.OpsMux(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()

	processor.Stop()
	<-done

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	server.Shutdown(shutdownCtx)

	logger.Info("darkbot-dlq stopped")
}
