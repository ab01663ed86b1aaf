// darkbot API — приём запросов на запуск ботов и загрузку видео.
//
// API валидирует запрос и публикует задачу в RabbitMQ.
// Вызывающая сторона получает только подтверждение постановки в очередь.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/darkbot/internal/api"
	"github.com/shaiso/darkbot/internal/bots"
	"github.com/shaiso/darkbot/internal/config"
	"github.com/shaiso/darkbot/internal/dispatch"
	"github.com/shaiso/darkbot/internal/mq"
	"github.com/shaiso/darkbot/internal/repo"
	"github.com/shaiso/darkbot/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		telemetry.SetupLogger("darkbot-api", "INFO", "json").Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Инициализируем structured logging
	logger := telemetry.SetupLogger("darkbot-api", cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting darkbot-api")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// RabbitMQ
	mqConn, err := mq.NewConnection(cfg.RabbitMQURL, "darkbot-api", logger)
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
	logger.Info("topology ready\n" + topology.Info())

	publisher := mq.NewPublisher(mqConn, topology, logger)

	// Реестр нужен только для проверки типа бота: стадии здесь не выполняются
	registry := bots.DefaultRegistry(bots.Deps{VideosDir: cfg.VideosTmpDir, Logger: logger})

	dispatcher := dispatch.New(dispatch.Config{
		Registry:  registry,
		Publisher: publisher,
		Priority:  cfg.Queues.Priority,
		Logger:    logger,
	})

	apiCfg := api.Config{Dispatcher: dispatcher, Logger: logger}

	// PostgreSQL (опционально)
	pool, err := repo.NewPool(ctx, cfg.DBURL)
	switch {
	case errors.Is(err, repo.ErrNotConfigured):
		logger.Info("DB_URL not set, result endpoints disabled")
	case err != nil:
		logger.Warn("database not available, result endpoints disabled", "error", err)
	default:
		defer pool.Close()
		if err := repo.EnsureSchema(ctx, pool); err != nil {
			logger.Error("failed to ensure schema", "error", err)
			os.Exit(1)
		}
		apiCfg.Results = repo.NewResultRepo(pool)
		apiCfg.Parked = repo.NewDeadLetterRepo(pool)
		logger.Info("database connected")
	}

	handler := api.NewHandler(apiCfg)

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	handler.RegisterRoutes(mux)

	server := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()
	logger.Info("shutting down")

	// Graceful shutdown с таймаутом 10 секунд
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("stopped")
}
