// darkbot worker — выполняет задачи из основной и upload очередей.
//
// Worker:
//   - Получает TaskMessage из RabbitMQ
//   - Запускает pipeline для каждого instance с ограничением параллельности
//   - Повторно публикует задачу при ошибке уровня задачи
//   - Переводит задачу в DLQ, когда бюджет повторов исчерпан
//
// Workers масштабируются горизонтально.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shaiso/darkbot/internal/bots"
	"github.com/shaiso/darkbot/internal/config"
	"github.com/shaiso/darkbot/internal/generation"
	"github.com/shaiso/darkbot/internal/mq"
	"github.com/shaiso/darkbot/internal/platforms"
	"github.com/shaiso/darkbot/internal/repo"
	"github.com/shaiso/darkbot/internal/telemetry"
	"github.com/shaiso/darkbot/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		telemetry.SetupLogger("darkbot-worker", "INFO", "json").Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Инициализируем structured logging
	logger := telemetry.SetupLogger("darkbot-worker", cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting darkbot-worker")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := os.MkdirAll(cfg.VideosTmpDir, 0o755); err != nil {
		logger.Error("failed to create videos dir", "dir", cfg.VideosTmpDir, "error", err)
		os.Exit(1)
	}

	// Генератор текста (опционально)
	var generator generation.TextGenerator = generation.Unconfigured{}
	if gemini, err := generation.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, logger); err != nil {
		logger.Warn("text generator not configured, choices_bot will fail at scrape", "error", err)
	} else {
		generator = gemini
	}

	platformSet := platforms.DefaultSet(logger)
	registry := bots.DefaultRegistry(bots.Deps{
		Generator: generator,
		Platforms: platformSet,
		VideosDir: cfg.VideosTmpDir,
		Logger:    logger,
	})

	// RabbitMQ
	mqConn, err := mq.NewConnection(cfg.RabbitMQURL, "darkbot-worker", logger)
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

	workerCfg := worker.Config{
		Conn:                   mqConn,
		Publisher:              mq.NewPublisher(mqConn, topology, logger),
		Topology:               topology,
		Registry:               registry,
		Uploads:                platforms.NewUploads(cfg.VideosTmpDir, platformSet),
		MaxRetries:             cfg.Worker.MaxRetries,
		MaxConcurrentInstances: cfg.Worker.MaxConcurrentInstances,
		Concurrency:            cfg.Worker.Concurrency,
		RequeueDelay:           cfg.Worker.RequeueDelay,
		Logger:                 logger,
	}

	// PostgreSQL (опционально)
	pool, err := repo.NewPool(ctx, cfg.DBURL)
	switch {
	case errors.Is(err, repo.ErrNotConfigured):
		logger.Info("DB_URL not set, results are only logged")
	case err != nil:
		logger.Warn("database not available, results are only logged", "error", err)
	default:
		defer pool.Close()
		if err := repo.EnsureSchema(ctx, pool); err != nil {
			logger.Error("failed to ensure schema", "error", err)
			os.Exit(1)
		}
		workerCfg.Results = repo.NewResultRepo(pool)
		logger.Info("database connected")
	}

	w := worker.New(workerCfg)
	if err := w.Start(ctx); err != nil {
		logger.Error("failed to start worker", "error", err)
		os.Exit(1)
	}

	// HTTP mux: /healthz + /metrics
	server := &http.Server{
		Addr:              ":" + cfg.WorkerPort,
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

	// Останавливаем worker: обрабатываемые задачи дорабатывают
	w.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	server.Shutdown(shutdownCtx)

	logger.Info("darkbot-worker stopped")
}
