package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/shaiso/darkbot/internal/bots"
	"github.com/shaiso/darkbot/internal/domain"
	"github.com/shaiso/darkbot/internal/mq"
	"github.com/shaiso/darkbot/internal/pipeline"
	"github.com/shaiso/darkbot/internal/platforms"
)

// Default configuration values.
const (
	defaultMaxRetries   = 3
	defaultConcurrency  = 4
	defaultRequeueDelay = 5 * time.Second
)

// ResultStore сохраняет результаты instances (опционально).
type ResultStore interface {
	SaveResults(ctx context.Context, msg *domain.TaskMessage, results []domain.PipelineResult) error
}

// Worker потребляет задачи из рабочих очередей.
type Worker struct {
	// MQ
	conn      *mq.Connection
	topology  mq.Topology
	consumers []*mq.Consumer

	// Выполнение
	registry      *bots.Registry
	uploads       *platforms.Uploads
	router        *Router
	results       ResultStore
	maxConcurrent int
	concurrency   int
	requeueDelay  time.Duration

	// Lifecycle
	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	stopped    bool
	stoppedMu  sync.RWMutex
}

// Config — конфигурация Worker.
type Config struct {
	// MQ
	Conn      *mq.Connection
	Publisher Publisher
	Topology  mq.Topology

	// Registry — реестр ботов.
	Registry *bots.Registry

	// Uploads — загрузчик для upload очереди (опционально; без него
	// задачи загрузки считаются ошибкой уровня задачи).
	Uploads *platforms.Uploads

	// Results — хранилище результатов (опционально).
	Results ResultStore

	// MaxRetries — бюджет повторных доставок (default: 3).
	MaxRetries int

	// MaxConcurrentInstances — лимит параллельных instances (default: 10).
	MaxConcurrentInstances int

	// Concurrency — сколько задач обрабатывается одновременно на очередь (default: 4).
	Concurrency int

	// RequeueDelay — пауза перед nack с requeue, когда повторную публикацию
	// не удалось выполнить (default: 5s).
	RequeueDelay time.Duration

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Worker.
func New(cfg Config) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	maxConcurrent := cfg.MaxConcurrentInstances
	if maxConcurrent <= 0 {
		maxConcurrent = pipeline.DefaultMaxConcurrent
	}

	requeueDelay := cfg.RequeueDelay
	if requeueDelay <= 0 {
		requeueDelay = defaultRequeueDelay
	}

	registry := cfg.Registry
	if registry == nil {
		registry = bots.NewRegistry()
	}

	return &Worker{
		conn:          cfg.Conn,
		topology:      cfg.Topology,
		registry:      registry,
		uploads:       cfg.Uploads,
		router:        NewRouter(cfg.Publisher, cfg.MaxRetries, logger),
		results:       cfg.Results,
		maxConcurrent: maxConcurrent,
		concurrency:   concurrency,
		requeueDelay:  requeueDelay,
		logger:        logger,
	}
}

// Start запускает consumers основной и upload очередей.
func (w *Worker) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	w.cancelFunc = cancel

	w.logger.Info("starting worker",
		"concurrency", w.concurrency,
		"max_concurrent_instances", w.maxConcurrent,
		"bots", w.registry.Available(),
	)

	for _, queue := range []string{w.topology.MainQueue, w.topology.UploadQueue} {
		consumer := mq.NewConsumer(w.conn, w.logger, w.consumerConfig(queue))
		w.consumers = append(w.consumers, consumer)

		w.wg.Add(1)
		go func(queue string) {
			defer w.wg.Done()
			if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.logger.Error("consumer error", "queue", queue, "error", err)
			}
		}(queue)
	}

	w.logger.Info("worker started")
	return nil
}

// consumerConfig описывает consumer рабочей очереди.
func (w *Worker) consumerConfig(queue string) mq.ConsumerConfig {
	return mq.ConsumerConfig{
		Queue:        queue,
		Handler:      w.handleDelivery,
		Concurrency:  w.concurrency,
		RequeueDelay: w.requeueDelay,
	}
}

// Stop останавливает Worker и ждёт завершения обрабатываемых задач.
func (w *Worker) Stop() {
	w.stoppedMu.Lock()
	w.stopped = true
	w.stoppedMu.Unlock()

	w.logger.Info("stopping worker...")

	if w.cancelFunc != nil {
		w.cancelFunc()
	}

	for _, c := range w.consumers {
		c.Stop()
	}

	w.wg.Wait()

	w.logger.Info("worker stopped")
}

// IsStopped проверяет, остановлен ли Worker.
func (w *Worker) IsStopped() bool {
	w.stoppedMu.RLock()
	defer w.stoppedMu.RUnlock()
	return w.stopped
}
