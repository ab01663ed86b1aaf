package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/shaiso/darkbot/internal/domain"
	"github.com/shaiso/darkbot/internal/telemetry"
)

// DefaultMaxConcurrent — лимит параллельных instances по умолчанию.
const DefaultMaxConcurrent = 10

var (
	// ErrInstancePanic — instance упал с паникой.
	ErrInstancePanic = errors.New("instance panicked")

	// ErrNotStarted — instance не запущен (контекст отменён до получения слота).
	ErrNotStarted = errors.New("instance not started")
)

// Категории ошибок, которые появляются на границе FanOut.
const (
	ErrorKindPanic     = "panic"
	ErrorKindCancelled = "cancelled"
)

// FanOut запускает Runner'ы одной задачи с ограничением параллельности.
type FanOut struct {
	maxConcurrent int64
	botType       string
	logger        *slog.Logger
}

// FanOutConfig — конфигурация FanOut.
type FanOutConfig struct {
	// MaxConcurrent — максимум одновременно выполняющихся instances (default: 10).
	MaxConcurrent int

	// BotType — метка для метрик.
	BotType string

	Logger *slog.Logger
}

// NewFanOut создаёт FanOut.
func NewFanOut(cfg FanOutConfig) *FanOut {
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	botType := cfg.BotType
	if botType == "" {
		botType = "unknown"
	}

	return &FanOut{
		maxConcurrent: int64(maxConcurrent),
		botType:       botType,
		logger:        logger,
	}
}

// Run выполняет все runners и возвращает результаты в порядке индексов.
//
// len(result) == len(runners) всегда. Слот лимитера берётся до старта
// каждого runner'а и освобождается после его завершения.
func (f *FanOut) Run(ctx context.Context, runners []Runner) []domain.PipelineResult {
	results := make([]domain.PipelineResult, len(runners))
	sem := semaphore.NewWeighted(f.maxConcurrent)

	var wg sync.WaitGroup

	for i, runner := range runners {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Контекст отменён — оставшиеся instances помечаем как не запущенные
			for j := i; j < len(runners); j++ {
				results[j] = domain.ErrorResult(j, ErrorKindCancelled, fmt.Errorf("%w: %v", ErrNotStarted, err))
				f.record(results[j])
			}
			break
		}

		wg.Add(1)
		go func(index int, r Runner) {
			defer wg.Done()
			defer sem.Release(1)

			telemetry.InstancesInFlight.Inc()
			defer telemetry.InstancesInFlight.Dec()

			results[index] = f.runOne(ctx, index, r)
			f.record(results[index])
		}(i, runner)
	}

	wg.Wait()
	return results
}

// runOne выполняет один runner и перехватывает панику.
func (f *FanOut) runOne(ctx context.Context, index int, r Runner) (result domain.PipelineResult) {
	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			f.logger.Error("instance panicked",
				"instance", index,
				"panic", rec,
				"stack", string(debug.Stack()),
			)
			result = domain.ErrorResult(index, ErrorKindPanic, fmt.Errorf("%w: %v", ErrInstancePanic, rec))
			result.Duration = time.Since(start)
		}
	}()

	result = r.Run(ctx)
	result.InstanceIndex = index
	return result
}

func (f *FanOut) record(result domain.PipelineResult) {
	telemetry.InstancesTotal.WithLabelValues(f.botType, string(result.Status)).Inc()
}
