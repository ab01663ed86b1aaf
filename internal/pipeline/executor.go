package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shaiso/darkbot/internal/bots"
	"github.com/shaiso/darkbot/internal/domain"
	"github.com/shaiso/darkbot/internal/telemetry"
)

var (
	// ErrNoContent — шаг вернул nil вместо контента.
	ErrNoContent = errors.New("stage returned no content")

	// ErrInvalidTransition — недопустимый переход состояния.
	ErrInvalidTransition = errors.New("invalid pipeline state transition")
)

// Runner — единица работы для FanOut.
type Runner interface {
	Run(ctx context.Context) domain.PipelineResult
}

// RunnerFunc — адаптер функции к Runner.
type RunnerFunc func(ctx context.Context) domain.PipelineResult

func (f RunnerFunc) Run(ctx context.Context) domain.PipelineResult {
	return f(ctx)
}

// Executor выполняет цепочку шагов одного instance.
type Executor struct {
	index  int
	cfg    domain.InstanceConfig
	set    bots.StrategySet
	logger *slog.Logger

	mu    sync.RWMutex
	state domain.PipelineState
}

// NewExecutor создаёт Executor для instance с индексом index.
func NewExecutor(index int, cfg domain.InstanceConfig, set bots.StrategySet, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		index:  index,
		cfg:    cfg,
		set:    set,
		logger: telemetry.WithInstance(logger, index),
		state:  domain.PipelineStateCreated,
	}
}

// NewExecutors создаёт по Executor'у на каждый под-конфиг.
func NewExecutors(cfg domain.TaskConfig, set bots.StrategySet, logger *slog.Logger) []Runner {
	runners := make([]Runner, len(cfg.Instances))
	for i, instanceCfg := range cfg.Instances {
		runners[i] = NewExecutor(i, instanceCfg, set, logger)
	}
	return runners
}

// State возвращает текущее состояние.
func (e *Executor) State() domain.PipelineState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Run выполняет шаги по порядку. Никогда не возвращает ошибку наружу.
func (e *Executor) Run(ctx context.Context) domain.PipelineResult {
	start := time.Now()
	result := e.run(ctx)
	result.Duration = time.Since(start)
	return result
}

func (e *Executor) run(ctx context.Context) domain.PipelineResult {
	e.logger.Info("starting pipeline")

	// 1. Scrape
	if err := e.transition(domain.PipelineStateScraping); err != nil {
		return e.fail(bots.StageScrape, err)
	}
	content, err := e.set.Scrape.Scrape(ctx, e.cfg)
	if err == nil && content == nil {
		err = ErrNoContent
	}
	if err != nil {
		return e.fail(bots.StageScrape, err)
	}
	e.logger.Debug("scraped content", "items", len(content.Items))

	// 2. Process (опционально)
	if e.set.HasProcess() {
		if err := e.transition(domain.PipelineStateProcessing); err != nil {
			return e.fail(bots.StageProcess, err)
		}
		content, err = e.set.Process.Process(ctx, content)
		if err == nil && content == nil {
			err = ErrNoContent
		}
		if err != nil {
			return e.fail(bots.StageProcess, err)
		}
	}

	// 3. Edit
	if err := e.transition(domain.PipelineStateEditing); err != nil {
		return e.fail(bots.StageEdit, err)
	}
	artifact, err := e.set.Edit.Edit(ctx, content)
	if err != nil {
		return e.fail(bots.StageEdit, err)
	}
	e.logger.Debug("artifact ready", "path", artifact)

	// 4. Upload
	if err := e.transition(domain.PipelineStateUploading); err != nil {
		return e.fail(bots.StageUpload, err)
	}
	upload, err := e.set.Upload.Upload(ctx, artifact, e.cfg.Map("credentials"))
	if err != nil {
		return e.fail(bots.StageUpload, err)
	}

	if err := e.transition(domain.PipelineStateCompleted); err != nil {
		return e.fail(bots.StageUpload, err)
	}
	e.logger.Info("pipeline completed")
	return domain.SuccessResult(e.index, upload)
}

// transition переводит автомат в следующее состояние.
func (e *Executor) transition(next domain.PipelineState) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.state.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, e.state, next)
	}

	e.logger.Debug("pipeline state", "from", e.state, "to", next)
	e.state = next
	return nil
}

// fail переводит автомат в FAILED и строит результат с ошибкой шага.
func (e *Executor) fail(kind bots.StageKind, err error) domain.PipelineResult {
	stageErr := bots.NewStageError(kind, err)

	e.mu.Lock()
	e.state = domain.PipelineStateFailed
	e.mu.Unlock()

	e.logger.Warn("pipeline failed", "stage", kind, "error", stageErr)
	return domain.ErrorResult(e.index, string(kind), stageErr)
}
