package worker

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/shaiso/darkbot/internal/bots"
	"github.com/shaiso/darkbot/internal/domain"
	"github.com/shaiso/darkbot/internal/dispatch"
	"github.com/shaiso/darkbot/internal/mq"
	"github.com/shaiso/darkbot/internal/pipeline"
	"github.com/shaiso/darkbot/internal/telemetry"
)

// uploadBotType — метка задач загрузки в логах и метриках.
const uploadBotType = "upload"

// handleDelivery обрабатывает одно сообщение из рабочей очереди.
func (w *Worker) handleDelivery(ctx context.Context, d *mq.Delivery) error {
	msg, err := mq.Decode[domain.TaskMessage](d)
	if err != nil {
		// Без requeue: сообщение уйдёт в DLQ через DLX очереди
		return err
	}

	if _, err := w.Process(ctx, &msg); err != nil {
		return w.router.Route(ctx, &msg, d.Queue, err)
	}

	return nil
}

// Process выполняет все instances задачи и возвращает результаты.
// Ошибка означает ошибку уровня задачи.
func (w *Worker) Process(ctx context.Context, msg *domain.TaskMessage) (results []domain.PipelineResult, err error) {
	botType := msg.BotType
	if msg.IsUpload() {
		botType = uploadBotType
	}
	logger := telemetry.WithBotType(telemetry.WithMessageID(w.logger, msg.MessageID), botType)

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("task panicked", "panic", rec, "stack", string(debug.Stack()))
			err = fmt.Errorf("%w: %v", pipeline.ErrInstancePanic, rec)
		}
	}()

	logger.Info("task received",
		"instances", msg.Instances,
		"retry_count", msg.RetryCount,
		"recovery_count", msg.RecoveryCount,
		"priority", msg.Priority,
	)

	if err := dispatch.Validate(msg.Config, msg.Instances); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTask, err)
	}

	runners, err := w.runners(msg, logger)
	if err != nil {
		return nil, err
	}

	fanOut := pipeline.NewFanOut(pipeline.FanOutConfig{
		MaxConcurrent: w.maxConcurrent,
		BotType:       botType,
		Logger:        logger,
	})
	results = fanOut.Run(ctx, runners)

	succeeded := domain.CountByStatus(results, domain.ResultStatusSuccess)
	failed := len(results) - succeeded

	for i := range results {
		r := &results[i]
		instLogger := telemetry.WithInstance(logger, r.InstanceIndex)
		if r.IsSuccess() {
			instLogger.Info("instance completed", "payload", r.Payload, "duration", r.Duration)
		} else {
			instLogger.Warn("instance failed", "error_kind", r.ErrorKind, "error", r.Error, "state", r.State)
		}
	}

	logger.Info("task finished", "succeeded", succeeded, "failed", failed)

	if w.results != nil {
		if err := w.results.SaveResults(ctx, msg, results); err != nil {
			// Результаты уже в логах, задачу не повторяем
			logger.Warn("failed to save results", "error", err)
		}
	}

	if succeeded == 0 {
		return results, fmt.Errorf("%w: %d of %d", ErrAllInstancesFailed, failed, len(results))
	}

	return results, nil
}

// runners строит Runner'ы для задачи: pipeline бота или загрузку для upload.
func (w *Worker) runners(msg *domain.TaskMessage, logger *slog.Logger) ([]pipeline.Runner, error) {
	if msg.IsUpload() {
		if w.uploads == nil {
			return nil, ErrUploadsNotConfigured
		}
		return w.uploadRunners(msg.Config, logger), nil
	}

	set, err := w.registry.Resolve(msg.BotType)
	if err != nil {
		return nil, err
	}

	return pipeline.NewExecutors(msg.Config, set, logger), nil
}

// uploadRunners создаёт по одному Runner'у загрузки на каждый под-конфиг.
func (w *Worker) uploadRunners(cfg domain.TaskConfig, logger *slog.Logger) []pipeline.Runner {
	runners := make([]pipeline.Runner, len(cfg.Instances))
	for i, instance := range cfg.Instances {
		runners[i] = pipeline.RunnerFunc(func(ctx context.Context) domain.PipelineResult {
			start := time.Now()

			report, err := w.uploads.Upload(ctx, instance)

			var result domain.PipelineResult
			if err != nil {
				result = domain.ErrorResult(i, string(bots.StageUpload), err)
			} else {
				telemetry.WithInstance(logger, i).Debug("upload finished",
					"platforms", report.Platforms,
					"files", len(report.Files),
				)
				result = domain.SuccessResult(i, report)
			}
			result.Duration = time.Since(start)
			return result
		})
	}
	return runners
}
