package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shaiso/darkbot/internal/domain"
	"github.com/shaiso/darkbot/internal/telemetry"
)

// Publisher публикует задачи и dead letters.
type Publisher interface {
	PublishTask(ctx context.Context, msg *domain.TaskMessage) error
	PublishDeadLetter(ctx context.Context, env *domain.DeadLetterEnvelope) error
}

// Router решает судьбу задачи после ошибки уровня задачи:
// повторная доставка или перевод в DLQ.
type Router struct {
	publisher  Publisher
	maxRetries int
	logger     *slog.Logger
}

// NewRouter создаёт Router.
func NewRouter(publisher Publisher, maxRetries int, logger *slog.Logger) *Router {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		publisher:  publisher,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// Route публикует повторную доставку или dead letter.
// Ошибка означает, что публикация не удалась и оригинал нужно вернуть в очередь.
func (r *Router) Route(ctx context.Context, msg *domain.TaskMessage, queue string, cause error) error {
	logger := telemetry.WithBotType(telemetry.WithMessageID(r.logger, msg.MessageID), msg.BotType)

	if msg.RetriesExhausted(r.maxRetries) {
		env := domain.NewDeadLetter(msg, queue, cause)
		if err := r.publisher.PublishDeadLetter(ctx, env); err != nil {
			return fmt.Errorf("publish dead letter: %w", err)
		}

		logger.Error("task moved to dead letter queue",
			"retry_count", msg.RetryCount,
			"max_retries", r.maxRetries,
			"error", cause,
		)
		return nil
	}

	next := msg.Redelivery()
	if err := r.publisher.PublishTask(ctx, next); err != nil {
		return fmt.Errorf("publish redelivery: %w", err)
	}

	telemetry.TaskRetries.WithLabelValues(queue).Inc()
	logger.Warn("task scheduled for redelivery",
		"retry_count", next.RetryCount,
		"max_retries", r.maxRetries,
		"error", cause,
	)
	return nil
}
