package recovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/darkbot/internal/domain"
	"github.com/shaiso/darkbot/internal/mq"
	"github.com/shaiso/darkbot/internal/telemetry"
)

// Default configuration values.
const (
	defaultRetryDelay  = 5 * time.Second
	defaultDLQPriority = 10
)

// Исходы обработки dead letter (метка outcome метрики DLQRecovered).
const (
	OutcomeRequeued  = "requeued"
	OutcomeParked    = "parked"
	OutcomeMalformed = "malformed"
	OutcomeFailed    = "failed"
)

// ErrRecoveryLimit — сообщение исчерпало бюджет восстановлений.
var ErrRecoveryLimit = errors.New("recovery limit reached")

// Publisher публикует восстановленные задачи.
type Publisher interface {
	PublishTask(ctx context.Context, msg *domain.TaskMessage) error
}

// ParkedStore сохраняет запаркованные dead letters (опционально).
type ParkedStore interface {
	Park(ctx context.Context, messageID string, body []byte, reason string) error
}

// Processor — consumer DLQ.
type Processor struct {
	queue         string
	publisher     Publisher
	parked        ParkedStore
	maxRecoveries int
	retryDelay    time.Duration
	priority      uint8
	consumer      *mq.Consumer
	logger        *slog.Logger
}

// Config — конфигурация Processor.
type Config struct {
	Conn      *mq.Connection
	Queue     string
	Publisher Publisher

	// Parked — хранилище запаркованных сообщений (опционально).
	Parked ParkedStore

	// MaxRecoveries — сколько раз сообщение можно вернуть из DLQ (0 — без ограничений).
	MaxRecoveries int

	// RetryDelay — пауза перед возвратом envelope в DLQ после неудачной публикации (default: 5s).
	RetryDelay time.Duration

	// Priority — приоритет восстановленных задач (default: 10).
	Priority uint8

	Logger *slog.Logger
}

// New создаёт Processor.
func New(cfg Config) *Processor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}

	priority := cfg.Priority
	if priority == 0 {
		priority = defaultDLQPriority
	}

	maxRecoveries := max(cfg.MaxRecoveries, 0)

	p := &Processor{
		queue:         cfg.Queue,
		publisher:     cfg.Publisher,
		parked:        cfg.Parked,
		maxRecoveries: maxRecoveries,
		retryDelay:    retryDelay,
		priority:      priority,
		logger:        logger.With("component", "dlq"),
	}

	// Строго по одному сообщению
	p.consumer = mq.NewConsumer(cfg.Conn, p.logger, mq.ConsumerConfig{
		Queue:        p.queue,
		Handler:      p.Handle,
		Concurrency:  1,
		Prefetch:     1,
		RequeueDelay: p.retryDelay,
	})

	return p
}

// Start запускает потребление DLQ. Блокирует до отмены ctx или Stop.
func (p *Processor) Start(ctx context.Context) error {
	p.logger.Info("starting dlq consumer",
		"queue", p.queue,
		"max_recoveries", p.maxRecoveries,
		"retry_delay", p.retryDelay,
		"priority", p.priority,
	)

	return p.consumer.Start(ctx)
}

// Stop останавливает consumer.
func (p *Processor) Stop() {
	p.consumer.Stop()
}

// Handle обрабатывает одно сообщение DLQ.
//
// nil — сообщение подтверждается (восстановлено или запарковано).
// Ошибка — публикация не удалась, consumer вернёт сообщение в DLQ после паузы.
func (p *Processor) Handle(ctx context.Context, d *mq.Delivery) error {
	env, err := decodeEnvelope(d.Body())
	if err != nil {
		p.park(ctx, d.Raw.MessageId, d.Body(), err.Error(), OutcomeMalformed)
		return nil
	}

	msg := &env.Message
	logger := telemetry.WithBotType(telemetry.WithMessageID(p.logger, msg.MessageID), msg.BotType)

	logger.Warn("dead letter received",
		"retry_count", msg.RetryCount,
		"recovery_count", msg.RecoveryCount,
		"failed_at", env.FailedAt,
		"last_error", env.LastError,
		"original_queue", env.OriginalQueue,
	)

	if p.maxRecoveries > 0 && msg.RecoveryCount >= p.maxRecoveries {
		reason := fmt.Sprintf("%v: %d of %d", ErrRecoveryLimit, msg.RecoveryCount, p.maxRecoveries)
		p.park(ctx, msg.MessageID, d.Body(), reason, OutcomeParked)
		return nil
	}

	recovered := msg.Recovered(uuid.NewString(), p.priority)
	if err := p.publisher.PublishTask(ctx, recovered); err != nil {
		telemetry.DLQRecovered.WithLabelValues(OutcomeFailed).Inc()
		return fmt.Errorf("republish %s: %w", msg.MessageID, err)
	}

	telemetry.DLQRecovered.WithLabelValues(OutcomeRequeued).Inc()
	logger.Info("dead letter requeued",
		"new_message_id", recovered.MessageID,
		"recovery_count", recovered.RecoveryCount,
		"priority", recovered.Priority,
	)

	return nil
}

// park фиксирует сообщение, которое больше не восстанавливается.
func (p *Processor) park(ctx context.Context, messageID string, body []byte, reason, outcome string) {
	telemetry.DLQRecovered.WithLabelValues(outcome).Inc()

	p.logger.Error("dead letter parked",
		"message_id", messageID,
		"outcome", outcome,
		"reason", reason,
		"body", string(body),
	)

	if p.parked == nil {
		return
	}
	if err := p.parked.Park(ctx, messageID, body, reason); err != nil {
		p.logger.Warn("failed to persist parked dead letter", "message_id", messageID, "error", err)
	}
}

// decodeEnvelope разбирает тело DLQ.
//
// В DLQ попадают envelope от воркера и исходные TaskMessage, отклонённые
// брокером (в них нет поля message).
func decodeEnvelope(body []byte) (*domain.DeadLetterEnvelope, error) {
	var env domain.DeadLetterEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", mq.ErrMalformed, err)
	}
	if env.Message.BotType != "" || env.Message.IsUpload() {
		return &env, nil
	}

	var msg domain.TaskMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", mq.ErrMalformed, err)
	}
	if msg.BotType == "" && !msg.IsUpload() {
		return nil, fmt.Errorf("%w: neither envelope nor task message", mq.ErrMalformed)
	}

	return &domain.DeadLetterEnvelope{Message: msg, LastError: "rejected by broker"}, nil
}
