package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/shaiso/darkbot/internal/bots"
	"github.com/shaiso/darkbot/internal/domain"
	"github.com/shaiso/darkbot/internal/telemetry"
)

// QueuedMessage — текст подтверждения постановки в очередь.
const QueuedMessage = "Instances queued for processing"

// StatusQueued — статус подтверждения.
const StatusQueued = "queued"

// Publisher публикует задачи в брокер.
type Publisher interface {
	PublishTask(ctx context.Context, msg *domain.TaskMessage) error
}

// Ack — подтверждение постановки задачи в очередь.
type Ack struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	BotType   string `json:"bot_type,omitempty"`
	Instances int    `json:"instances"`
	MessageID string `json:"message_id"`
}

// Dispatcher валидирует запросы и публикует задачи.
type Dispatcher struct {
	registry  *bots.Registry
	publisher Publisher
	priority  uint8
	validate  *validator.Validate
	logger    *slog.Logger
}

// Config — конфигурация Dispatcher.
type Config struct {
	Registry  *bots.Registry
	Publisher Publisher

	// Priority — приоритет сообщений, если в запросе он не указан.
	Priority uint8

	Logger *slog.Logger
}

// New создаёт Dispatcher.
func New(cfg Config) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{
		registry:  cfg.Registry,
		publisher: cfg.Publisher,
		priority:  cfg.Priority,
		validate:  validator.New(),
		logger:    logger,
	}
}

// Validate проверяет, что количество под-конфигов совпадает с instances.
func Validate(cfg domain.TaskConfig, instances int) error {
	if instances <= 0 {
		return fmt.Errorf("%w: instances must be positive, got %d", ErrInvalidRequest, instances)
	}
	if len(cfg.Instances) != instances {
		return &ConfigMismatchError{Expected: instances, Actual: len(cfg.Instances)}
	}
	return nil
}

// Submit принимает запрос на запуск бота.
//
// Возможные ошибки: ErrInvalidRequest, ErrConfigMismatch,
// bots.ErrUnsupportedBotType (через *bots.UnsupportedBotTypeError),
// ошибка публикации.
func (d *Dispatcher) Submit(ctx context.Context, req *domain.TaskRequest) (*Ack, error) {
	if err := d.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	if err := Validate(req.Config, req.Instances); err != nil {
		return nil, err
	}

	if _, err := d.registry.Resolve(req.BotType); err != nil {
		return nil, err
	}

	msg := &domain.TaskMessage{
		BotType:   req.BotType,
		Config:    req.Config,
		Instances: req.Instances,
		Priority:  d.priorityOf(req.Priority),
		MessageID: uuid.NewString(),
		Kind:      domain.TaskKindBot,
		CreatedAt: time.Now().UTC(),
	}

	if err := d.publisher.PublishTask(ctx, msg); err != nil {
		return nil, fmt.Errorf("publish task: %w", err)
	}

	telemetry.WithMessageID(telemetry.WithBotType(d.logger, msg.BotType), msg.MessageID).Info("task queued",
		"instances", msg.Instances,
		"priority", msg.Priority,
	)

	return &Ack{
		Status:    StatusQueued,
		Message:   QueuedMessage,
		BotType:   msg.BotType,
		Instances: msg.Instances,
		MessageID: msg.MessageID,
	}, nil
}

// SubmitUpload принимает запрос на загрузку готовых видео.
// Задача уходит в upload очередь.
func (d *Dispatcher) SubmitUpload(ctx context.Context, req *domain.UploadRequest) (*Ack, error) {
	if err := d.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	if err := Validate(req.Config, req.Instances); err != nil {
		return nil, err
	}

	msg := &domain.TaskMessage{
		Config:    req.Config,
		Instances: req.Instances,
		Priority:  d.priorityOf(req.Priority),
		MessageID: uuid.NewString(),
		Kind:      domain.TaskKindUpload,
		CreatedAt: time.Now().UTC(),
	}

	if err := d.publisher.PublishTask(ctx, msg); err != nil {
		return nil, fmt.Errorf("publish upload: %w", err)
	}

	telemetry.WithMessageID(d.logger, msg.MessageID).Info("upload queued", "instances", msg.Instances)

	return &Ack{
		Status:    StatusQueued,
		Message:   QueuedMessage,
		Instances: msg.Instances,
		MessageID: msg.MessageID,
	}, nil
}

// SupportedBots возвращает зарегистрированные типы ботов.
func (d *Dispatcher) SupportedBots() []string {
	return d.registry.Available()
}

func (d *Dispatcher) priorityOf(requested uint8) uint8 {
	if requested > 0 {
		return requested
	}
	return d.priority
}
