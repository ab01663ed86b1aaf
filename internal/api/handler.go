package api

import (
	"context"
	"log/slog"

	"github.com/shaiso/darkbot/internal/dispatch"
	"github.com/shaiso/darkbot/internal/domain"
	"github.com/shaiso/darkbot/internal/repo"
)

// Dispatcher — приём задач.
type Dispatcher interface {
	Submit(ctx context.Context, req *domain.TaskRequest) (*dispatch.Ack, error)
	SubmitUpload(ctx context.Context, req *domain.UploadRequest) (*dispatch.Ack, error)
	SupportedBots() []string
}

// ResultCounter — сводка результатов задачи.
type ResultCounter interface {
	CountByStatus(ctx context.Context, messageID string) (map[domain.ResultStatus]int, error)
}

// ParkedLister — просмотр запаркованных dead letters.
type ParkedLister interface {
	ListRecent(ctx context.Context, limit int) ([]repo.ParkedDeadLetter, error)
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	dispatcher Dispatcher
	results    ResultCounter
	parked     ParkedLister
	logger     *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Dispatcher Dispatcher

	// Results и Parked опциональны: без БД соответствующие маршруты отвечают 503.
	Results ResultCounter
	Parked  ParkedLister

	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		dispatcher: cfg.Dispatcher,
		results:    cfg.Results,
		parked:     cfg.Parked,
		logger:     logger,
	}
}
