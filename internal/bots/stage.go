package bots

import (
	"context"
	"errors"
	"fmt"

	"github.com/shaiso/darkbot/internal/domain"
)

// Ошибки шагов. StageError отвечает true на errors.Is для своей категории.
var (
	// ErrScrape — шаг scrape завершился ошибкой.
	ErrScrape = errors.New("scrape failed")

	// ErrProcess — шаг process завершился ошибкой.
	ErrProcess = errors.New("process failed")

	// ErrRender — шаг edit (рендер) завершился ошибкой.
	ErrRender = errors.New("render failed")

	// ErrUpload — шаг upload завершился ошибкой.
	ErrUpload = errors.New("upload failed")
)

// StageKind — категория шага.
type StageKind string

const (
	StageScrape  StageKind = "scrape"
	StageProcess StageKind = "process"
	StageEdit    StageKind = "edit"
	StageUpload  StageKind = "upload"
)

// StageError — ошибка конкретного шага pipeline.
type StageError struct {
	Kind StageKind
	Err  error
}

// NewStageError оборачивает ошибку шага.
func NewStageError(kind StageKind, err error) *StageError {
	return &StageError{Kind: kind, Err: err}
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.sentinel(), e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Is сопоставляет ошибку с sentinel её категории.
func (e *StageError) Is(target error) bool {
	return target == e.sentinel()
}

func (e *StageError) sentinel() error {
	switch e.Kind {
	case StageScrape:
		return ErrScrape
	case StageProcess:
		return ErrProcess
	case StageEdit:
		return ErrRender
	case StageUpload:
		return ErrUpload
	default:
		return errors.New(string(e.Kind) + " failed")
	}
}

// Content — данные, которые шаги передают друг другу.
type Content struct {
	// Instance — под-конфиг instance (account, theme, credentials).
	Instance domain.InstanceConfig

	// Items — элементы контента (строки, choices и т.п.).
	Items []any
}

// Account возвращает аккаунт instance.
func (c *Content) Account() string {
	return c.Instance.String("account")
}

// Upload — результат загрузки на платформы.
type Upload struct {
	// Platforms — платформы, на которые ушла загрузка.
	Platforms []string `json:"platforms"`

	// Files — загруженные файлы.
	Files []string `json:"files"`
}

// Scraper собирает контент по под-конфигу instance.
type Scraper interface {
	Scrape(ctx context.Context, cfg domain.InstanceConfig) (*Content, error)
}

// Processor обрабатывает контент (например, переписывает через LLM).
type Processor interface {
	Process(ctx context.Context, content *Content) (*Content, error)
}

// Editor собирает артефакт и возвращает путь к нему.
type Editor interface {
	Edit(ctx context.Context, content *Content) (string, error)
}

// Uploader публикует артефакт с указанными credentials.
type Uploader interface {
	Upload(ctx context.Context, artifactPath string, credentials map[string]any) (*Upload, error)
}

// ScrapeFunc — адаптер функции к Scraper.
type ScrapeFunc func(ctx context.Context, cfg domain.InstanceConfig) (*Content, error)

func (f ScrapeFunc) Scrape(ctx context.Context, cfg domain.InstanceConfig) (*Content, error) {
	return f(ctx, cfg)
}

// ProcessFunc — адаптер функции к Processor.
type ProcessFunc func(ctx context.Context, content *Content) (*Content, error)

func (f ProcessFunc) Process(ctx context.Context, content *Content) (*Content, error) {
	return f(ctx, content)
}

// EditFunc — адаптер функции к Editor.
type EditFunc func(ctx context.Context, content *Content) (string, error)

func (f EditFunc) Edit(ctx context.Context, content *Content) (string, error) {
	return f(ctx, content)
}

// UploadFunc — адаптер функции к Uploader.
type UploadFunc func(ctx context.Context, artifactPath string, credentials map[string]any) (*Upload, error)

func (f UploadFunc) Upload(ctx context.Context, artifactPath string, credentials map[string]any) (*Upload, error) {
	return f(ctx, artifactPath, credentials)
}

// StrategySet — набор шагов одного типа бота.
type StrategySet struct {
	Scrape  Scraper
	Process Processor // опционально
	Edit    Editor
	Upload  Uploader
}

// HasProcess проверяет, есть ли у бота шаг process.
func (s StrategySet) HasProcess() bool {
	return s.Process != nil
}

// Validate проверяет, что обязательные шаги заданы.
func (s StrategySet) Validate() error {
	switch {
	case s.Scrape == nil:
		return fmt.Errorf("%w: scrape", ErrIncompleteStrategySet)
	case s.Edit == nil:
		return fmt.Errorf("%w: edit", ErrIncompleteStrategySet)
	case s.Upload == nil:
		return fmt.Errorf("%w: upload", ErrIncompleteStrategySet)
	}
	return nil
}
