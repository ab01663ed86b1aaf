// Package platforms — площадки для публикации роликов (TikTok, YouTube, Instagram).
//
// Протоколы площадок вне зоны ответственности сервиса: реализации
// проверяют credentials и фиксируют загрузку в логах.
package platforms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
)

// Ошибки площадок.
var (
	// ErrNoCredentials — ни для одной площадки нет credentials.
	ErrNoCredentials = errors.New("no credentials found for this instance")

	// ErrInvalidCredentials — credentials площадки неполные.
	ErrInvalidCredentials = errors.New("invalid platform credentials")

	// ErrNoFiles — нечего загружать.
	ErrNoFiles = errors.New("no files found to upload")
)

// Platform — одна площадка публикации.
type Platform interface {
	Name() string
	Upload(ctx context.Context, credentials map[string]any, files []string) error
}

// Имена площадок.
const (
	TikTok    = "tiktok"
	YouTube   = "youtube"
	Instagram = "instagram"
)

// Set — упорядоченный набор площадок.
type Set struct {
	platforms []Platform
	logger    *slog.Logger
}

// NewSet создаёт набор из переданных площадок.
func NewSet(logger *slog.Logger, platforms ...Platform) *Set {
	if logger == nil {
		logger = slog.Default()
	}
	return &Set{platforms: platforms, logger: logger}
}

// DefaultSet создаёт набор tiktok, youtube, instagram.
func DefaultSet(logger *slog.Logger) *Set {
	if logger == nil {
		logger = slog.Default()
	}
	return NewSet(logger,
		&accountPlatform{name: TikTok, logger: logger},
		&accountPlatform{name: YouTube, logger: logger},
		&accountPlatform{name: Instagram, logger: logger},
	)
}

// Names возвращает имена площадок в порядке загрузки.
func (s *Set) Names() []string {
	names := make([]string, len(s.platforms))
	for i, p := range s.platforms {
		names[i] = p.Name()
	}
	return names
}

// HasCredentials проверяет, есть ли credentials хотя бы для одной площадки.
func (s *Set) HasCredentials(credentials map[string]any) bool {
	for _, p := range s.platforms {
		if _, ok := credentials[p.Name()].(map[string]any); ok {
			return true
		}
	}
	return false
}

// UploadAll загружает файлы на каждую площадку, для которой есть credentials.
// Площадки без credentials пропускаются. Возвращает список площадок с загрузкой.
func (s *Set) UploadAll(ctx context.Context, credentials map[string]any, files []string) ([]string, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	if !s.HasCredentials(credentials) {
		return nil, ErrNoCredentials
	}

	var uploaded []string
	for _, p := range s.platforms {
		cred, ok := credentials[p.Name()].(map[string]any)
		if !ok {
			s.logger.Info("no credentials for platform, skipping upload", "platform", p.Name())
			continue
		}

		if err := p.Upload(ctx, cred, files); err != nil {
			return uploaded, fmt.Errorf("upload to %s: %w", p.Name(), err)
		}

		s.logger.Info("upload completed", "platform", p.Name(), "files", len(files))
		uploaded = append(uploaded, p.Name())
	}

	return uploaded, nil
}

// accountPlatform — площадка с авторизацией по username/password.
type accountPlatform struct {
	name   string
	logger *slog.Logger
}

func (p *accountPlatform) Name() string {
	return p.name
}

func (p *accountPlatform) Upload(ctx context.Context, credentials map[string]any, files []string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	username, _ := credentials["username"].(string)
	if username == "" {
		return fmt.Errorf("%w: %s username is empty", ErrInvalidCredentials, p.name)
	}

	names := make([]string, len(files))
	for i, f := range files {
		names[i] = filepath.Base(f)
	}

	p.logger.Info("starting platform upload",
		"platform", p.name,
		"username", username,
		"files", names,
	)
	return nil
}
