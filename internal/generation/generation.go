// Package generation — генерация текста через LLM для шагов scrape.
package generation

import (
	"context"
	"errors"
)

// Ошибки генерации.
var (
	// ErrNotConfigured — генератор не настроен (нет API ключа).
	ErrNotConfigured = errors.New("text generator is not configured")

	// ErrEmptyResponse — модель не вернула текст.
	ErrEmptyResponse = errors.New("empty generation response")

	// ErrContentBlocked — ответ заблокирован фильтрами безопасности.
	ErrContentBlocked = errors.New("content blocked by safety filters")
)

// TextGenerator генерирует текст по prompt.
// jsonOutput просит модель вернуть чистый JSON.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, jsonOutput bool) (string, error)
}

// Unconfigured — генератор-заглушка, всегда возвращает ErrNotConfigured.
type Unconfigured struct{}

func (Unconfigured) Generate(context.Context, string, bool) (string, error) {
	return "", ErrNotConfigured
}
