package generation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"
)

// DefaultGeminiModel — модель по умолчанию.
const DefaultGeminiModel = "gemini-2.0-flash"

// Gemini — TextGenerator поверх Google Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

// NewGemini создаёт клиента Gemini.
func NewGemini(ctx context.Context, apiKey, model string, logger *slog.Logger) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: gemini api key is empty", ErrNotConfigured)
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &Gemini{client: client, model: model, logger: logger}, nil
}

// Generate отправляет prompt в модель и возвращает текст первого кандидата.
func (g *Gemini) Generate(ctx context.Context, prompt string, jsonOutput bool) (string, error) {
	var cfg *genai.GenerateContentConfig
	if jsonOutput {
		cfg = &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}
	}

	g.logger.DebugContext(ctx, "calling gemini", "model", g.model, "json", jsonOutput)

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	return extractText(resp)
}

// extractText собирает текстовые части первого кандидата.
func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", ErrEmptyResponse
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", ErrContentBlocked
	}
	if candidate.Content == nil {
		return "", ErrEmptyResponse
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
