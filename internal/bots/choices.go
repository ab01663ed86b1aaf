package bots

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shaiso/darkbot/internal/domain"
	"github.com/shaiso/darkbot/internal/generation"
	"github.com/shaiso/darkbot/internal/platforms"
)

// BotTypeChoices — бот роликов "Would you rather".
const BotTypeChoices = "choices_bot"

// Параметры рендера.
const (
	choicesCount  = 5
	videoWidth    = 1080
	videoHeight   = 1920
	videoFPS      = 24
	manifestPerms = 0o644
)

// ErrInvalidAccount — account нельзя использовать в имени файла.
var ErrInvalidAccount = errors.New("invalid account name")

// Choice — один выбор из двух вариантов.
type Choice struct {
	Option1 ChoiceOption `json:"option_1"`
	Option2 ChoiceOption `json:"option_2"`
}

// ChoiceOption — вариант выбора.
type ChoiceOption struct {
	Text          string `json:"text"`
	ImageKeywords string `json:"image_keywords"`
	Percentages   int    `json:"percentages"`
}

// RenderManifest — описание ролика для рендера.
type RenderManifest struct {
	Account  string   `json:"account"`
	Theme    string   `json:"theme"`
	Width    int      `json:"width"`
	Height   int      `json:"height"`
	FPS      int      `json:"fps"`
	Choices  []Choice `json:"choices"`
	Rendered string   `json:"rendered_at"`
}

// ChoicesBot собирает шаги choices_bot.
//
// Под-конфиг: account (string), theme (string), credentials (map по площадкам).
type ChoicesBot struct {
	generator generation.TextGenerator
	platforms *platforms.Set
	outputDir string
}

// NewChoicesBot создаёт choices_bot.
func NewChoicesBot(generator generation.TextGenerator, set *platforms.Set, outputDir string) *ChoicesBot {
	if generator == nil {
		generator = generation.Unconfigured{}
	}
	return &ChoicesBot{generator: generator, platforms: set, outputDir: outputDir}
}

// Strategies возвращает StrategySet без шага process.
func (b *ChoicesBot) Strategies() StrategySet {
	return StrategySet{
		Scrape: ScrapeFunc(b.scrape),
		Edit:   EditFunc(b.edit),
		Upload: UploadFunc(b.upload),
	}
}

func (b *ChoicesBot) scrape(ctx context.Context, cfg domain.InstanceConfig) (*Content, error) {
	theme := cfg.String("theme")
	if theme == "" {
		return nil, errors.New("theme is required")
	}

	text, err := b.generator.Generate(ctx, choicesPrompt(theme), true)
	if err != nil {
		return nil, fmt.Errorf("generate choices: %w", err)
	}

	choices, err := ParseChoices(text)
	if err != nil {
		return nil, err
	}

	items := make([]any, len(choices))
	for i := range choices {
		items[i] = choices[i]
	}
	return &Content{Instance: cfg, Items: items}, nil
}

func (b *ChoicesBot) edit(_ context.Context, content *Content) (string, error) {
	manifest := RenderManifest{
		Account:  content.Account(),
		Theme:    content.Instance.String("theme"),
		Width:    videoWidth,
		Height:   videoHeight,
		FPS:      videoFPS,
		Rendered: time.Now().UTC().Format(time.RFC3339),
	}
	for _, item := range content.Items {
		choice, ok := item.(Choice)
		if !ok {
			return "", fmt.Errorf("unexpected content item %T", item)
		}
		manifest.Choices = append(manifest.Choices, choice)
	}
	if len(manifest.Choices) == 0 {
		return "", errors.New("no choices to render")
	}

	path, err := b.artifactPath(manifest.Account)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(b.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	body, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal manifest: %w", err)
	}

	if err := os.WriteFile(path, body, manifestPerms); err != nil {
		return "", fmt.Errorf("write manifest: %w", err)
	}
	return path, nil
}

// artifactPath строит путь манифеста внутри outputDir.
// account приходит из запроса, поэтому разделители путей и ".." запрещены.
func (b *ChoicesBot) artifactPath(account string) (string, error) {
	if account == "" || strings.ContainsAny(account, `/\`) || strings.Contains(account, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidAccount, account)
	}

	name := fmt.Sprintf("%s_final_%d.json", account, time.Now().UnixNano())
	path := filepath.Join(b.outputDir, name)

	rel, err := filepath.Rel(b.outputDir, path)
	if err != nil || rel != name {
		return "", fmt.Errorf("%w: %q escapes output dir", ErrInvalidAccount, account)
	}
	return path, nil
}

func (b *ChoicesBot) upload(ctx context.Context, artifactPath string, credentials map[string]any) (*Upload, error) {
	uploaded, err := b.platforms.UploadAll(ctx, credentials, []string{artifactPath})
	if err != nil {
		return nil, err
	}
	return &Upload{Platforms: uploaded, Files: []string{artifactPath}}, nil
}

// ParseChoices разбирает ответ модели. Markdown-обёртка ```json допускается.
func ParseChoices(text string) ([]Choice, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var parsed struct {
		Choices []Choice `json:"choices"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &parsed); err != nil {
		return nil, fmt.Errorf("parse choices: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, errors.New("parse choices: empty list")
	}
	for i, c := range parsed.Choices {
		if c.Option1.Text == "" || c.Option2.Text == "" {
			return nil, fmt.Errorf("parse choices: choice %d has empty option", i)
		}
	}
	return parsed.Choices, nil
}

func choicesPrompt(theme string) string {
	return fmt.Sprintf(`Return a JSON "Would you rather..." object in the following format:
{
  "choices": [
    {
      "option_1": {"text": "...", "image_keywords": "...", "percentages": 60},
      "option_2": {"text": "...", "image_keywords": "...", "percentages": 40}
    }
  ]
}

"choices" must contain %d different choices. Both options of a choice must be related.
"image_keywords" are search keywords for an image matching the option text and must differ between options.
"percentages" of both options add up to 100.
All choices are about one topic: %s. Make them interesting, fun and controversial.
Each option is a single sentence without the phrase "Would you rather".
Return only the JSON, no markdown and no comments.`, choicesCount, theme)
}
