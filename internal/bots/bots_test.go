package bots

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shaiso/darkbot/internal/domain"
	"github.com/shaiso/darkbot/internal/platforms"
)

// --- Registry Tests ---

func TestRegistry_ResolveRegistered(t *testing.T) {
	r := NewRegistry()
	if err := r.Register("test_bot", FakeMessageBot()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	set, err := r.Resolve("test_bot")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !set.HasProcess() {
		t.Error("fake bot should have process stage")
	}
}

func TestRegistry_ResolveUnknown(t *testing.T) {
	r := NewRegistry()
	_ = r.Register("b_bot", FakeMessageBot())
	_ = r.Register("a_bot", FakeMessageBot())

	_, err := r.Resolve("unknown")
	if !errors.Is(err, ErrUnsupportedBotType) {
		t.Fatalf("expected ErrUnsupportedBotType, got %v", err)
	}

	var unsupported *UnsupportedBotTypeError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected *UnsupportedBotTypeError, got %T", err)
	}
	if unsupported.BotType != "unknown" {
		t.Errorf("expected bot type 'unknown', got %s", unsupported.BotType)
	}
	// Список содержит все зарегистрированные типы
	if len(unsupported.Supported) != 2 || unsupported.Supported[0] != "a_bot" || unsupported.Supported[1] != "b_bot" {
		t.Errorf("unexpected supported list: %v", unsupported.Supported)
	}
}

func TestRegistry_Overwrite(t *testing.T) {
	r := NewRegistry()
	_ = r.Register("bot", FakeMessageBot())

	withoutProcess := FakeMessageBot()
	withoutProcess.Process = nil
	_ = r.Register("bot", withoutProcess)

	set, _ := r.Resolve("bot")
	if set.HasProcess() {
		t.Error("second registration should overwrite the first")
	}
	if len(r.Available()) != 1 {
		t.Errorf("expected 1 bot type, got %d", len(r.Available()))
	}
}

func TestRegistry_RejectsIncompleteSet(t *testing.T) {
	r := NewRegistry()

	err := r.Register("bot", StrategySet{Scrape: ScrapeFunc(fakeScrape)})
	if !errors.Is(err, ErrIncompleteStrategySet) {
		t.Errorf("expected ErrIncompleteStrategySet, got %v", err)
	}
	if r.Has("bot") {
		t.Error("incomplete set should not be registered")
	}

	if err := r.Register("", FakeMessageBot()); err == nil {
		t.Error("expected error for empty bot type")
	}
}

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry(Deps{VideosDir: t.TempDir()})

	for _, botType := range []string{BotTypeChoices, BotTypeFakeMessage} {
		if !r.Has(botType) {
			t.Errorf("expected %s to be registered", botType)
		}
	}

	set, _ := r.Resolve(BotTypeChoices)
	if set.HasProcess() {
		t.Error("choices_bot should not have process stage")
	}
}

// --- StageError Tests ---

func TestStageError_Is(t *testing.T) {
	cause := errors.New("timeout")
	tests := []struct {
		kind     StageKind
		sentinel error
	}{
		{StageScrape, ErrScrape},
		{StageProcess, ErrProcess},
		{StageEdit, ErrRender},
		{StageUpload, ErrUpload},
	}

	for _, tt := range tests {
		err := error(NewStageError(tt.kind, cause))
		if !errors.Is(err, tt.sentinel) {
			t.Errorf("%s: expected errors.Is(%v)", tt.kind, tt.sentinel)
		}
		if !errors.Is(err, cause) {
			t.Errorf("%s: cause should be unwrapped", tt.kind)
		}
		if errors.Is(err, ErrUpload) && tt.kind != StageUpload {
			t.Errorf("%s: should not match ErrUpload", tt.kind)
		}
	}
}

// --- fake_message_bot Tests ---

func TestFakeMessageBot_Chain(t *testing.T) {
	ctx := context.Background()
	set := FakeMessageBot()
	cfg := domain.InstanceConfig{
		"source":      "reddit",
		"credentials": map[string]any{"platform": "tiktok"},
	}

	content, err := set.Scrape.Scrape(ctx, cfg)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	if len(content.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(content.Items))
	}

	processed, err := set.Process.Process(ctx, content)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !strings.HasPrefix(processed.Items[0].(string), "Processed ") {
		t.Errorf("unexpected processed item: %v", processed.Items[0])
	}

	path, err := set.Edit.Edit(ctx, processed)
	if err != nil {
		t.Fatalf("edit: %v", err)
	}

	upload, err := set.Upload.Upload(ctx, path, cfg.Map("credentials"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if upload.Platforms[0] != "tiktok" || upload.Files[0] != FakeVideoPath {
		t.Errorf("unexpected upload result: %+v", upload)
	}
}

func TestFakeMessageBot_UploadWithoutPlatform(t *testing.T) {
	_, err := FakeMessageBot().Upload.Upload(context.Background(), FakeVideoPath, nil)
	if err == nil {
		t.Error("expected error for missing platform")
	}
}

// --- choices_bot Tests ---

type stubGenerator struct {
	text   string
	err    error
	prompt string
}

func (g *stubGenerator) Generate(_ context.Context, prompt string, _ bool) (string, error) {
	g.prompt = prompt
	return g.text, g.err
}

const choicesJSON = `{"choices":[
	{"option_1":{"text":"Fly","image_keywords":"wings","percentages":60},
	 "option_2":{"text":"Be invisible","image_keywords":"ghost","percentages":40}}
]}`

func TestParseChoices(t *testing.T) {
	choices, err := ParseChoices("```json\n" + choicesJSON + "\n```")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(choices) != 1 || choices[0].Option1.Text != "Fly" || choices[0].Option2.Percentages != 40 {
		t.Errorf("unexpected choices: %+v", choices)
	}
}

func TestParseChoices_Invalid(t *testing.T) {
	inputs := []string{
		"not json",
		`{"choices":[]}`,
		`{"choices":[{"option_1":{"text":"a"},"option_2":{"text":""}}]}`,
	}
	for _, in := range inputs {
		if _, err := ParseChoices(in); err == nil {
			t.Errorf("expected error for %q", in)
		}
	}
}

func TestChoicesBot_Pipeline(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	gen := &stubGenerator{text: choicesJSON}
	bot := NewChoicesBot(gen, platforms.DefaultSet(nil), dir)
	set := bot.Strategies()

	cfg := domain.InstanceConfig{
		"account": "account_01",
		"theme":   "anime",
		"credentials": map[string]any{
			"youtube": map[string]any{"username": "yt123", "password": "yt123"},
		},
	}

	content, err := set.Scrape.Scrape(ctx, cfg)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	if !strings.Contains(gen.prompt, "anime") {
		t.Error("prompt should contain the theme")
	}

	path, err := set.Edit.Edit(ctx, content)
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if filepath.Dir(path) != dir || !strings.Contains(filepath.Base(path), "account_01") {
		t.Errorf("unexpected artifact path: %s", path)
	}

	// Манифест содержит choices и аккаунт
	body, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	var manifest RenderManifest
	if err := json.Unmarshal(body, &manifest); err != nil {
		t.Fatalf("unmarshal manifest: %v", err)
	}
	if manifest.Account != "account_01" || len(manifest.Choices) != 1 || manifest.Height != videoHeight {
		t.Errorf("unexpected manifest: %+v", manifest)
	}

	upload, err := set.Upload.Upload(ctx, path, cfg.Map("credentials"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if len(upload.Platforms) != 1 || upload.Platforms[0] != platforms.YouTube {
		t.Errorf("expected upload to youtube only, got %v", upload.Platforms)
	}
}

func TestChoicesBot_ScrapeErrors(t *testing.T) {
	ctx := context.Background()

	bot := NewChoicesBot(&stubGenerator{text: choicesJSON}, platforms.DefaultSet(nil), t.TempDir())
	if _, err := bot.Strategies().Scrape.Scrape(ctx, domain.InstanceConfig{}); err == nil {
		t.Error("expected error for missing theme")
	}

	// Без генератора scrape падает
	bot = NewChoicesBot(nil, platforms.DefaultSet(nil), t.TempDir())
	if _, err := bot.Strategies().Scrape.Scrape(ctx, domain.InstanceConfig{"theme": "x"}); err == nil {
		t.Error("expected error without generator")
	}
}

func TestChoicesBot_EditRejectsUnsafeAccount(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	dir := filepath.Join(root, "videos")
	set := NewChoicesBot(&stubGenerator{text: choicesJSON}, platforms.DefaultSet(nil), dir).Strategies()

	for _, account := range []string{"../../escaped", "../escaped", "a/b", `a\b`, "..", ""} {
		t.Run(account, func(t *testing.T) {
			content, err := set.Scrape.Scrape(ctx, domain.InstanceConfig{"account": account, "theme": "anime"})
			if err != nil {
				t.Fatalf("scrape: %v", err)
			}

			path, err := set.Edit.Edit(ctx, content)
			if !errors.Is(err, ErrInvalidAccount) {
				t.Fatalf("expected ErrInvalidAccount, got %v (path %q)", err, path)
			}
			if path != "" {
				t.Errorf("no artifact path expected, got %q", path)
			}
		})
	}

	// Вне каталога ничего не записано
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.Name() != "videos" {
			t.Errorf("unexpected file outside output dir: %s", e.Name())
		}
	}
}
