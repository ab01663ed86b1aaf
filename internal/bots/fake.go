package bots

import (
	"context"
	"errors"
	"fmt"

	"github.com/shaiso/darkbot/internal/domain"
)

// BotTypeFakeMessage — бот-заглушка со всеми четырьмя шагами.
const BotTypeFakeMessage = "fake_message_bot"

// FakeVideoPath — артефакт, который возвращает fake_message_bot.
const FakeVideoPath = "fake_video.mp4"

var errNoPlatform = errors.New("credentials have no platform")

// FakeMessageBot возвращает набор детерминированных шагов.
//
// Под-конфиг: source (string), credentials.platform (string).
func FakeMessageBot() StrategySet {
	return StrategySet{
		Scrape:  ScrapeFunc(fakeScrape),
		Process: ProcessFunc(fakeProcess),
		Edit:    EditFunc(fakeEdit),
		Upload:  UploadFunc(fakeUpload),
	}
}

func fakeScrape(ctx context.Context, cfg domain.InstanceConfig) (*Content, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	source := cfg.String("source")
	items := make([]any, 3)
	for i := range items {
		items[i] = fmt.Sprintf("Fake content %d from %s", i, source)
	}
	return &Content{Instance: cfg, Items: items}, nil
}

func fakeProcess(_ context.Context, content *Content) (*Content, error) {
	items := make([]any, len(content.Items))
	for i, item := range content.Items {
		items[i] = fmt.Sprintf("Processed %v", item)
	}
	return &Content{Instance: content.Instance, Items: items}, nil
}

func fakeEdit(_ context.Context, content *Content) (string, error) {
	if len(content.Items) == 0 {
		return "", errors.New("nothing to edit")
	}
	return FakeVideoPath, nil
}

func fakeUpload(_ context.Context, artifactPath string, credentials map[string]any) (*Upload, error) {
	platform, _ := credentials["platform"].(string)
	if platform == "" {
		return nil, errNoPlatform
	}
	return &Upload{Platforms: []string{platform}, Files: []string{artifactPath}}, nil
}
