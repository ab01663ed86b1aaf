package bots

import (
	"log/slog"

	"github.com/shaiso/darkbot/internal/generation"
	"github.com/shaiso/darkbot/internal/platforms"
)

// Deps — внешние зависимости встроенных ботов.
type Deps struct {
	Generator generation.TextGenerator
	Platforms *platforms.Set
	VideosDir string
	Logger    *slog.Logger
}

// DefaultRegistry создаёт реестр со встроенными ботами.
func DefaultRegistry(deps Deps) *Registry {
	if deps.Platforms == nil {
		deps.Platforms = platforms.DefaultSet(deps.Logger)
	}

	r := NewRegistry()
	mustRegister(r, BotTypeFakeMessage, FakeMessageBot())
	mustRegister(r, BotTypeChoices, NewChoicesBot(deps.Generator, deps.Platforms, deps.VideosDir).Strategies())
	return r
}

func mustRegister(r *Registry, botType string, set StrategySet) {
	if err := r.Register(botType, set); err != nil {
		panic(err)
	}
}
