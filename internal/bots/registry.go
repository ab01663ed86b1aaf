package bots

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrUnsupportedBotType — тип бота не зарегистрирован.
	ErrUnsupportedBotType = errors.New("unsupported bot type")

	// ErrIncompleteStrategySet — не задан обязательный шаг.
	ErrIncompleteStrategySet = errors.New("strategy set is missing required stage")
)

// UnsupportedBotTypeError — ошибка резолва с перечнем доступных ботов.
type UnsupportedBotTypeError struct {
	BotType   string
	Supported []string
}

func (e *UnsupportedBotTypeError) Error() string {
	return fmt.Sprintf("%s: %q (supported: %s)", ErrUnsupportedBotType, e.BotType, strings.Join(e.Supported, ", "))
}

func (e *UnsupportedBotTypeError) Unwrap() error {
	return ErrUnsupportedBotType
}

// Registry — реестр типов ботов.
//
// Потокобезопасен. Записи перезаписываются при повторной регистрации.
type Registry struct {
	mu   sync.RWMutex
	bots map[string]StrategySet
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		bots: make(map[string]StrategySet),
	}
}

// Register добавляет или перезаписывает тип бота.
func (r *Registry) Register(botType string, set StrategySet) error {
	if botType == "" {
		return fmt.Errorf("register bot: empty bot type")
	}
	if err := set.Validate(); err != nil {
		return fmt.Errorf("register %s: %w", botType, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.bots[botType] = set
	return nil
}

// Resolve возвращает набор шагов для типа бота.
// Возвращает *UnsupportedBotTypeError, если тип не найден.
func (r *Registry) Resolve(botType string) (StrategySet, error) {
	r.mu.RLock()
	set, ok := r.bots[botType]
	r.mu.RUnlock()

	if !ok {
		return StrategySet{}, &UnsupportedBotTypeError{
			BotType:   botType,
			Supported: r.Available(),
		}
	}
	return set, nil
}

// Has проверяет, зарегистрирован ли тип бота.
func (r *Registry) Has(botType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.bots[botType]
	return ok
}

// Available возвращает отсортированный список зарегистрированных типов.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.bots))
	for t := range r.bots {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
