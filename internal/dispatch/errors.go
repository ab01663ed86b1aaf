package dispatch

import (
	"errors"
	"fmt"
)

var (
	// ErrConfigMismatch — число под-конфигов не совпадает с instances.
	ErrConfigMismatch = errors.New("config mismatch")

	// ErrInvalidRequest — запрос не прошёл структурную валидацию.
	ErrInvalidRequest = errors.New("invalid request")
)

// ConfigMismatchError — детали несовпадения instances и config.
type ConfigMismatchError struct {
	Expected int
	Actual   int
}

func (e *ConfigMismatchError) Error() string {
	return fmt.Sprintf("config requires %d instances, but has %d", e.Expected, e.Actual)
}

func (e *ConfigMismatchError) Unwrap() error {
	return ErrConfigMismatch
}
