package worker

import "errors"

// Ошибки уровня задачи. Любая из них запускает повторную доставку.
var (
	// ErrInvalidTask — сообщение не прошло проверку (instances/config).
	ErrInvalidTask = errors.New("invalid task")

	// ErrAllInstancesFailed — ни один instance задачи не завершился успешно.
	ErrAllInstancesFailed = errors.New("all instances failed")

	// ErrUploadsNotConfigured — пришла задача загрузки, а загрузчик не настроен.
	ErrUploadsNotConfigured = errors.New("uploads not configured")
)
