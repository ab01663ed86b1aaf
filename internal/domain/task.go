package domain

import (
	"time"
)

// TaskConfig — конфигурация задачи: упорядоченный список под-конфигов,
// по одному на каждый instance.
type TaskConfig struct {
	Instances []InstanceConfig `json:"instances"`
}

// InstanceConfig — под-конфиг одного instance (account, theme, credentials, ...).
type InstanceConfig map[string]any

// String возвращает строковое значение по ключу или "".
func (c InstanceConfig) String(key string) string {
	if v, ok := c[key].(string); ok {
		return v
	}
	return ""
}

// Strings возвращает список строк по ключу.
// Одиночная строка превращается в список из одного элемента.
func (c InstanceConfig) Strings(key string) []string {
	switch v := c[key].(type) {
	case string:
		return []string{v}
	case []string:
		return v
	case []any:
		result := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				result = append(result, s)
			}
		}
		return result
	default:
		return nil
	}
}

// Map возвращает вложенный объект по ключу.
func (c InstanceConfig) Map(key string) map[string]any {
	if v, ok := c[key].(map[string]any); ok {
		return v
	}
	return nil
}

// TaskRequest — входящий запрос на запуск N pipeline для типа бота.
type TaskRequest struct {
	// BotType — ключ бота в реестре.
	BotType string `json:"bot_type" validate:"required"`

	// Instances — количество независимых pipeline.
	Instances int `json:"instances" validate:"gt=0"`

	// Config — под-конфиги instances, len(Config.Instances) == Instances.
	Config TaskConfig `json:"config"`

	// Priority — приоритет сообщения в очереди (0 — приоритет из конфигурации).
	Priority uint8 `json:"priority,omitempty" validate:"lte=10"`
}

// UploadRequest — входящий запрос на загрузку готовых видео.
type UploadRequest struct {
	Instances int        `json:"instances" validate:"gt=0"`
	Config    TaskConfig `json:"config"`
	Priority  uint8      `json:"priority,omitempty" validate:"lte=10"`
}

// TaskMessage — единица работы в основной очереди.
//
// После публикации payload не меняется, меняются только счётчики
// RetryCount (при повторной доставке) и RecoveryCount (при возврате из DLQ).
type TaskMessage struct {
	// BotType — ключ бота в реестре.
	BotType string `json:"botType"`

	// Config — конфигурация instances.
	Config TaskConfig `json:"config"`

	// Instances — количество instances.
	Instances int `json:"instances"`

	// RetryCount — сколько раз сообщение уже было доставлено повторно.
	RetryCount int `json:"retryCount"`

	// Priority — приоритет в очереди (0..10).
	Priority uint8 `json:"priority"`

	// MessageID — уникальный идентификатор сообщения.
	MessageID string `json:"messageId"`

	// RecoveryCount — сколько раз сообщение возвращалось из DLQ.
	RecoveryCount int `json:"recoveryCount,omitempty"`

	// Kind — вид задачи: bot (по умолчанию) или upload.
	Kind TaskKind `json:"kind,omitempty"`

	// CreatedAt — время создания исходного сообщения.
	CreatedAt time.Time `json:"createdAt"`
}

// TaskKind — вид задачи в очереди.
type TaskKind string

const (
	// TaskKindBot — запуск pipeline бота.
	TaskKindBot TaskKind = "bot"

	// TaskKindUpload — загрузка готовых видео на платформы.
	TaskKindUpload TaskKind = "upload"
)

// IsUpload проверяет, является ли сообщение задачей загрузки.
func (m *TaskMessage) IsUpload() bool {
	return m.Kind == TaskKindUpload
}

// Redelivery возвращает копию сообщения для повторной доставки (RetryCount+1).
func (m *TaskMessage) Redelivery() *TaskMessage {
	next := *m
	next.RetryCount++
	return &next
}

// Recovered возвращает копию сообщения, восстановленного из DLQ:
// новый ID, сброшенный RetryCount, RecoveryCount+1.
func (m *TaskMessage) Recovered(messageID string, priority uint8) *TaskMessage {
	next := *m
	next.MessageID = messageID
	next.RetryCount = 0
	next.RecoveryCount++
	if priority > 0 {
		next.Priority = priority
	}
	return &next
}

// RetriesExhausted проверяет, исчерпан ли бюджет повторных доставок.
func (m *TaskMessage) RetriesExhausted(maxRetries int) bool {
	return m.RetryCount >= maxRetries
}
