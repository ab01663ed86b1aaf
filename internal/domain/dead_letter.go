package domain

import "time"

// DeadLetterEnvelope — сообщение, исчерпавшее бюджет повторных доставок.
//
// Message копируется без изменений, метаданные ошибки добавляются рядом.
type DeadLetterEnvelope struct {
	// Message — исходное сообщение.
	Message TaskMessage `json:"message"`

	// FailedAt — время перевода в DLQ.
	FailedAt time.Time `json:"failedAt"`

	// LastError — последняя ошибка уровня задачи.
	LastError string `json:"lastError"`

	// OriginalQueue — очередь, из которой пришло сообщение.
	OriginalQueue string `json:"originalQueue,omitempty"`
}

// NewDeadLetter создаёт envelope для сообщения.
func NewDeadLetter(msg *TaskMessage, queue string, err error) *DeadLetterEnvelope {
	lastErr := ""
	if err != nil {
		lastErr = err.Error()
	}
	return &DeadLetterEnvelope{
		Message:       *msg,
		FailedAt:      time.Now().UTC(),
		LastError:     lastErr,
		OriginalQueue: queue,
	}
}
