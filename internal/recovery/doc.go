// Package recovery возвращает задачи из DLQ в основную очередь.
//
// Processor потребляет DLQ строго по одному сообщению. Для каждого
// DeadLetterEnvelope он публикует свежий TaskMessage (новый MessageID,
// RetryCount = 0, RecoveryCount+1, приоритет DLQ) и подтверждает envelope
// только после подтверждённой публикации. Если публикация не удалась,
// envelope возвращается в DLQ после паузы RetryDelay.
//
// Бюджет восстановлений задаётся MaxRecoveries (0 — без ограничений).
// Сообщения сверх бюджета и неразбираемые сообщения паркуются: логируются,
// учитываются в метриках, сохраняются в ParkedStore, если он настроен,
// и подтверждаются.
package recovery
