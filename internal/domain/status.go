package domain

// ResultStatus — итог выполнения одного instance.
type ResultStatus string

const (
	// ResultStatusSuccess — pipeline instance дошёл до конца.
	ResultStatusSuccess ResultStatus = "success"

	// ResultStatusError — pipeline instance упал на одном из шагов.
	ResultStatusError ResultStatus = "error"
)

// String возвращает строковое представление ResultStatus.
func (s ResultStatus) String() string {
	return string(s)
}

// PipelineState — состояние pipeline одного instance.
//
// Жизненный цикл:
//
//	CREATED → SCRAPING → [PROCESSING] → EDITING → UPLOADING → COMPLETED
//	                  ↘ FAILED (с любого рабочего состояния)
//
// PROCESSING пропускается, если у бота нет шага process.
type PipelineState string

const (
	// PipelineStateCreated — instance создан, шаги ещё не запускались.
	PipelineStateCreated PipelineState = "CREATED"

	// PipelineStateScraping — сбор контента.
	PipelineStateScraping PipelineState = "SCRAPING"

	// PipelineStateProcessing — обработка контента (опционально).
	PipelineStateProcessing PipelineState = "PROCESSING"

	// PipelineStateEditing — сборка артефакта (видео).
	PipelineStateEditing PipelineState = "EDITING"

	// PipelineStateUploading — загрузка артефакта на платформы.
	PipelineStateUploading PipelineState = "UPLOADING"

	// PipelineStateCompleted — все шаги выполнены.
	PipelineStateCompleted PipelineState = "COMPLETED"

	// PipelineStateFailed — один из шагов вернул ошибку.
	PipelineStateFailed PipelineState = "FAILED"
)

// IsTerminal возвращает true, если состояние финальное.
func (s PipelineState) IsTerminal() bool {
	switch s {
	case PipelineStateCompleted, PipelineStateFailed:
		return true
	default:
		return false
	}
}

// CanTransitionTo проверяет, допустим ли переход из s в next.
//
// Переходы строго последовательные, PROCESSING можно пропустить,
// в FAILED можно перейти из любого не финального состояния кроме CREATED.
func (s PipelineState) CanTransitionTo(next PipelineState) bool {
	if s.IsTerminal() {
		return false
	}
	if next == PipelineStateFailed {
		return s != PipelineStateCreated
	}

	switch s {
	case PipelineStateCreated:
		return next == PipelineStateScraping
	case PipelineStateScraping:
		return next == PipelineStateProcessing || next == PipelineStateEditing
	case PipelineStateProcessing:
		return next == PipelineStateEditing
	case PipelineStateEditing:
		return next == PipelineStateUploading
	case PipelineStateUploading:
		return next == PipelineStateCompleted
	default:
		return false
	}
}
