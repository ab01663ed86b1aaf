package domain

import "time"

// PipelineResult — результат pipeline одного instance.
//
// На каждую задачу приходится ровно Instances результатов,
// упорядоченных по InstanceIndex.
type PipelineResult struct {
	// InstanceIndex — позиция instance в TaskConfig.Instances.
	InstanceIndex int `json:"instance_index"`

	// Status — success или error.
	Status ResultStatus `json:"status"`

	// State — финальное состояние pipeline.
	State PipelineState `json:"state,omitempty"`

	// Payload — выход последнего шага (при success).
	Payload any `json:"payload,omitempty"`

	// Error — описание ошибки (при error).
	Error string `json:"error,omitempty"`

	// ErrorKind — категория ошибки: scrape, process, edit, upload, panic.
	ErrorKind string `json:"error_kind,omitempty"`

	// Duration — время выполнения pipeline.
	Duration time.Duration `json:"duration"`
}

// IsSuccess возвращает true, если instance завершился успешно.
func (r *PipelineResult) IsSuccess() bool {
	return r.Status == ResultStatusSuccess
}

// SuccessResult создаёт успешный результат.
func SuccessResult(index int, payload any) PipelineResult {
	return PipelineResult{
		InstanceIndex: index,
		Status:        ResultStatusSuccess,
		State:         PipelineStateCompleted,
		Payload:       payload,
	}
}

// ErrorResult создаёт результат с ошибкой.
func ErrorResult(index int, kind string, err error) PipelineResult {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return PipelineResult{
		InstanceIndex: index,
		Status:        ResultStatusError,
		State:         PipelineStateFailed,
		Error:         msg,
		ErrorKind:     kind,
	}
}

// CountByStatus считает количество результатов с указанным статусом.
func CountByStatus(results []PipelineResult, status ResultStatus) int {
	n := 0
	for i := range results {
		if results[i].Status == status {
			n++
		}
	}
	return n
}
