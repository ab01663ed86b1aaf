// Package pipeline выполняет pipeline instances одной задачи.
//
// # Executor
//
// Конечный автомат одного instance:
//
//	CREATED → SCRAPING → [PROCESSING] → EDITING → UPLOADING → COMPLETED
//	                                                        ↘ FAILED
//
// Первая ошибка шага переводит instance в FAILED, следующие шаги
// не запускаются. Ошибка никогда не выходит из Run: она превращается
// в domain.PipelineResult со статусом error.
//
// # FanOut
//
// Запускает N Runner'ов одной задачи параллельно, но не больше
// MaxConcurrent одновременно. Результаты складываются по индексу
// instance, порядок завершения не важен. Паника внутри Runner'а
// перехватывается и становится результатом error, остальные
// instances продолжают работу.
package pipeline
