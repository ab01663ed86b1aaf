// Package telemetry обеспечивает наблюдаемость системы.
//
// Включает:
//   - logging.go — structured logging через slog
//   - metrics.go — Prometheus метрики
//   - ops.go — служебный HTTP mux фоновых сервисов (/healthz, /metrics)
//
// Все сервисы используют единый формат логирования
// и экспортируют метрики на /metrics endpoint.
//
// Результаты pipeline наружу не возвращаются (fire-and-forget),
// поэтому логи и метрики — единственный способ увидеть исход задачи.
package telemetry
