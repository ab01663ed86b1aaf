// Package api содержит HTTP API сервер darkbot.
//
// Структура:
//   - handler.go     — Handler с DI (dispatcher, хранилища, logger)
//   - routes.go      — регистрация маршрутов
//   - middleware.go  — middleware (logging, recovery, metrics)
//   - response.go    — унифицированные JSON-ответы и обработка ошибок
//   - dto.go         — Data Transfer Objects (request/response)
//   - bot_handler.go — обработчики для /darkbot
//
// Запуск бота возвращает только подтверждение постановки в очередь:
// результаты pipeline доступны через логи, метрики и хранилище результатов.
package api
