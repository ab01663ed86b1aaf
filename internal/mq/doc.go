// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — соединение с RabbitMQ (reconnect, publisher confirms, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация задач и dead letters
//   - consumer.go   — потребление сообщений пулом обработчиков
//
// Топология (имена по умолчанию):
//
//	bot_exchange (direct)
//	├── bot_tasks   [routing: bot_tasks]   priority, DLX → bot_dlx
//	└── bot_uploads [routing: bot_uploads] priority, DLX → bot_dlx
//
//	bot_dlx (direct)
//	└── bot_dlq [routing: bot_dlq]
package mq
