// Package cli реализует инструмент командной строки darkbot.
//
// # Обзор
//
// CLI — клиентская утилита для взаимодействия с darkbot API.
// Работает через HTTP, не импортирует внутренние пакеты системы.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для darkbot API. Инкапсулирует все HTTP-запросы,
// парсинг ответов (DataResponse, ListResponse, ErrorResponse)
// и обработку ошибок (*APIError, включая список поддерживаемых ботов).
//
//	client := cli.NewClient("http://localhost:8080")
//	bots, err := client.ListBots()
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON (json.MarshalIndent) — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: darkbot bots list --json | jq .
//
// ## Commands
//
// Cobra-команды организованы по ресурсам:
//   - bots: list, start
//   - upload: start
//   - tasks: results
//   - dlq: parked
//
// Каждая группа создаётся через фабричную функцию (NewBotsCmd и т.д.),
// принимающую clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli
