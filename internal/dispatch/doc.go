// Package dispatch принимает запросы на запуск ботов и публикует задачи в очередь.
//
// Все проверки (структура запроса, instances/config, тип бота) выполняются
// до обращения к брокеру: отклонённый запрос никогда не попадает в очередь.
// Dispatcher возвращает только подтверждение постановки в очередь, результат
// pipeline вызывающей стороне не сообщается.
package dispatch
