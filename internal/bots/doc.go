// Package bots описывает типы ботов и их шаги.
//
// Каждый тип бота — это ключ в Registry и фиксированный StrategySet:
//
//	scrape → [process] → edit → upload
//
// Набор шагов задаётся один раз при регистрации и не меняется
// от запроса к запросу. Шаг process опционален.
//
// Встроенные боты:
//   - fake_message_bot — все четыре шага, детерминированные заглушки
//   - choices_bot — "Would you rather" ролики: генерация текста через LLM,
//     сборка манифеста для рендера, загрузка на платформы
package bots
