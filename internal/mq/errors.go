package mq

import "errors"

// Ошибки брокера.
var (
	// ErrNoChannel — AMQP канал недоступен (нет соединения).
	ErrNoChannel = errors.New("no channel available")

	// ErrNotConfirmed — брокер не подтвердил публикацию (nack).
	ErrNotConfirmed = errors.New("publish not confirmed by broker")

	// ErrMalformed — тело сообщения не удалось разобрать.
	// Consumer отклоняет такое сообщение без requeue.
	ErrMalformed = errors.New("malformed message")
)
