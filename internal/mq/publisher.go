package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/darkbot/internal/domain"
	"github.com/shaiso/darkbot/internal/telemetry"
)

// Publisher публикует сообщения в RabbitMQ.
//
// Каждая публикация ждёт подтверждения брокера (publisher confirms).
type Publisher struct {
	conn     *Connection
	topology Topology
	logger   *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, topology Topology, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		conn:     conn,
		topology: topology,
		logger:   logger,
	}
}

// Publish сериализует body в JSON и публикует в exchange с routing key.
// Возвращает nil только после ack от брокера.
func (p *Publisher) Publish(ctx context.Context, exchange, routingKey string, priority uint8, messageID string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		confirm, err := ch.PublishWithDeferredConfirmWithContext(
			ctx,
			exchange,   // exchange
			routingKey, // routing key
			false,      // mandatory
			false,      // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent, // сообщение переживёт рестарт RabbitMQ
				Priority:     priority,
				MessageId:    messageID,
				Timestamp:    time.Now(),
				Body:         data,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		// confirm == nil, если канал не в confirm mode
		if confirm != nil {
			acked, err := confirm.WaitContext(ctx)
			if err != nil {
				return fmt.Errorf("wait confirm %s/%s: %w", exchange, routingKey, err)
			}
			if !acked {
				return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, ErrNotConfirmed)
			}
		}

		telemetry.TasksPublished.WithLabelValues(routingKey).Inc()

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", messageID,
			"priority", priority,
		)

		return nil
	})
}

// PublishTask публикует задачу в рабочую очередь.
// Задачи загрузки уходят в upload очередь, остальные в основную.
// Пустой MessageID заполняется UUID, пустой CreatedAt текущим временем.
func (p *Publisher) PublishTask(ctx context.Context, msg *domain.TaskMessage) error {
	if msg.MessageID == "" {
		msg.MessageID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	queue := p.topology.QueueFor(msg)
	return p.Publish(ctx, p.topology.Exchange, queue, msg.Priority, msg.MessageID, msg)
}

// PublishDeadLetter публикует envelope в dead letter exchange.
func (p *Publisher) PublishDeadLetter(ctx context.Context, env *domain.DeadLetterEnvelope) error {
	if err := p.Publish(ctx, p.topology.DLQExchange, p.topology.DLQQueue, 0, env.Message.MessageID, env); err != nil {
		return err
	}
	telemetry.DeadLetters.WithLabelValues(env.OriginalQueue).Inc()
	return nil
}

// Topology возвращает топологию, с которой работает publisher.
func (p *Publisher) Topology() Topology {
	return p.topology
}
