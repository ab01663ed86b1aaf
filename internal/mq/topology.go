package mq

import (
	"context"
	"fmt"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/darkbot/internal/config"
	"github.com/shaiso/darkbot/internal/domain"
)

// MaxPriority — x-max-priority рабочих очередей.
const MaxPriority = 10

// Topology — имена exchanges и очередей.
//
// Exchange типа direct, routing key каждой очереди совпадает с её именем.
type Topology struct {
	Exchange     string
	ExchangeType string
	MainQueue    string
	UploadQueue  string
	DLQExchange  string
	DLQQueue     string
}

// DefaultTopology возвращает топологию с именами по умолчанию.
func DefaultTopology() Topology {
	return Topology{
		Exchange:     "bot_exchange",
		ExchangeType: amqp.ExchangeDirect,
		MainQueue:    "bot_tasks",
		UploadQueue:  "bot_uploads",
		DLQExchange:  "bot_dlx",
		DLQQueue:     "bot_dlq",
	}
}

// workQueueArgs — аргументы рабочих очередей: приоритет и DLX.
func (t Topology) workQueueArgs() amqp.Table {
	return amqp.Table{
		"x-max-priority":            int32(MaxPriority),
		"x-dead-letter-exchange":    t.DLQExchange,
		"x-dead-letter-routing-key": t.DLQQueue,
	}
}

// Setup объявляет exchanges, очереди и bindings. Идемпотентен.
func (t Topology) Setup(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		// 1. Exchanges
		if err := t.declareExchanges(ch); err != nil {
			return err
		}

		// 2. Queues
		if err := t.declareQueues(ch); err != nil {
			return err
		}

		// 3. Bindings
		return t.bindQueues(ch)
	})
}

func (t Topology) declareExchanges(ch *amqp.Channel) error {
	exchanges := []struct {
		name string
		kind string
	}{
		{t.Exchange, t.ExchangeType},
		{t.DLQExchange, amqp.ExchangeDirect},
	}

	for _, ex := range exchanges {
		err := ch.ExchangeDeclare(
			ex.name, // name
			ex.kind, // type
			true,    // durable
			false,   // auto-deleted
			false,   // internal
			false,   // no-wait
			nil,     // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex.name, err)
		}
	}

	return nil
}

func (t Topology) declareQueues(ch *amqp.Channel) error {
	queues := []struct {
		name string
		args amqp.Table
	}{
		{t.MainQueue, t.workQueueArgs()},
		{t.UploadQueue, t.workQueueArgs()},
		// DLQ без собственного DLX: сообщения отсюда забирает recovery consumer
		{t.DLQQueue, nil},
	}

	for _, q := range queues {
		_, err := ch.QueueDeclare(
			q.name, // name
			true,   // durable
			false,  // delete when unused
			false,  // exclusive
			false,  // no-wait
			q.args, // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
	}

	return nil
}

func (t Topology) bindQueues(ch *amqp.Channel) error {
	bindings := []struct {
		queue    string
		exchange string
	}{
		{t.MainQueue, t.Exchange},
		{t.UploadQueue, t.Exchange},
		{t.DLQQueue, t.DLQExchange},
	}

	for _, b := range bindings {
		err := ch.QueueBind(
			b.queue,    // queue name
			b.queue,    // routing key
			b.exchange, // exchange
			false,      // no-wait
			nil,        // arguments
		)
		if err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}

	return nil
}

// Info возвращает описание топологии для логирования.
func (t Topology) Info() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (%s)\n", t.Exchange, t.ExchangeType)
	fmt.Fprintf(&sb, "├── %s [routing: %s] priority<=%d, DLX: %s\n", t.MainQueue, t.MainQueue, MaxPriority, t.DLQExchange)
	fmt.Fprintf(&sb, "└── %s [routing: %s] priority<=%d, DLX: %s\n", t.UploadQueue, t.UploadQueue, MaxPriority, t.DLQExchange)
	fmt.Fprintf(&sb, "%s (direct)\n", t.DLQExchange)
	fmt.Fprintf(&sb, "└── %s [routing: %s] consumer: darkbot-dlq\n", t.DLQQueue, t.DLQQueue)
	return sb.String()
}

// NewTopology собирает топологию из конфигурации очередей.
func NewTopology(q config.QueueConfig) Topology {
	t := Topology{
		Exchange:     q.Exchange,
		ExchangeType: q.ExchangeType,
		MainQueue:    q.MainQueue,
		UploadQueue:  q.UploadQueue,
		DLQExchange:  q.DLQExchange,
		DLQQueue:     q.DLQQueue,
	}
	if t.ExchangeType == "" {
		t.ExchangeType = amqp.ExchangeDirect
	}
	return t
}

// QueueFor возвращает очередь, в которую маршрутизируется задача.
func (t Topology) QueueFor(msg *domain.TaskMessage) string {
	if msg.IsUpload() {
		return t.UploadQueue
	}
	return t.MainQueue
}
