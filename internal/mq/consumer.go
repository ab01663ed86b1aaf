package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler — функция обработки сообщения.
//
// Результат определяет судьбу сообщения, если обработчик не подтвердил
// его сам:
//   - nil — ack
//   - ошибка, обёрнутая в ErrMalformed, — nack без requeue (уходит в DLX очереди)
//   - любая другая ошибка — nack с requeue после RequeueDelay
type Handler func(ctx context.Context, d *Delivery) error

// Delivery — доставленное сообщение с методами ack/nack.
type Delivery struct {
	// Queue — очередь, из которой пришло сообщение.
	Queue string

	// Raw — сырое AMQP сообщение.
	Raw amqp.Delivery

	mu      sync.Mutex
	settled bool
}

// Body возвращает тело сообщения.
func (d *Delivery) Body() []byte {
	return d.Raw.Body
}

// Ack подтверждает успешную обработку сообщения.
func (d *Delivery) Ack() error {
	return d.settle(func() error { return d.Raw.Ack(false) })
}

// Nack отклоняет сообщение.
// requeue=true — вернуть в очередь, false — отправить в DLX очереди.
func (d *Delivery) Nack(requeue bool) error {
	return d.settle(func() error { return d.Raw.Nack(false, requeue) })
}

// Settled проверяет, было ли сообщение уже подтверждено или отклонено.
func (d *Delivery) Settled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.settled
}

func (d *Delivery) settle(fn func() error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.settled {
		return nil
	}
	d.settled = true
	return fn()
}

// Decode разбирает JSON тело сообщения в указанный тип.
// Ошибка разбора оборачивается в ErrMalformed.
func Decode[T any](d *Delivery) (T, error) {
	var result T
	if err := json.Unmarshal(d.Body(), &result); err != nil {
		return result, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return result, nil
}

// Consumer потребляет сообщения из очереди RabbitMQ.
type Consumer struct {
	conn         *Connection
	logger       *slog.Logger
	queue        string
	handler      Handler
	prefetch     int
	concurrency  int
	requeueDelay time.Duration

	cancelFunc context.CancelFunc
}

// ConsumerConfig — конфигурация consumer.
type ConsumerConfig struct {
	// Queue — имя очереди.
	Queue string

	// Handler — обработчик сообщений.
	Handler Handler

	// Concurrency — количество параллельных обработчиков (по умолчанию 1).
	Concurrency int

	// Prefetch — количество сообщений для предварительной загрузки
	// (по умолчанию равно Concurrency).
	Prefetch int

	// RequeueDelay — пауза перед nack с requeue.
	RequeueDelay time.Duration
}

// NewConsumer создаёт новый Consumer.
func NewConsumer(conn *Connection, logger *slog.Logger, cfg ConsumerConfig) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = concurrency
	}

	return &Consumer{
		conn:         conn,
		logger:       logger,
		queue:        cfg.Queue,
		handler:      cfg.Handler,
		prefetch:     prefetch,
		concurrency:  concurrency,
		requeueDelay: cfg.RequeueDelay,
	}
}

// Start запускает потребление сообщений. Блокирует до отмены ctx или Stop.
func (c *Consumer) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.cancelFunc = cancel

	return c.consume(ctx)
}

// consume — основной цикл потребления.
func (c *Consumer) consume(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		ch, deliveries, err := c.setupConsume()
		if err != nil {
			c.logger.Error("failed to setup consume", "queue", c.queue, "error", err)
			if err := c.waitReconnect(ctx); err != nil {
				return err
			}
			continue
		}

		c.logger.Info("consumer started",
			"queue", c.queue,
			"concurrency", c.concurrency,
			"prefetch", c.prefetch,
		)

		c.processDeliveries(ctx, deliveries)
		if !ch.IsClosed() {
			ch.Close()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.logger.Warn("deliveries channel closed, reconnecting", "queue", c.queue)
		if err := c.waitReconnect(ctx); err != nil {
			return err
		}
	}
}

// waitReconnect ждёт переподключения соединения.
// Переподключение могло случиться раньше подписки, поэтому ожидание
// ограничено reconnectMaxDelay.
func (c *Consumer) waitReconnect(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.conn.ReconnectNotify():
		c.logger.Info("reconnected, restarting consumer", "queue", c.queue)
	case <-time.After(reconnectMaxDelay):
	}
	return nil
}

// setupConsume открывает канал consumer и начинает потребление.
func (c *Consumer) setupConsume() (*amqp.Channel, <-chan amqp.Delivery, error) {
	ch, err := c.conn.OpenChannel()
	if err != nil {
		return nil, nil, err
	}

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		ch.Close()
		return nil, nil, fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.Consume(
		c.queue, // queue
		"",      // consumer tag (auto-generated)
		false,   // auto-ack (мы ack вручную)
		false,   // exclusive
		false,   // no-local
		false,   // no-wait
		nil,     // args
	)
	if err != nil {
		ch.Close()
		return nil, nil, fmt.Errorf("consume: %w", err)
	}

	return ch, deliveries, nil
}

// processDeliveries раздаёт сообщения пулу обработчиков.
// Возвращается, когда канал закрыт или ctx отменён и все обработчики завершились.
func (c *Consumer) processDeliveries(ctx context.Context, deliveries <-chan amqp.Delivery) {
	var wg sync.WaitGroup

	for range c.concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case raw, ok := <-deliveries:
					if !ok {
						return
					}
					c.HandleDelivery(ctx, raw)
				}
			}
		}()
	}

	wg.Wait()
}

// HandleDelivery обрабатывает одно сообщение и подтверждает или отклоняет его
// по результату Handler.
func (c *Consumer) HandleDelivery(ctx context.Context, raw amqp.Delivery) {
	d := &Delivery{Queue: c.queue, Raw: raw}

	c.logger.Debug("received message",
		"queue", c.queue,
		"message_id", raw.MessageId,
		"redelivered", raw.Redelivered,
	)

	err := c.handler(ctx, d)
	if d.Settled() {
		return
	}

	switch {
	case err == nil:
		if ackErr := d.Ack(); ackErr != nil {
			c.logger.Error("ack failed", "queue", c.queue, "message_id", raw.MessageId, "error", ackErr)
		}

	case errors.Is(err, ErrMalformed):
		c.logger.Error("malformed message, rejecting",
			"queue", c.queue,
			"message_id", raw.MessageId,
			"error", err,
			"body", string(raw.Body),
		)
		if nackErr := d.Nack(false); nackErr != nil {
			c.logger.Error("nack failed", "queue", c.queue, "message_id", raw.MessageId, "error", nackErr)
		}

	default:
		c.logger.Error("handler failed, requeueing",
			"queue", c.queue,
			"message_id", raw.MessageId,
			"delay", c.requeueDelay,
			"error", err,
		)
		if c.requeueDelay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(c.requeueDelay):
			}
		}
		if nackErr := d.Nack(true); nackErr != nil {
			c.logger.Error("nack failed", "queue", c.queue, "message_id", raw.MessageId, "error", nackErr)
		}
	}
}

// Stop останавливает consumer.
func (c *Consumer) Stop() {
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
}
