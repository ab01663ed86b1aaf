package mq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Параметры переподключения.
const (
	heartbeat         = 10 * time.Second
	reconnectMinDelay = time.Second
	reconnectMaxDelay = 30 * time.Second
)

// Connection — обёртка над AMQP соединением с автоматическим reconnect.
//
// Канал открывается в режиме publisher confirms: публикация считается
// успешной только после подтверждения брокера.
type Connection struct {
	url    string
	name   string
	logger *slog.Logger

	mu      sync.RWMutex
	conn    *amqp.Connection
	channel *amqp.Channel

	closed   bool
	closedCh chan struct{}

	// reconnected закрывается при каждом успешном переподключении
	// и сразу заменяется новым.
	reconnected chan struct{}
}

// NewConnection создаёт новое соединение с RabbitMQ.
// name попадает в свойства соединения (видно в management UI).
func NewConnection(url, name string, logger *slog.Logger) (*Connection, error) {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Connection{
		url:         url,
		name:        name,
		logger:      logger.With("component", "mq"),
		closedCh:    make(chan struct{}),
		reconnected: make(chan struct{}),
	}

	if err := c.connect(); err != nil {
		return nil, err
	}

	go c.watchConnection()

	return c, nil
}

// connect устанавливает соединение и открывает канал.
func (c *Connection) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	conn, err := amqp.DialConfig(c.url, amqp.Config{
		Heartbeat:  heartbeat,
		Properties: amqp.Table{"connection_name": c.name},
	})
	if err != nil {
		return fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := openConfirmChannel(conn)
	if err != nil {
		conn.Close()
		return err
	}

	c.conn = conn
	c.channel = ch

	c.logger.Info("connected to RabbitMQ", "connection_name", c.name)

	return nil
}

// openConfirmChannel открывает канал публикации в режиме confirms.
func openConfirmChannel(conn *amqp.Connection) (*amqp.Channel, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		ch.Close()
		return nil, fmt.Errorf("enable publisher confirms: %w", err)
	}
	return ch, nil
}

// watchConnection следит за соединением и каналом публикации.
//
// Разрыв соединения ведёт к полному переподключению. Исключение уровня
// канала (404, 406) закрывает только канал: его переоткрываем на живом
// соединении.
func (c *Connection) watchConnection() {
	for {
		c.mu.RLock()
		if c.closed {
			c.mu.RUnlock()
			return
		}
		conn := c.conn
		ch := c.channel
		c.mu.RUnlock()

		connClose := conn.NotifyClose(make(chan *amqp.Error, 1))
		chClose := ch.NotifyClose(make(chan *amqp.Error, 1))

		select {
		case <-c.closedCh:
			return
		case err := <-connClose:
			if err != nil {
				c.logger.Warn("connection closed", "error", err)
			}
			c.reconnect()
		case err := <-chClose:
			if err != nil {
				c.logger.Warn("publish channel closed", "error", err)
			}
			if !c.reopenChannel(conn) {
				c.reconnect()
			}
		}
	}
}

// reopenChannel переоткрывает канал публикации на том же соединении.
// Возвращает false, если соединение закрыто и нужно переподключение.
func (c *Connection) reopenChannel(conn *amqp.Connection) bool {
	delay := reconnectMinDelay

	for {
		select {
		case <-c.closedCh:
			return true
		default:
		}

		if conn.IsClosed() {
			return false
		}

		ch, err := openConfirmChannel(conn)
		if err == nil {
			c.mu.Lock()
			c.channel = ch
			c.mu.Unlock()

			c.logger.Info("publish channel reopened")
			return true
		}

		c.logger.Warn("reopen channel failed", "error", err, "delay", delay)

		select {
		case <-c.closedCh:
			return true
		case <-time.After(delay):
		}
		delay = min(delay*2, reconnectMaxDelay)
	}
}

// reconnect пытается переподключиться с экспоненциальной задержкой.
func (c *Connection) reconnect() {
	delay := reconnectMinDelay

	for {
		select {
		case <-c.closedCh:
			return
		case <-time.After(delay):
		}

		c.logger.Info("attempting to reconnect", "delay", delay)

		if err := c.connect(); err != nil {
			c.logger.Warn("reconnect failed", "error", err)
			delay = min(delay*2, reconnectMaxDelay)
			continue
		}

		c.logger.Info("reconnected to RabbitMQ")

		c.mu.Lock()
		close(c.reconnected)
		c.reconnected = make(chan struct{})
		c.mu.Unlock()

		return
	}
}

// OpenChannel открывает отдельный канал для consumer.
// Prefetch задаётся на канал, поэтому у каждого consumer он свой.
// Закрыть канал должен вызывающий.
func (c *Connection) OpenChannel() (*amqp.Channel, error) {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil || conn.IsClosed() {
		return nil, ErrNoChannel
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	return ch, nil
}

// ReconnectNotify возвращает канал, который закроется при следующем
// переподключении. Уведомление получают все подписчики.
func (c *Connection) ReconnectNotify() <-chan struct{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.reconnected
}

// Close закрывает соединение.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	close(c.closedCh)

	var errs []error

	if c.channel != nil && !c.channel.IsClosed() {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close channel: %w", err))
		}
	}

	if c.conn != nil && !c.conn.IsClosed() {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close connection: %w", err))
		}
	}

	c.logger.Info("connection closed")
	return errors.Join(errs...)
}

// IsConnected проверяет, установлено ли соединение.
func (c *Connection) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.conn == nil {
		return false
	}

	return !c.conn.IsClosed()
}

// WithChannel выполняет функцию с текущим каналом.
func (c *Connection) WithChannel(ctx context.Context, fn func(ch *amqp.Channel) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.RLock()
	ch := c.channel
	c.mu.RUnlock()

	if ch == nil || ch.IsClosed() {
		return ErrNoChannel
	}

	return fn(ch)
}
