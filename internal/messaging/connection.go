package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"cafe-backoffice/internal/config"
	"cafe-backoffice/internal/logger"
	"cafe-backoffice/internal/models"
)

// Broker topology.
const (
	KitchenExchange      = "kitchen_topic"
	DeadLetterExchange   = "kitchen_dlx"
	PrintQueue           = "kot_print_queue"
	PrintDeadLetterQueue = "kot_print_dlq"
)

const connectAttempts = 5

// Connection wraps RabbitMQ connection with reconnection logic
type Connection struct {
	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel
	logger  *logger.Logger
	url     string
}

// New creates a new RabbitMQ connection
func New(cfg *config.Config, log *logger.Logger) (*Connection, error) {
	c := &Connection{
		logger: log,
		url:    cfg.RabbitMQURL(),
	}
	if err := c.connect(); err != nil {
		return nil, fmt.Errorf("failed to establish initial connection: %w", err)
	}
	log.Info("rabbitmq_connected", "Connected to RabbitMQ", "startup", map[string]interface{}{
		"host":     cfg.RabbitMQ.Host,
		"exchange": KitchenExchange,
	})
	return c, nil
}

// connect establishes connection to RabbitMQ with retry logic. Callers
// hold c.mu or own c exclusively.
func (c *Connection) connect() error {
	var err error
	for i := 0; i < connectAttempts; i++ {
		c.conn, err = amqp091.Dial(c.url)
		if err == nil {
			c.channel, err = c.conn.Channel()
			if err == nil {
				if err = setupTopology(c.channel); err == nil {
					return nil
				}
				c.logger.Error("rabbitmq_setup_failed", "Failed to set up topology", "startup", err, nil)
			}
			c.close()
		}

		if i < connectAttempts-1 {
			wait := time.Duration(i+1) * 2 * time.Second
			c.logger.Error("rabbitmq_connection_failed",
				fmt.Sprintf("Failed to connect to RabbitMQ, retrying in %v", wait),
				"startup", err, map[string]interface{}{"attempt": i + 1})
			time.Sleep(wait)
		}
	}
	return fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", connectAttempts, err)
}

// setupTopology declares the kitchen exchange, the print queue bound to the
// print-kot topic, and a dead-letter queue for jobs that can never succeed.
func setupTopology(ch *amqp091.Channel) error {
	if err := ch.ExchangeDeclare(KitchenExchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare %s exchange: %w", KitchenExchange, err)
	}
	if err := ch.ExchangeDeclare(DeadLetterExchange, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare %s exchange: %w", DeadLetterExchange, err)
	}

	if _, err := ch.QueueDeclare(PrintDeadLetterQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", PrintDeadLetterQueue, err)
	}
	if err := ch.QueueBind(PrintDeadLetterQueue, "", DeadLetterExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", PrintDeadLetterQueue, err)
	}

	_, err := ch.QueueDeclare(
		PrintQueue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		amqp091.Table{
			"x-dead-letter-exchange": DeadLetterExchange,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", PrintQueue, err)
	}
	if err := ch.QueueBind(PrintQueue, models.TopicPrintKOT, KitchenExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s with routing key %s: %w", PrintQueue, models.TopicPrintKOT, err)
	}
	return nil
}

// Channel returns the current channel, reconnecting first when the
// connection has dropped.
func (c *Connection) Channel() (*amqp091.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || c.conn.IsClosed() || c.channel == nil || c.channel.IsClosed() {
		c.close()
		if err := c.connect(); err != nil {
			return nil, fmt.Errorf("failed to reconnect: %w", err)
		}
	}
	return c.channel, nil
}

// Ping reports whether the connection is still open. It never redials.
func (c *Connection) Ping(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || c.conn.IsClosed() {
		return errors.New("rabbitmq connection is closed")
	}
	return ctx.Err()
}

func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.close()
}

func (c *Connection) close() error {
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		if err != nil && err != amqp091.ErrClosed {
			return err
		}
	}
	return nil
}
