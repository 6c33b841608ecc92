package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/rabbitmq/amqp091-go"
	gobreaker "github.com/sony/gobreaker/v2"

	"cafe-backoffice/internal/logger"
	"cafe-backoffice/internal/metrics"
)

const breakerName = "kitchen-queue"

// ErrQueueUnavailable is returned while the circuit breaker is open.
var ErrQueueUnavailable = errors.New("job queue unavailable")

type sendFunc func(ctx context.Context, exchange, routingKey string, msg amqp091.Publishing) error

// Publisher publishes flat job payloads to the kitchen exchange. It
// satisfies the Enqueuer interface of the kitchen service.
type Publisher struct {
	send    sendFunc
	logger  *logger.Logger
	cb      *gobreaker.CircuitBreaker[struct{}]
	timeout time.Duration
}

// NewPublisher creates a publisher whose every send is bounded by timeout.
func NewPublisher(conn *Connection, log *logger.Logger, timeout time.Duration) *Publisher {
	return newPublisher(func(ctx context.Context, exchange, routingKey string, msg amqp091.Publishing) error {
		ch, err := conn.Channel()
		if err != nil {
			return err
		}
		return ch.PublishWithContext(ctx, exchange, routingKey, false, false, msg)
	}, log, timeout)
}

func newPublisher(send sendFunc, log *logger.Logger, timeout time.Duration) *Publisher {
	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit_breaker_state", "Job queue circuit breaker changed state", "",
				map[string]interface{}{"name": name, "from": from.String(), "to": to.String()})
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		},
	})

	return &Publisher{
		send:    send,
		logger:  log,
		cb:      cb,
		timeout: timeout,
	}
}

// Enqueue publishes payload as JSON with routing key topic. The message id
// is payload["jobId"] when present.
func (p *Publisher) Enqueue(ctx context.Context, topic string, payload map[string]string) error {
	_, err := p.cb.Execute(func() (struct{}, error) {
		return struct{}{}, p.publish(ctx, topic, payload)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}
	return err
}

func (p *Publisher) publish(ctx context.Context, topic string, payload map[string]string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	msg := amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    payload["jobId"],
		Timestamp:    time.Now(),
		Body:         body,
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.send(ctx, KitchenExchange, topic, msg); err != nil {
		p.logger.Error("message_publish_failed",
			fmt.Sprintf("Failed to publish message to exchange %s", KitchenExchange),
			"", err, map[string]interface{}{
				"exchange":    KitchenExchange,
				"routing_key": topic,
			})
		return fmt.Errorf("failed to publish message: %w", err)
	}

	p.logger.Debug("message_published",
		fmt.Sprintf("Published message to exchange %s", KitchenExchange),
		"", map[string]interface{}{
			"exchange":     KitchenExchange,
			"routing_key":  topic,
			"message_id":   msg.MessageId,
			"message_size": len(body),
		})
	return nil
}
