package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cafe-backoffice/internal/logger"
	"cafe-backoffice/internal/models"
)

func TestEnqueue_PublishesFlatJSON(t *testing.T) {
	var (
		gotExchange, gotKey string
		gotMsg              amqp091.Publishing
	)
	p := newPublisher(func(ctx context.Context, exchange, key string, msg amqp091.Publishing) error {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		gotExchange, gotKey, gotMsg = exchange, key, msg
		return nil
	}, logger.Nop(), time.Second)

	payload := map[string]string{"jobId": "job-1", "ticketId": "t-1"}
	require.NoError(t, p.Enqueue(context.Background(), models.TopicPrintKOT, payload))

	assert.Equal(t, KitchenExchange, gotExchange)
	assert.Equal(t, models.TopicPrintKOT, gotKey)
	assert.Equal(t, "job-1", gotMsg.MessageId)
	assert.Equal(t, amqp091.Persistent, gotMsg.DeliveryMode)

	decoded, err := DecodePayload(gotMsg.Body)
	require.NoError(t, err)
	assert.Equal(t, payload, decoded)
}

func TestEnqueue_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	calls := 0
	p := newPublisher(func(ctx context.Context, exchange, key string, msg amqp091.Publishing) error {
		calls++
		return errors.New("broker down")
	}, logger.Nop(), time.Second)

	for i := 0; i < 5; i++ {
		err := p.Enqueue(context.Background(), models.TopicPrintKOT, map[string]string{})
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrQueueUnavailable)
	}

	err := p.Enqueue(context.Background(), models.TopicPrintKOT, map[string]string{})
	assert.ErrorIs(t, err, ErrQueueUnavailable)
	assert.Equal(t, 5, calls)
}

func TestPermanent(t *testing.T) {
	assert.Nil(t, Permanent(nil))

	base := errors.New("bad payload")
	err := Permanent(base)
	assert.True(t, IsPermanent(err))
	assert.ErrorIs(t, err, base)
	assert.False(t, IsPermanent(base))
}

func TestDecodePayload_Invalid(t *testing.T) {
	_, err := DecodePayload([]byte("not json"))
	assert.Error(t, err)
}
