package mq

import (
	"context"
	"errors"
	"testing"

	"github.com/docflow/apiserver/config"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureBackend struct {
	channel  string
	messages []Message
	closed   bool
}

func (c *captureBackend) Publish(_ context.Context, channel string, msg Message) (string, error) {
	c.channel = channel
	c.messages = append(c.messages, msg)
	return "msg-1", nil
}

func (c *captureBackend) Subscribe(ctx context.Context, channel string, handler Handler) error {
	for _, msg := range c.messages {
		if err := handler(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

func (c *captureBackend) Close() error {
	c.closed = true
	return nil
}

func TestMQ_PublishJSON(t *testing.T) {
	backend := &captureBackend{}
	queue := New(backend)

	id, err := queue.PublishJSON(context.Background(), "documents.sent", map[string]int{"id": 7}, map[string]string{"document_id": "7"})
	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)
	assert.Equal(t, "documents.sent", backend.channel)
	require.Len(t, backend.messages, 1)
	assert.Equal(t, "application/json", backend.messages[0].ContentType)
	assert.JSONEq(t, `{"id":7}`, string(backend.messages[0].Data))
	assert.Equal(t, "7", backend.messages[0].Attributes["document_id"])

	_, err = queue.PublishJSON(context.Background(), "documents.sent", func() {}, nil)
	assert.Error(t, err)

	var seen []string
	require.NoError(t, queue.Subscribe(context.Background(), "documents.sent", func(_ context.Context, msg Message) error {
		seen = append(seen, string(msg.Data))
		return nil
	}))
	assert.Equal(t, []string{`{"id":7}`}, seen)

	stop := errors.New("stop")
	err = queue.Subscribe(context.Background(), "documents.sent", func(context.Context, Message) error { return stop })
	assert.ErrorIs(t, err, stop)

	require.NoError(t, queue.Close())
	assert.True(t, backend.closed)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	q, err := Open(ctx, config.MQConfig{Backend: config.BackendNone})
	require.NoError(t, err)
	assert.Nil(t, q)

	_, err = Open(ctx, config.MQConfig{Backend: "kafka"})
	assert.ErrorContains(t, err, "unknown mq backend")

	_, err = Open(ctx, config.MQConfig{Backend: config.BackendRabbitMQ})
	assert.ErrorContains(t, err, "rabbitmq url is required")

	_, err = Open(ctx, config.MQConfig{Backend: config.BackendPubSub})
	assert.ErrorContains(t, err, "pubsub project id is required")
}

func TestHeadersToAttributes(t *testing.T) {
	assert.Nil(t, headersToAttributes(nil))
	attrs := headersToAttributes(amqp.Table{
		"document_id": "7",
		"raw":         []byte("bytes"),
		"count":       int32(3),
	})
	assert.Equal(t, map[string]string{"document_id": "7", "raw": "bytes", "count": "3"}, attrs)
}
