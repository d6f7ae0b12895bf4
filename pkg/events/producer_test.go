package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sasm-ims-api/pkg/config"
)

type fakeWriter struct {
	failures int
	calls    int
	messages []kafka.Message
	closed   bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.calls++
	if w.calls <= w.failures {
		return errors.New("broker unavailable")
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func newTestProducer(w *fakeWriter, retries int) *Producer {
	p := NewProducer(config.EventsConfig{Brokers: []string{"localhost:9092"}, MaxRetries: retries}, zap.NewNop())
	p.newWriter = func(string) messageWriter { return w }
	p.newPolicy = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return p
}

func TestProducerPublishEncodesPayload(t *testing.T) {
	w := &fakeWriter{}
	p := newTestProducer(w, 1)

	err := p.Publish(context.Background(), "sasm.applications", Message{
		Key:   "app-1",
		Type:  "application.status_changed",
		Value: map[string]string{"status": "accepted"},
	})
	require.NoError(t, err)
	require.Len(t, w.messages, 1)
	assert.Equal(t, []byte("app-1"), w.messages[0].Key)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.messages[0].Value, &body))
	assert.Equal(t, "accepted", body["status"])
	assert.Equal(t, "event_type", w.messages[0].Headers[0].Key)
}

func TestProducerRetriesTransientFailures(t *testing.T) {
	w := &fakeWriter{failures: 2}
	p := newTestProducer(w, 3)

	err := p.Publish(context.Background(), "topic", Message{Key: "k", Value: "v"})
	require.NoError(t, err)
	assert.Equal(t, 3, w.calls)
}

func TestProducerGivesUpAfterMaxRetries(t *testing.T) {
	w := &fakeWriter{failures: 10}
	p := newTestProducer(w, 1)

	err := p.Publish(context.Background(), "topic", Message{Key: "k", Value: "v"})
	require.Error(t, err)
	assert.Equal(t, 2, w.calls)
}

func TestProducerCloseClosesWriters(t *testing.T) {
	w := &fakeWriter{}
	p := newTestProducer(w, 1)
	require.NoError(t, p.Publish(context.Background(), "topic", Message{Value: 1}))
	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

type stalledWriter struct{ fakeWriter }

func (w *stalledWriter) WriteMessages(ctx context.Context, _ ...kafka.Message) error {
	w.calls++
	<-ctx.Done()
	return ctx.Err()
}

func TestProducerPublishBoundedByTimeout(t *testing.T) {
	w := &stalledWriter{}
	p := NewProducer(config.EventsConfig{Brokers: []string{"localhost:9092"}, MaxRetries: 5, PublishTimeout: 50 * time.Millisecond}, zap.NewNop())
	p.newWriter = func(string) messageWriter { return w }
	p.newPolicy = func() backoff.BackOff { return &backoff.ZeroBackOff{} }

	start := time.Now()
	err := p.Publish(context.Background(), "topic", Message{Key: "k", Value: "v"})
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
