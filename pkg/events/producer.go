package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/noah-isme/sasm-ims-api/pkg/config"
)

// Message is a domain event addressed to a Kafka topic.
type Message struct {
	Key     string
	Type    string
	Value   interface{}
	Headers map[string]string
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes JSON encoded events, retrying transient failures with exponential backoff.
type Producer struct {
	brokers    []string
	clientID   string
	maxRetries int
	timeout    time.Duration
	logger     *zap.Logger

	mu        sync.Mutex
	writers   map[string]messageWriter
	newWriter func(topic string) messageWriter
	newPolicy func() backoff.BackOff
}

// NewProducer creates a producer for the configured brokers.
func NewProducer(cfg config.EventsConfig, logger *zap.Logger) *Producer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 5 * time.Second
	}
	p := &Producer{
		brokers:    cfg.Brokers,
		clientID:   cfg.ClientID,
		maxRetries: cfg.MaxRetries,
		timeout:    cfg.PublishTimeout,
		logger:     logger,
		writers:    make(map[string]messageWriter),
	}
	p.newWriter = p.kafkaWriter
	p.newPolicy = func() backoff.BackOff { return backoff.NewExponentialBackOff() }
	return p
}

func (p *Producer) kafkaWriter(topic string) messageWriter {
	return &kafka.Writer{
		Addr:         kafka.TCP(p.brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: p.timeout,
		Transport: &kafka.Transport{
			ClientID: p.clientID,
		},
	}
}

func (p *Producer) writer(topic string) messageWriter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if w, ok := p.writers[topic]; ok {
		return w
	}
	w := p.newWriter(topic)
	p.writers[topic] = w
	return w
}

// Publish sends the message to topic. All attempts together are bounded by
// the configured publish timeout.
func (p *Producer) Publish(ctx context.Context, topic string, msg Message) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	payload, err := json.Marshal(msg.Value)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", msg.Type, err)
	}

	headers := make([]kafka.Header, 0, len(msg.Headers)+1)
	if msg.Type != "" {
		headers = append(headers, kafka.Header{Key: "event_type", Value: []byte(msg.Type)})
	}
	for k, v := range msg.Headers {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}

	kafkaMsg := kafka.Message{
		Key:     []byte(msg.Key),
		Value:   payload,
		Headers: headers,
		Time:    time.Now().UTC(),
	}

	w := p.writer(topic)
	attempt := 0
	operation := func() error {
		attempt++
		return w.WriteMessages(ctx, kafkaMsg)
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(p.newPolicy(), uint64(p.maxRetries)), ctx)
	notify := func(err error, wait time.Duration) {
		p.logger.Warn("event publish failed, retrying",
			zap.String("topic", topic),
			zap.String("type", msg.Type),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))
	}

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		p.logger.Error("event publish failed",
			zap.String("topic", topic),
			zap.String("key", msg.Key),
			zap.Error(err))
		return fmt.Errorf("publish %s to %s: %w", msg.Type, topic, err)
	}

	p.logger.Debug("event published", zap.String("topic", topic), zap.String("key", msg.Key), zap.String("type", msg.Type))
	return nil
}

// Close flushes and closes every writer.
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var firstErr error
	for topic, w := range p.writers {
		if err := w.Close(); err != nil {
			p.logger.Error("failed to close kafka writer", zap.String("topic", topic), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// NopPublisher drops every event. Used when ENABLE_EVENTS is off.
type NopPublisher struct{}

// Publish implements the publisher contract.
func (NopPublisher) Publish(context.Context, string, Message) error { return nil }

// Close implements io.Closer.
func (NopPublisher) Close() error { return nil }
