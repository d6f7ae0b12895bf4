package events

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/sasm-ims-api/pkg/config"
	"github.com/noah-isme/sasm-ims-api/pkg/jobs"
)

// Publisher is what AsyncPublisher forwards to.
type Publisher interface {
	Publish(ctx context.Context, topic string, msg Message) error
	Close() error
}

type envelope struct {
	topic string
	msg   Message
}

// AsyncPublisher buffers events in a worker queue so callers never wait on
// the broker. Events that do not fit in the buffer are dropped and reported.
type AsyncPublisher struct {
	next   Publisher
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewAsyncPublisher wraps next. Start must be called before Publish.
func NewAsyncPublisher(next Publisher, cfg config.EventsConfig, logger *zap.Logger) *AsyncPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1024
	}
	a := &AsyncPublisher{next: next, logger: logger}
	a.queue = jobs.NewQueue("events", a.deliver, jobs.QueueConfig{
		Workers:    1,
		BufferSize: cfg.BufferSize,
		MaxRetries: 1,
		Logger:     logger,
	})
	return a
}

// Start launches the delivery worker.
func (a *AsyncPublisher) Start(ctx context.Context) {
	a.queue.Start(ctx)
}

// Publish hands the event to the delivery worker and returns at once.
func (a *AsyncPublisher) Publish(_ context.Context, topic string, msg Message) error {
	err := a.queue.TryEnqueue(jobs.Job{ID: msg.Key, Type: msg.Type, Payload: envelope{topic: topic, msg: msg}})
	if err != nil {
		return fmt.Errorf("buffer event %s: %w", msg.Type, err)
	}
	return nil
}

func (a *AsyncPublisher) deliver(ctx context.Context, job jobs.Job) error {
	env, ok := job.Payload.(envelope)
	if !ok {
		a.logger.Error("unexpected event payload", zap.String("job_id", job.ID))
		return nil
	}
	return a.next.Publish(ctx, env.topic, env.msg)
}

// Stats exposes the delivery queue counters.
func (a *AsyncPublisher) Stats() jobs.Stats {
	return a.queue.Stats()
}

// Close stops delivery and closes the wrapped publisher.
func (a *AsyncPublisher) Close() error {
	a.queue.Stop()
	return a.next.Close()
}
