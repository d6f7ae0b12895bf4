package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("exports", func(context.Context, Job) error { return nil }, QueueConfig{})
	assert.ErrorIs(t, q.Enqueue(Job{ID: "a"}), ErrQueueClosed)
}

func TestQueueProcessesJobs(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	done := make(chan struct{}, 3)
	q := NewQueue("exports", func(_ context.Context, j Job) error {
		mu.Lock()
		seen = append(seen, j.ID)
		mu.Unlock()
		assert.False(t, j.Enqueued.IsZero())
		done <- struct{}{}
		return nil
	}, QueueConfig{Workers: 2})
	q.Start(context.Background())
	defer q.Stop()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Enqueue(Job{ID: id}))
	}
	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("job not processed")
		}
	}
	mu.Lock()
	assert.ElementsMatch(t, []string{"a", "b", "c"}, seen)
	mu.Unlock()
}

func TestQueueRetriesThenDrops(t *testing.T) {
	attempts := make(chan int, 10)
	q := NewQueue("exports", func(_ context.Context, j Job) error {
		attempts <- j.Attempt
		return errors.New("render failed")
	}, QueueConfig{MaxRetries: 2, RetryDelay: time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "a"}))

	var got []int
	for len(got) < 3 {
		select {
		case a := <-attempts:
			got = append(got, a)
		case <-time.After(2 * time.Second):
			t.Fatalf("expected 3 attempts, got %v", got)
		}
	}
	assert.Equal(t, []int{0, 1, 2}, got)

	require.Eventually(t, func() bool { return q.Stats().Dropped == 1 }, time.Second, 5*time.Millisecond)
	stats := q.Stats()
	assert.Equal(t, uint64(3), stats.Failed)
	assert.Equal(t, uint64(2), stats.Retried)
	assert.Zero(t, stats.Processed)
}

func TestRetryDelayBacksOff(t *testing.T) {
	q := NewQueue("exports", nil, QueueConfig{RetryDelay: time.Second, MaxRetryDelay: 5 * time.Second})
	assert.Equal(t, time.Second, q.retryDelay(1))
	assert.Equal(t, 2*time.Second, q.retryDelay(2))
	assert.Equal(t, 4*time.Second, q.retryDelay(3))
	assert.Equal(t, 5*time.Second, q.retryDelay(4))
}

func TestStopRejectsNewJobs(t *testing.T) {
	q := NewQueue("exports", func(context.Context, Job) error { return nil }, QueueConfig{})
	q.Start(context.Background())
	q.Stop()
	q.Stop()
	assert.ErrorIs(t, q.Enqueue(Job{ID: "a"}), ErrQueueClosed)
}

func TestTryEnqueueDropsWhenFull(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	q := NewQueue("events", func(ctx context.Context, j Job) error {
		if j.ID == "a" {
			close(started)
		}
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1})
	assert.ErrorIs(t, q.TryEnqueue(Job{ID: "early"}), ErrQueueClosed)

	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.TryEnqueue(Job{ID: "a"}))
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("first job not picked up")
	}
	require.NoError(t, q.TryEnqueue(Job{ID: "b"}))
	assert.ErrorIs(t, q.TryEnqueue(Job{ID: "c"}), ErrQueueFull)
	assert.Equal(t, uint64(1), q.Stats().Dropped)
	close(release)
}
