package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	done := make(chan string, 2)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		done <- job.ID
		return nil
	}, QueueConfig{Workers: 2})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "a"}))
	require.NoError(t, q.TryEnqueue(Job{ID: "b"}))

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case id := <-done:
			seen[id] = true
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for job")
		}
	}
	assert.True(t, seen["a"])
	assert.True(t, seen["b"])
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	var calls int32
	finished := make(chan struct{})
	q := NewQueue("retry", func(ctx context.Context, job Job) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("boom")
		}
		close(finished)
		return nil
	}, QueueConfig{MaxRetries: 3, RetryDelay: 10 * time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "r"}))

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not retried")
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestQueueRejectsBeforeStart(t *testing.T) {
	q := NewQueue("idle", func(ctx context.Context, job Job) error { return nil }, QueueConfig{})
	assert.Error(t, q.Enqueue(Job{ID: "x"}))
	assert.Error(t, q.TryEnqueue(Job{ID: "x"}))
}

func TestQueueTryEnqueueFull(t *testing.T) {
	block := make(chan struct{})
	q := NewQueue("full", func(ctx context.Context, job Job) error {
		select {
		case <-block:
		case <-ctx.Done():
		}
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1})
	q.Start(context.Background())
	defer q.Stop()
	defer close(block)

	require.NoError(t, q.Enqueue(Job{ID: "1"}))
	// Wait for the worker to pick up the first job so the buffer drains.
	require.Eventually(t, func() bool { return len(q.jobs) == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, q.TryEnqueue(Job{ID: "2"}))
	assert.ErrorIs(t, q.TryEnqueue(Job{ID: "3"}), ErrQueueFull)
}
