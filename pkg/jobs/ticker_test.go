package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTickerRunsPeriodically(t *testing.T) {
	var calls int32
	ticker := NewTicker("sweep", 5*time.Millisecond, func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("ignored")
	}, nil)

	assert.True(t, ticker.Start(context.Background()))
	assert.False(t, ticker.Start(context.Background()), "second start is a no-op")

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) >= 3 }, 2*time.Second, 5*time.Millisecond)
	ticker.Stop()

	after := atomic.LoadInt32(&calls)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, atomic.LoadInt32(&calls), "no ticks after stop")
}

func TestTickerDisabled(t *testing.T) {
	ticker := NewTicker("off", 0, func(ctx context.Context) error { return nil }, nil)
	assert.False(t, ticker.Start(context.Background()))
	ticker.Stop()
}

func TestTickerSurvivesPanics(t *testing.T) {
	var calls int32
	ticker := NewTicker("panicky", 5*time.Millisecond, func(ctx context.Context) error {
		if atomic.AddInt32(&calls, 1) == 1 {
			panic("boom")
		}
		return nil
	}, nil)
	ticker.Start(context.Background())
	defer ticker.Stop()

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) >= 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestTickerStopsWithParentContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ticker := NewTicker("ctx", time.Hour, func(ctx context.Context) error { return nil }, nil)
	ticker.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		ticker.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stop blocked after parent cancel")
	}
}
