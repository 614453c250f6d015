package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TickFunc is invoked on every tick of a Ticker.
type TickFunc func(ctx context.Context) error

// Ticker runs a function periodically in its own goroutine.
type Ticker struct {
	name     string
	interval time.Duration
	fn       TickFunc
	logger   *zap.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// NewTicker builds a ticker. A non-positive interval disables it.
func NewTicker(name string, interval time.Duration, fn TickFunc, logger *zap.Logger) *Ticker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ticker{
		name:     name,
		interval: interval,
		fn:       fn,
		logger:   logger.With(zap.String("ticker", name)),
	}
}

// Start boots the loop. It returns false when the ticker is disabled or already running.
func (t *Ticker) Start(ctx context.Context) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started || t.interval <= 0 || t.fn == nil {
		return false
	}
	ctx, t.cancel = context.WithCancel(ctx)
	t.done = make(chan struct{})
	t.started = true

	ticker := time.NewTicker(t.interval)
	go func() {
		defer close(t.done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.tick(ctx)
			}
		}
	}()
	t.logger.Info("ticker started", zap.Duration("interval", t.interval))
	return true
}

// Stop cancels the loop and waits for an in-flight tick to return.
func (t *Ticker) Stop() {
	t.mu.Lock()
	if !t.started {
		t.mu.Unlock()
		return
	}
	t.cancel()
	done := t.done
	t.started = false
	t.mu.Unlock()
	<-done
}

func (t *Ticker) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("tick panicked", zap.Any("panic", r))
		}
	}()
	if err := t.fn(ctx); err != nil {
		t.logger.Sugar().Warnw("tick failed", "error", err)
	}
}
