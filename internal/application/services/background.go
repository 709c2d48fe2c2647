package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// BackgroundTasks runs detached work that must never fail or slow a request.
// Each task gets a fresh context bounded by its own timeout; errors and
// panics are logged at warn.
type BackgroundTasks struct {
	wg      sync.WaitGroup
	timeout time.Duration
}

// NewBackgroundTasks creates a runner whose tasks time out after timeout
func NewBackgroundTasks(timeout time.Duration) *BackgroundTasks {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &BackgroundTasks{timeout: timeout}
}

// Go runs fn in its own goroutine
func (b *BackgroundTasks) Go(name string, fn func(ctx context.Context) error) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		defer cancel()

		if err := b.run(ctx, fn); err != nil {
			log.Warn().Err(err).Str("task", name).Msg("background task failed")
		}
	}()
}

func (b *BackgroundTasks) run(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}

// Wait blocks until every task finished or ctx is done
func (b *BackgroundTasks) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
