package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fastConfig(attempts int) Config {
	return Config{
		MaxAttempts:   attempts,
		InitialDelay:  time.Millisecond,
		MaxDelay:      2 * time.Millisecond,
		BackoffFactor: 2,
	}
}

func TestDo_SucceedsAfterRetries(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(5), func() error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoWithLog_ExhaustsAttempts(t *testing.T) {
	var notified []int
	err := DoWithLog(context.Background(), fastConfig(3), "PostgreSQL",
		func() error { return assert.AnError },
		func(attempt int, err error, nextDelay time.Duration) { notified = append(notified, attempt) },
	)

	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "PostgreSQL")
	assert.Equal(t, []int{1, 2}, notified)
}

func TestDo_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Do(ctx, fastConfig(5), func() error {
		calls++
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestNextDelay_Capped(t *testing.T) {
	cfg := Config{BackoffFactor: 10, MaxDelay: 50 * time.Millisecond}
	assert.Equal(t, 50*time.Millisecond, nextDelay(10*time.Millisecond, cfg))
}
