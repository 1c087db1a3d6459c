package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestNextWait(t *testing.T) {
	period := 43200 * time.Second
	tests := []struct {
		name   string
		offset int64
		want   time.Duration
	}{
		{"late in the period skips a boundary", 40000, 46400 * time.Second},
		{"on the boundary waits a full period", 0, period},
		{"early in the period", 10000, 33200 * time.Second},
		{"exactly a quarter left", 32400, 10800 * time.Second},
		{"just under a quarter left", 32401, 53999 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := time.Unix(43200*1000+tt.offset, 0)
			assert.Equal(t, tt.want, NextWait(now, period))
		})
	}

	assert.Zero(t, NextWait(time.Now(), 0))
}

func TestTimer(t *testing.T) {
	t.Run("elapses", func(t *testing.T) {
		timer := StartTimer(time.Millisecond)
		_, timed := timer.Deadline()
		assert.True(t, timed)
		wake, err := timer.Wait(context.Background())
		require.NoError(t, err)
		assert.Equal(t, WakeElapsed, wake)
	})

	t.Run("indefinite until cancelled", func(t *testing.T) {
		timer := StartTimer(0)
		_, timed := timer.Deadline()
		assert.False(t, timed)
		go func() {
			time.Sleep(5 * time.Millisecond)
			timer.Cancel()
			timer.Cancel()
		}()
		wake, err := timer.Wait(context.Background())
		require.NoError(t, err)
		assert.Equal(t, WakeCancelled, wake)
	})

	t.Run("cancelled before waiting", func(t *testing.T) {
		timer := StartTimer(time.Hour)
		timer.Cancel()
		wake, err := timer.Wait(context.Background())
		require.NoError(t, err)
		assert.Equal(t, WakeCancelled, wake)
	})

	t.Run("context ends the wait", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := StartTimer(time.Hour).Wait(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
