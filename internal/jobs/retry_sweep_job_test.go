package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/maheshrc27/contentloop/internal/publish"
	"github.com/stretchr/testify/assert"
)

type fakeSweeper struct {
	calls int
	n     int
	err   error
}

func (f *fakeSweeper) RetrySweep(context.Context, publish.RetryPolicy) (int, error) {
	f.calls++
	return f.n, f.err
}

func TestRetrySweepJob(t *testing.T) {
	t.Run("manual policy never sweeps", func(t *testing.T) {
		s := &fakeSweeper{n: 3}
		j := NewRetrySweepJob(s, publish.NewRetryPolicy("manual", 0))
		assert.False(t, j.Enabled())
		assert.Zero(t, j.Run(context.Background()))
		assert.Zero(t, s.calls)
	})

	t.Run("backoff policy sweeps", func(t *testing.T) {
		s := &fakeSweeper{n: 2}
		j := NewRetrySweepJob(s, publish.ExponentialBackoff{Base: time.Minute, MaxAttempts: 3})
		assert.True(t, j.Enabled())
		assert.Equal(t, 2, j.Run(context.Background()))
		assert.Equal(t, 1, s.calls)
	})

	t.Run("sweep error is logged, partial count kept", func(t *testing.T) {
		s := &fakeSweeper{n: 1, err: errors.New("db down")}
		j := NewRetrySweepJob(s, publish.NewRetryPolicy("backoff", 5))
		assert.Equal(t, 1, j.Run(context.Background()))
	})
}
