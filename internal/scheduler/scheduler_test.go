package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_InvalidSpec(t *testing.T) {
	_, err := New(Config{Enabled: true, CronSpec: "every now and then"}, func(context.Context) error { return nil })
	assert.Error(t, err)
}

func TestScheduler_RunsJob(t *testing.T) {
	var calls atomic.Int32
	s, err := New(Config{Enabled: true, CronSpec: "@every 1s"}, func(ctx context.Context) error {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		calls.Add(1)
		return errors.New("keeps going")
	})
	require.NoError(t, err)

	s.Start()
	require.Eventually(t, func() bool { return calls.Load() >= 2 }, 5*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}

func TestScheduler_DisabledDoesNotRun(t *testing.T) {
	var calls atomic.Int32
	s, err := New(Config{Enabled: false, CronSpec: "@every 1s"}, func(context.Context) error {
		calls.Add(1)
		return nil
	})
	require.NoError(t, err)

	s.Start()
	time.Sleep(1500 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
	s.Stop(context.Background())
}
