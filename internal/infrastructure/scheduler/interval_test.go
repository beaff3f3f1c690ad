package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntervalSchedulerRunsImmediatelyAndRepeats(t *testing.T) {
	s := NewIntervalScheduler(10*time.Millisecond, nil)

	var runs atomic.Int32
	require.NoError(t, s.Start(context.Background(), func(time.Time) { runs.Add(1) }))
	require.NoError(t, s.Start(context.Background(), func(time.Time) { t.Error("second start must not schedule") }))

	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))

	after := runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, runs.Load())

	require.NoError(t, s.Stop(context.Background()))
}

func TestIntervalSchedulerStopsWithContext(t *testing.T) {
	s := NewIntervalScheduler(time.Hour, time.UTC)
	ctx, cancel := context.WithCancel(context.Background())

	triggered := make(chan time.Time, 1)
	require.NoError(t, s.Start(ctx, func(at time.Time) { triggered <- at }))

	select {
	case at := <-triggered:
		assert.Equal(t, time.UTC, at.Location())
	case <-time.After(time.Second):
		t.Fatal("job did not run on start")
	}

	cancel()
	require.NoError(t, s.Stop(context.Background()))
}

func TestIntervalSchedulerIgnoresNilJob(t *testing.T) {
	s := NewIntervalScheduler(time.Minute, nil)
	require.NoError(t, s.Start(context.Background(), nil))
	require.NoError(t, s.Stop(context.Background()))
}
