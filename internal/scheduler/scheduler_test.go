package scheduler_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/recommender/internal/scheduler"
	"github.com/jonesrussell/north-cloud/recommender/internal/testhelpers"
)

func TestRunOnStartFiresImmediately(t *testing.T) {
	var runs atomic.Int64
	s := scheduler.New(testhelpers.NopLogger{}, scheduler.Job{
		Name:       "immediate",
		Interval:   time.Hour,
		RunOnStart: true,
		Fn: func(context.Context) error {
			runs.Add(1)
			return nil
		},
	})

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return runs.Load() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestTickerDrivesRepeatedRuns(t *testing.T) {
	var runs atomic.Int64
	s := scheduler.New(testhelpers.NopLogger{}, scheduler.Job{
		Name:     "ticking",
		Interval: 10 * time.Millisecond,
		Fn: func(context.Context) error {
			runs.Add(1)
			return nil
		},
	})

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return runs.Load() >= 3
	}, time.Second, 10*time.Millisecond)
}

func TestFailingJobKeepsSchedule(t *testing.T) {
	var runs atomic.Int64
	s := scheduler.New(testhelpers.NopLogger{}, scheduler.Job{
		Name:     "flaky",
		Interval: 10 * time.Millisecond,
		Fn: func(context.Context) error {
			runs.Add(1)
			return assert.AnError
		},
	})

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return runs.Load() >= 2
	}, time.Second, 10*time.Millisecond)
}

func TestPanickingJobIsRecovered(t *testing.T) {
	var runs atomic.Int64
	s := scheduler.New(testhelpers.NopLogger{}, scheduler.Job{
		Name:     "panicky",
		Interval: 10 * time.Millisecond,
		Fn: func(context.Context) error {
			runs.Add(1)
			panic("boom")
		},
	})

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return runs.Load() >= 2
	}, time.Second, 10*time.Millisecond)
}

func TestStopWaitsForJobs(t *testing.T) {
	s := scheduler.New(testhelpers.NopLogger{}, scheduler.Job{
		Name:     "idle",
		Interval: time.Hour,
		Fn:       func(context.Context) error { return nil },
	})

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())

	s.Stop()
	assert.False(t, s.IsRunning())
}

func TestStartTwiceFails(t *testing.T) {
	s := scheduler.New(testhelpers.NopLogger{}, scheduler.Job{
		Name:     "single",
		Interval: time.Hour,
		Fn:       func(context.Context) error { return nil },
	})

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Error(t, s.Start(context.Background()))
}

func TestStopIsIdempotent(t *testing.T) {
	s := scheduler.New(testhelpers.NopLogger{}, scheduler.Job{
		Name:     "idle",
		Interval: time.Hour,
		Fn:       func(context.Context) error { return nil },
	})

	require.NoError(t, s.Start(context.Background()))
	s.Stop()
	s.Stop()
	assert.False(t, s.IsRunning())
}

func TestRestartAfterStopFails(t *testing.T) {
	s := scheduler.New(testhelpers.NopLogger{}, scheduler.Job{
		Name:     "once",
		Interval: time.Hour,
		Fn:       func(context.Context) error { return nil },
	})

	require.NoError(t, s.Start(context.Background()))
	s.Stop()

	// A stopped scheduler stays stopped; its stop channel is closed and any
	// relaunched job would exit immediately.
	assert.Error(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())
}

func TestContextCancellationStopsJobs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var runs atomic.Int64
	s := scheduler.New(testhelpers.NopLogger{}, scheduler.Job{
		Name:     "cancelable",
		Interval: 10 * time.Millisecond,
		Fn: func(context.Context) error {
			runs.Add(1)
			return nil
		},
	})

	require.NoError(t, s.Start(ctx))
	assert.Eventually(t, func() bool {
		return runs.Load() >= 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	time.Sleep(50 * time.Millisecond)
	after := runs.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, runs.Load())

	s.Stop()
}
