package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_RunsJobPeriodically(t *testing.T) {
	var runs atomic.Int32
	s := New("test", 20*time.Millisecond, time.Second, func(context.Context) error {
		runs.Add(1)
		return nil
	}, slog.Default())

	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestScheduler_WaitsForFirstInterval(t *testing.T) {
	var runs atomic.Int32
	s := New("test", time.Hour, time.Second, func(context.Context) error {
		runs.Add(1)
		return nil
	}, slog.Default())

	require.NoError(t, s.Start())
	time.Sleep(50 * time.Millisecond)
	s.Stop()

	assert.Zero(t, runs.Load())
}

func TestScheduler_FailingJobKeepsRunning(t *testing.T) {
	var runs atomic.Int32
	s := New("test", 20*time.Millisecond, time.Second, func(context.Context) error {
		runs.Add(1)
		return errors.New("catalog unavailable")
	}, slog.Default())

	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestScheduler_StopCancelsRunningJob(t *testing.T) {
	started := make(chan struct{}, 1)
	canceled := make(chan struct{}, 1)
	s := New("test", 20*time.Millisecond, 0, func(ctx context.Context) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
		select {
		case canceled <- struct{}{}:
		default:
		}
		return ctx.Err()
	}, slog.Default())

	require.NoError(t, s.Start())

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("job never started")
	}
	s.Stop()

	select {
	case <-canceled:
	case <-time.After(2 * time.Second):
		t.Fatal("job context was not canceled")
	}
}

func TestScheduler_InvalidInterval(t *testing.T) {
	s := New("test", 0, 0, func(context.Context) error { return nil }, slog.Default())
	require.Error(t, s.Start())
}
