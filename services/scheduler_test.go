package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerRunsOncePerKey(t *testing.T) {
	s := NewScheduler()
	var runs atomic.Int32
	done := make(chan struct{})

	assert.True(t, s.Schedule("k", 10*time.Millisecond, func() {
		runs.Add(1)
		close(done)
	}))
	assert.False(t, s.Schedule("k", 10*time.Millisecond, func() { runs.Add(1) }))
	assert.True(t, s.Pending("k"))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not run")
	}
	require.NoError(t, s.Shutdown(context.Background()))
	assert.Equal(t, int32(1), runs.Load())
	assert.False(t, s.Pending("k"))
}

func TestSchedulerTrigger(t *testing.T) {
	s := NewScheduler()
	var runs atomic.Int32

	s.Schedule("k", time.Hour, func() { runs.Add(1) })
	assert.True(t, s.Trigger("k"))
	assert.Equal(t, int32(1), runs.Load())
	assert.False(t, s.Trigger("k"))

	require.NoError(t, s.Shutdown(context.Background()))
	assert.Equal(t, int32(1), runs.Load())
}

func TestSchedulerCancel(t *testing.T) {
	s := NewScheduler()
	var runs atomic.Int32

	s.Schedule("k", time.Hour, func() { runs.Add(1) })
	assert.True(t, s.Cancel("k"))
	assert.False(t, s.Cancel("k"))

	// the key is free again
	assert.True(t, s.Schedule("k", time.Hour, func() { runs.Add(10) }))

	require.NoError(t, s.Shutdown(context.Background()))
	assert.Equal(t, int32(10), runs.Load())
}

func TestSchedulerShutdownFlushesPending(t *testing.T) {
	s := NewScheduler()
	var runs atomic.Int32

	s.Schedule("a", time.Hour, func() { runs.Add(1) })
	s.Schedule("b", time.Hour, func() { runs.Add(1) })

	require.NoError(t, s.Shutdown(context.Background()))
	assert.Equal(t, int32(2), runs.Load())
	assert.False(t, s.Schedule("c", time.Millisecond, func() { runs.Add(1) }))
}

func TestSchedulerSurvivesPanic(t *testing.T) {
	s := NewScheduler()
	s.Schedule("boom", time.Hour, func() { panic("boom") })
	assert.True(t, s.Trigger("boom"))
	require.NoError(t, s.Shutdown(context.Background()))
}
