package workerpool

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_RunsAllTasksBeforeShutdown(t *testing.T) {
	p := New(4, 16)

	var done atomic.Int32
	for i := 0; i < 100; i++ {
		require.True(t, p.Submit(context.Background(), func() { done.Add(1) }))
	}

	require.NoError(t, p.Shutdown(context.Background()))
	assert.Equal(t, int32(100), done.Load())
}

func TestPool_SurvivesPanic(t *testing.T) {
	p := New(1, 4)

	var ran atomic.Bool
	require.True(t, p.Submit(context.Background(), func() { panic("boom") }))
	require.True(t, p.Submit(context.Background(), func() { ran.Store(true) }))

	require.NoError(t, p.Shutdown(context.Background()))
	assert.True(t, ran.Load())
}

func TestPool_TrySubmitWhenFull(t *testing.T) {
	p := New(1, 1)
	block := make(chan struct{})
	started := make(chan struct{})

	require.True(t, p.TrySubmit(func() { close(started); <-block }))
	<-started
	require.True(t, p.TrySubmit(func() {}))
	assert.False(t, p.TrySubmit(func() {}), "queue is full")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.False(t, p.Submit(ctx, func() {}))

	close(block)
	require.NoError(t, p.Shutdown(context.Background()))
	assert.False(t, p.TrySubmit(func() {}), "closed pool rejects tasks")
	assert.False(t, p.Submit(context.Background(), func() {}))
}

func TestPool_ShutdownRespectsContext(t *testing.T) {
	p := New(1, 1)
	block := make(chan struct{})
	defer close(block)
	require.True(t, p.TrySubmit(func() { <-block }))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Shutdown(ctx), context.DeadlineExceeded)
}
