package shutdown_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notecache/pkg/shutdown"
)

func TestRunExecutesAllHooks(t *testing.T) {
	var calls atomic.Int32
	hook := func(context.Context) error {
		calls.Add(1)
		return nil
	}
	failing := func(context.Context) error {
		calls.Add(1)
		return errors.New("close failed")
	}

	err := shutdown.Run(context.Background(), time.Second, hook, failing, hook)

	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRunRespectsTimeout(t *testing.T) {
	slow := func(ctx context.Context) error {
		select {
		case <-time.After(5 * time.Second):
		case <-ctx.Done():
			time.Sleep(200 * time.Millisecond)
		}
		return nil
	}

	start := time.Now()
	err := shutdown.Run(context.Background(), 50*time.Millisecond, slow)

	assert.ErrorIs(t, err, shutdown.ErrTimeout)
	assert.Less(t, time.Since(start), time.Second)
}

func TestWaitReturnsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	called := make(chan struct{})

	done := make(chan struct{})
	go func() {
		shutdown.Wait(ctx, time.Second, func(hookCtx context.Context) error {
			assert.NoError(t, hookCtx.Err(), "hooks get a fresh deadline, not the cancelled parent")
			close(called)
			return nil
		})
		close(done)
	}()

	cancel()

	select {
	case <-called:
	case <-time.After(2 * time.Second):
		t.Fatal("hook was not called")
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return")
	}
}
