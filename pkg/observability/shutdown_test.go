package observability

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *Logger {
	return NewLogger(ErrorLevel, io.Discard)
}

func TestShutdownManager_RunsRegisteredFuncs(t *testing.T) {
	sm := NewShutdownManager(testLogger(), nil, time.Second)

	var calls atomic.Int32
	sm.RegisterShutdownFunc(func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})
	sm.RegisterShutdownFunc(func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})

	done := make(chan error, 1)
	go func() { done <- sm.WaitForShutdown() }()

	// Give WaitForShutdown time to install its signal handler.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGTERM))

	select {
	case err := <-done:
		assert.NoError(t, err)
		assert.Equal(t, int32(2), calls.Load())
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown did not complete")
	}
}

func TestShutdownManager_CollectsErrors(t *testing.T) {
	sm := NewShutdownManager(testLogger(), nil, time.Second)
	sm.RegisterShutdownFunc(func(ctx context.Context) error {
		return errors.New("close failed")
	})

	done := make(chan error, 1)
	go func() { done <- sm.WaitForShutdown() }()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGTERM))

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "1 errors")
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown did not complete")
	}
}

func TestNewShutdownManager_DefaultTimeout(t *testing.T) {
	sm := NewShutdownManager(testLogger(), nil, 0)
	assert.Equal(t, 30*time.Second, sm.shutdownTimeout)
}

func TestMustRecover(t *testing.T) {
	assert.NoError(t, MustRecover(nil))

	err := func() (err error) {
		defer func() { err = MustRecover(recover()) }()
		panic("boom")
	}()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}
