package lock

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildLock_AcquireRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "build.lock")
	l := New(path)

	require.NoError(t, l.Acquire(context.Background()))
	assert.FileExists(t, path)
	require.NoError(t, l.Release())
	require.NoError(t, l.Release(), "second release is a no-op")
}

func TestBuildLock_Contention(t *testing.T) {
	path := filepath.Join(t.TempDir(), "build.lock")
	first, second := New(path), New(path)

	require.NoError(t, first.TryAcquire())
	t.Cleanup(func() { first.Release() })

	err := second.TryAcquire()
	assert.True(t, errors.Is(err, ErrHeld), "got %v", err)

	ctx, cancel := context.WithTimeout(context.Background(), 3*RetryDelay)
	defer cancel()
	assert.Error(t, second.Acquire(ctx), "acquire gives up when the context ends")

	require.NoError(t, first.Release())
	require.NoError(t, second.TryAcquire())
	require.NoError(t, second.Release())
}

func TestBuildLock_WaitsForRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "build.lock")
	first, second := New(path), New(path)
	require.NoError(t, first.TryAcquire())

	go func() {
		time.Sleep(2 * RetryDelay)
		first.Release()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, second.Acquire(ctx))
	require.NoError(t, second.Release())
}
