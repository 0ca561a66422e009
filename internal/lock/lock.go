// Package lock serializes builds that publish to the same index.
package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// ErrHeld is returned by TryAcquire when another process owns the lock.
var ErrHeld = errors.New("build lock held by another process")

// RetryDelay is how often Acquire polls a held lock.
const RetryDelay = 250 * time.Millisecond

// BuildLock is a cross-process lock backed by a file.
type BuildLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// New returns an unlocked BuildLock on path. The file is created on first use.
func New(path string) *BuildLock {
	return &BuildLock{path: path, flock: flock.New(path)}
}

// Acquire blocks until the lock is held or ctx is done.
func (l *BuildLock) Acquire(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}
	ok, err := l.flock.TryLockContext(ctx, RetryDelay)
	if err != nil {
		return fmt.Errorf("failed to acquire build lock %s: %w", l.path, err)
	}
	if !ok {
		return fmt.Errorf("failed to acquire build lock %s: %w", l.path, ErrHeld)
	}
	l.locked = true
	return nil
}

// TryAcquire takes the lock without waiting.
func (l *BuildLock) TryAcquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}
	ok, err := l.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire build lock %s: %w", l.path, err)
	}
	if !ok {
		return ErrHeld
	}
	l.locked = true
	return nil
}

// Release unlocks. Calling it on an unlocked BuildLock is a no-op.
func (l *BuildLock) Release() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release build lock: %w", err)
	}
	return nil
}

// Path returns the lock file path.
func (l *BuildLock) Path() string {
	return l.path
}
