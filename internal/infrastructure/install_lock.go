package infrastructure

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// InstallLocker hands out per-framework file locks so that two processes
// never write the same install path at once
type InstallLocker struct {
	dir     string
	timeout time.Duration
}

// NewInstallLocker creates a locker keeping its lock files in dir
func NewInstallLocker(dir string, timeout time.Duration) *InstallLocker {
	return &InstallLocker{dir: dir, timeout: timeout}
}

// Lock blocks until the framework lock is held, the timeout passes or ctx is done.
// The returned function releases the lock.
func (l *InstallLocker) Lock(ctx context.Context, framework string) (func(), error) {
	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create locks directory: %w", err)
	}

	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	fileLock := flock.New(filepath.Join(l.dir, framework+".lock"))
	locked, err := fileLock.TryLockContext(ctx, 100*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", framework, err)
	}
	if !locked {
		return nil, fmt.Errorf("failed to lock %s: held by another process", framework)
	}

	return func() { fileLock.Unlock() }, nil
}
