package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/oshokin/release-keeper/internal/logger"
)

// ErrAlreadyRunning is returned when another run holds the lock.
var ErrAlreadyRunning = errors.New("another run is already in progress")

const lockRetryDelay = 250 * time.Millisecond

// acquireLock takes the exclusive run lock at path, waiting up to timeout.
// The returned function releases it.
func acquireLock(ctx context.Context, path string, timeout time.Duration) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:mnd // same mode as install directories.
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	lockCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	fileLock := flock.New(path)

	locked, err := fileLock.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}

	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyRunning, path)
	}

	logger.DebugKV(ctx, "Run lock acquired", "path", path)

	return func() {
		if unlockErr := fileLock.Unlock(); unlockErr != nil {
			logger.WarnKV(ctx, "Unable to release run lock", "path", path, "error", unlockErr)
		}
	}, nil
}
