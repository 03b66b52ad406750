// Package lease serializes runs for the same project identity across processes.
package lease

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/oar-cd/skiff/domain"
)

const retryDelay = 100 * time.Millisecond

// Locker hands out per-identity file locks under a directory
type Locker struct {
	dir     string
	timeout time.Duration
}

func NewLocker(dir string, timeout time.Duration) *Locker {
	return &Locker{dir: dir, timeout: timeout}
}

// Lease is a held lock. Release is safe to call more than once.
type Lease struct {
	identity string
	lock     *flock.Flock
}

// Acquire blocks until the lock for identity is free or the timeout elapses.
// A timeout yields domain.ErrLeaseUnavailable.
func (l *Locker) Acquire(ctx context.Context, identity string) (*Lease, error) {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory %s: %w", l.dir, err)
	}

	path := filepath.Join(l.dir, identity+".lock")
	lock := flock.New(path)

	lockCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	slog.Debug("Acquiring project lease", "layer", "lease", "project", identity, "path", path)
	locked, err := lock.TryLockContext(lockCtx, retryDelay)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w: %s (waited %s)", domain.ErrLeaseUnavailable, identity, l.timeout)
		}
		return nil, fmt.Errorf("failed to lock %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", domain.ErrLeaseUnavailable, identity)
	}

	return &Lease{identity: identity, lock: lock}, nil
}

func (l *Lease) Release() {
	if l == nil || !l.lock.Locked() {
		return
	}
	if err := l.lock.Unlock(); err != nil {
		slog.Warn("Failed to release project lease",
			"layer", "lease",
			"project", l.identity,
			"error", err)
		return
	}
	slog.Debug("Released project lease", "layer", "lease", "project", l.identity)
}
