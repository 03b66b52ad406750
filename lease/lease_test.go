package lease

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oar-cd/skiff/domain"
)

func TestAcquire_Exclusive(t *testing.T) {
	locker := NewLocker(t.TempDir(), 300*time.Millisecond)

	first, err := locker.Acquire(context.Background(), "demo")
	require.NoError(t, err)

	_, err = locker.Acquire(context.Background(), "demo")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrLeaseUnavailable)

	first.Release()

	second, err := locker.Acquire(context.Background(), "demo")
	require.NoError(t, err)
	second.Release()
}

func TestAcquire_DifferentIdentities(t *testing.T) {
	locker := NewLocker(t.TempDir(), 300*time.Millisecond)

	a, err := locker.Acquire(context.Background(), "alpha")
	require.NoError(t, err)
	defer a.Release()

	b, err := locker.Acquire(context.Background(), "beta")
	require.NoError(t, err)
	defer b.Release()
}

func TestAcquire_WaitsForRelease(t *testing.T) {
	locker := NewLocker(t.TempDir(), 5*time.Second)

	held, err := locker.Acquire(context.Background(), "demo")
	require.NoError(t, err)

	go func() {
		time.Sleep(200 * time.Millisecond)
		held.Release()
	}()

	start := time.Now()
	next, err := locker.Acquire(context.Background(), "demo")
	require.NoError(t, err)
	defer next.Release()
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}

func TestAcquire_CancelledContext(t *testing.T) {
	locker := NewLocker(t.TempDir(), time.Second)

	held, err := locker.Acquire(context.Background(), "demo")
	require.NoError(t, err)
	defer held.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = locker.Acquire(ctx, "demo")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrLeaseUnavailable)
}

func TestRelease_Idempotent(t *testing.T) {
	locker := NewLocker(t.TempDir(), time.Second)
	l, err := locker.Acquire(context.Background(), "demo")
	require.NoError(t, err)

	l.Release()
	l.Release()

	var nilLease *Lease
	nilLease.Release()
}
