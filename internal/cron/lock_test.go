package cron

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type memLeases struct {
	owners map[string]string
	ttls   map[string]time.Duration
}

func newMemLeases() *memLeases {
	return &memLeases{owners: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memLeases) AcquireLease(_ context.Context, key, owner string, ttl time.Duration) (bool, error) {
	if _, held := m.owners[key]; held {
		return false, nil
	}
	m.owners[key] = owner
	m.ttls[key] = ttl
	return true, nil
}

func (m *memLeases) ReleaseLease(_ context.Context, key, owner string) (bool, error) {
	if m.owners[key] != owner {
		return false, nil
	}
	delete(m.owners, key)
	return true, nil
}

func (m *memLeases) LockKey(parts ...string) string {
	return "lock:" + strings.Join(parts, ":")
}

func TestRedisLockerLeasesPerJob(t *testing.T) {
	ctx := context.Background()
	store := newMemLeases()
	workerA, err := NewRedisLocker(store, "prod", "worker-a", 0)
	if err != nil {
		t.Fatalf("NewRedisLocker: %v", err)
	}
	workerB, _ := NewRedisLocker(store, "prod", "worker-b", time.Minute)

	sweep, ok, err := workerA.Lease(ctx, "order-expiration")
	if err != nil || !ok {
		t.Fatalf("first lease: ok=%v err=%v", ok, err)
	}
	if got := store.ttls["lock:cron:prod:order-expiration"]; got != defaultLeaseTTL {
		t.Fatalf("expected default ttl %v, got %v", defaultLeaseTTL, got)
	}
	if owner := store.owners["lock:cron:prod:order-expiration"]; !strings.HasPrefix(owner, "worker-a/") {
		t.Fatalf("lease owner should name the instance, got %q", owner)
	}

	if _, ok, _ := workerB.Lease(ctx, "order-expiration"); ok {
		t.Fatal("second worker must not take a held job")
	}
	if _, ok, _ := workerB.Lease(ctx, "outbox-retention"); !ok {
		t.Fatal("a different job must not be blocked")
	}

	if err := sweep.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, ok, _ := workerB.Lease(ctx, "order-expiration"); !ok {
		t.Fatal("released job should be free")
	}
}

func TestRedisLeaseReportsExpiry(t *testing.T) {
	ctx := context.Background()
	store := newMemLeases()
	locker, _ := NewRedisLocker(store, "", "worker-a", time.Minute)

	lease, ok, err := locker.Lease(ctx, "notification-cleanup")
	if err != nil || !ok {
		t.Fatalf("lease: ok=%v err=%v", ok, err)
	}
	// the ttl ran out and another worker took over
	store.owners["lock:cron:local:notification-cleanup"] = "worker-b/other"

	if err := lease.Release(ctx); !errors.Is(err, ErrLeaseExpired) {
		t.Fatalf("expected ErrLeaseExpired, got %v", err)
	}
	if store.owners["lock:cron:local:notification-cleanup"] != "worker-b/other" {
		t.Fatal("release must not free another worker's lease")
	}
}
