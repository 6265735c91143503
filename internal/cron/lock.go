package cron

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const defaultLeaseTTL = 15 * time.Minute

// ErrLeaseExpired reports that a job outran its lease; another worker may
// have started the same job meanwhile.
var ErrLeaseExpired = errors.New("cron lease expired before release")

// Lease is held for the duration of one job run.
type Lease interface {
	Release(ctx context.Context) error
}

// Locker hands out one lease per job name. Two workers never run the same
// job together, but different jobs may overlap.
type Locker interface {
	Lease(ctx context.Context, job string) (Lease, bool, error)
}

type leaseStore interface {
	AcquireLease(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	ReleaseLease(ctx context.Context, key, owner string) (bool, error)
	LockKey(parts ...string) string
}

// RedisLocker keys leases as lock:cron:<env>:<job> and stamps each one with
// the worker instance that took it.
type RedisLocker struct {
	store    leaseStore
	env      string
	instance string
	ttl      time.Duration
}

// NewRedisLocker builds a Redis-backed locker for one environment.
func NewRedisLocker(store leaseStore, env, instance string, ttl time.Duration) (*RedisLocker, error) {
	if store == nil {
		return nil, errors.New("redis client required for cron leases")
	}
	env = strings.TrimSpace(env)
	if env == "" {
		env = "local"
	}
	if ttl <= 0 {
		ttl = defaultLeaseTTL
	}
	return &RedisLocker{store: store, env: env, instance: instance, ttl: ttl}, nil
}

// Lease tries to take job's lease. It reports false without error when
// another worker holds it.
func (l *RedisLocker) Lease(ctx context.Context, job string) (Lease, bool, error) {
	key := l.store.LockKey("cron", l.env, job)
	owner := uuid.NewString()
	if l.instance != "" {
		owner = l.instance + "/" + owner
	}
	ok, err := l.store.AcquireLease(ctx, key, owner, l.ttl)
	if err != nil {
		return nil, false, fmt.Errorf("acquire %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}
	return &redisLease{store: l.store, key: key, owner: owner}, true, nil
}

type redisLease struct {
	store leaseStore
	key   string
	owner string
}

func (l *redisLease) Release(ctx context.Context) error {
	released, err := l.store.ReleaseLease(ctx, l.key, l.owner)
	if err != nil {
		return fmt.Errorf("release %s: %w", l.key, err)
	}
	if !released {
		return ErrLeaseExpired
	}
	return nil
}
