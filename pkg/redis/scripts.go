package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// The counter and its expiry are set in one round trip, so a crash between
// INCR and PEXPIRE can no longer leave a window that never resets.
const fixedWindowSrc = `
local n = redis.call('INCR', KEYS[1])
if n == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return n`

// A lease is only deleted by the owner that took it.
const releaseLeaseSrc = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0`

var (
	fixedWindowScript  = redis.NewScript(fixedWindowSrc)
	releaseLeaseScript = redis.NewScript(releaseLeaseSrc)
)

// FixedWindowAllow counts one hit against scope and reports whether the
// window is still under limit.
func (c *Client) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	if err := c.ready(); err != nil {
		return false, 0, err
	}
	count, err := fixedWindowScript.Run(ctx, c.store, []string{c.RateLimitKey(scope)}, window.Milliseconds()).Int64()
	if err != nil {
		return false, 0, err
	}
	return count <= limit, count, nil
}

// AcquireLease takes key for owner until ttl elapses. It reports false when
// someone else holds it.
func (c *Client) AcquireLease(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	return c.SetNX(ctx, key, owner, ttl)
}

// ReleaseLease drops key if owner still holds it. It reports false when the
// lease already expired or moved to another owner.
func (c *Client) ReleaseLease(ctx context.Context, key, owner string) (bool, error) {
	if err := c.ready(); err != nil {
		return false, err
	}
	deleted, err := releaseLeaseScript.Run(ctx, c.store, []string{key}, owner).Int64()
	if err != nil {
		return false, err
	}
	return deleted == 1, nil
}
