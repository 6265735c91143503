package redis

import "strings"

// Every key the shop writes lives under the "fresa" namespace, then a
// purpose segment: fresa:idempotency:<scope>:<id>, fresa:rate_limit:<scope>,
// fresa:lock:<parts...>.
const (
	keyNamespace      = "fresa"
	idempotencyPrefix = "idempotency"
	rateLimitPrefix   = "rate_limit"
	lockPrefix        = "lock"
)

// IdempotencyKey names the marker for one request or webhook event.
func (c *Client) IdempotencyKey(scope, id string) string {
	return joinKey(idempotencyPrefix, scope, id)
}

// RateLimitKey names the counter for one rate-limit window.
func (c *Client) RateLimitKey(scope string) string {
	return joinKey(rateLimitPrefix, scope)
}

// LockKey names a distributed lease. Empty parts are dropped.
func (c *Client) LockKey(parts ...string) string {
	return joinKey(append([]string{lockPrefix}, parts...)...)
}

func joinKey(parts ...string) string {
	var b strings.Builder
	b.WriteString(keyNamespace)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		b.WriteByte(':')
		b.WriteString(part)
	}
	return b.String()
}
