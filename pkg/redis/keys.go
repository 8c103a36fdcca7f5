package redis

import "strings"

// Every key lives under "of:" so the service can share a Redis with others.
const (
	keyNamespace      = "of"
	idempotencyPrefix = "idempotency"
	rateLimitPrefix   = "rate_limit"
	sessionPrefix     = "session"
	lockPrefix        = "lock"
	housekeepingScope = "housekeeping"
)

func (c *Client) IdempotencyKey(scope, id string) string {
	return joinKey(idempotencyPrefix, scope, id)
}

func (c *Client) RateLimitKey(scope string) string {
	return joinKey(rateLimitPrefix, scope)
}

// SessionKey holds a session's cart, promo and checkout state.
func (c *Client) SessionKey(sessionID string) string {
	return joinKey(sessionPrefix, sessionID)
}

// SessionLockKey serialises requests of one session.
func (c *Client) SessionLockKey(sessionID string) string {
	return joinKey(lockPrefix, sessionPrefix, sessionID)
}

// HousekeepingLockKey serialises housekeeping cycles across workers.
func (c *Client) HousekeepingLockKey() string {
	return joinKey(lockPrefix, housekeepingScope)
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
