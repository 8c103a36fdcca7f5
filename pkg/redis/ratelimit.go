package redis

import (
	"context"
	"fmt"
	"time"
)

// fixedWindow increments KEYS[1], starts its window on the first hit and returns
// the count with the milliseconds left in the window. Doing both in one script
// means a counter can never be left without an expiry.
const fixedWindow = `
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {count, ttl}`

// Window is the state of a fixed-window counter after one hit.
type Window struct {
	Allowed    bool
	Count      int64
	RetryAfter time.Duration
}

// FixedWindowAllow counts one hit against scope and reports whether it is within
// limit. RetryAfter is the time until the window resets.
func (c *Client) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (Window, error) {
	if c.store == nil {
		return Window{}, errNotInitialized
	}
	if window <= 0 {
		return Window{}, fmt.Errorf("rate limit window must be positive")
	}
	res, err := c.store.Eval(ctx, fixedWindow, []string{c.RateLimitKey(scope)}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return Window{}, fmt.Errorf("rate limit %s: %w", scope, err)
	}
	if len(res) != 2 {
		return Window{}, fmt.Errorf("rate limit %s: unexpected reply %v", scope, res)
	}
	return Window{
		Allowed:    res[0] <= limit,
		Count:      res[0],
		RetryAfter: time.Duration(res[1]) * time.Millisecond,
	}, nil
}
