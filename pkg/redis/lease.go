package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const defaultLeaseTTL = 30 * time.Second

// compareAndDelete drops KEYS[1] only while it still holds ARGV[1].
const compareAndDelete = `if redis.call("GET", KEYS[1]) == ARGV[1] then return redis.call("DEL", KEYS[1]) end return 0`

// Lease is an owner-tagged SETNX lock. The TTL bounds how long a crashed holder
// blocks others; Release never drops a lease taken over by someone else.
type Lease struct {
	client *Client
	key    string
	ttl    time.Duration
	owner  string
}

// NewLease builds an unheld lease on key.
func (c *Client) NewLease(key string, ttl time.Duration) (*Lease, error) {
	if c == nil {
		return nil, errors.New("redis client required for lease")
	}
	if key == "" {
		return nil, errors.New("lease key is required")
	}
	if ttl <= 0 {
		ttl = defaultLeaseTTL
	}
	return &Lease{client: c, key: key, ttl: ttl}, nil
}

// Key is the redis key guarding the lease.
func (l *Lease) Key() string {
	return l.key
}

// Acquire tries to take the lease once.
func (l *Lease) Acquire(ctx context.Context) (bool, error) {
	owner := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, owner, l.ttl)
	if err != nil {
		return false, fmt.Errorf("setnx %s: %w", l.key, err)
	}
	if ok {
		l.owner = owner
	}
	return ok, nil
}

// Release gives the lease back if this holder still owns it.
func (l *Lease) Release(ctx context.Context) error {
	if l.owner == "" {
		return nil
	}
	owner := l.owner
	l.owner = ""
	if _, err := l.client.DeleteIfEquals(ctx, l.key, owner); err != nil {
		return fmt.Errorf("release %s: %w", l.key, err)
	}
	return nil
}

// DeleteIfEquals atomically deletes key when it holds value.
func (c *Client) DeleteIfEquals(ctx context.Context, key, value string) (bool, error) {
	if c.store == nil {
		return false, errNotInitialized
	}
	deleted, err := c.store.Eval(ctx, compareAndDelete, []string{key}, value).Int64()
	if err != nil {
		return false, err
	}
	return deleted == 1, nil
}
