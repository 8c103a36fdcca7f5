package session

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"

	"github.com/campusbite/orderflow/pkg/config"
	pkgerrors "github.com/campusbite/orderflow/pkg/errors"
	"github.com/campusbite/orderflow/pkg/logger"
	pkgredis "github.com/campusbite/orderflow/pkg/redis"
)

const (
	lockRetries  = 4
	lockInterval = 75 * time.Millisecond
)

var errLockHeld = errors.New("session lock held")

type kv interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	NewLease(key string, ttl time.Duration) (*pkgredis.Lease, error)
	SessionKey(sessionID string) string
	SessionLockKey(sessionID string) string
}

// Store keeps session state in redis and serializes mutations per session.
type Store struct {
	client  kv
	ttl     time.Duration
	lockTTL time.Duration
	logg    *logger.Logger
}

// NewStore wires a Store.
func NewStore(client kv, cfg config.SessionConfig, logg *logger.Logger) (*Store, error) {
	if client == nil {
		return nil, errors.New("redis client required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &Store{client: client, ttl: cfg.TTL, lockTTL: cfg.LockTTL, logg: logg}, nil
}

// Load reads a session's state. Unknown sessions start empty.
func (s *Store) Load(ctx context.Context, sessionID string) (*State, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session required")
	}
	raw, err := s.client.Get(ctx, s.client.SessionKey(sessionID))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return NewState(), nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session")
	}
	state := NewState()
	if err := json.Unmarshal([]byte(raw), state); err != nil {
		s.logg.Error(s.logg.WithSessionID(ctx, sessionID), "discarding unreadable session state", err)
		return NewState(), nil
	}
	if state.Cart == nil {
		state.ensureCart()
	}
	return state, nil
}

// Save writes a session's state and refreshes its TTL.
func (s *Store) Save(ctx context.Context, sessionID string, state *State) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode session")
	}
	if err := s.client.Set(ctx, s.client.SessionKey(sessionID), string(payload), s.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save session")
	}
	return nil
}

// Do runs fn with exclusive access to the session's state and saves the result,
// including when fn fails, since failed transitions still record state.
// A lock held by another request yields SESSION_BUSY.
func (s *Store) Do(ctx context.Context, sessionID string, fn func(*State) error) error {
	if strings.TrimSpace(sessionID) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "session required")
	}
	lock, err := s.client.NewLease(s.client.SessionLockKey(sessionID), s.lockTTL)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "session lock")
	}

	backoff := retry.WithMaxRetries(lockRetries, retry.NewConstant(lockInterval))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		ok, err := lock.Acquire(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return retry.RetryableError(errLockHeld)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errLockHeld) {
			return pkgerrors.New(pkgerrors.CodeBusy, "session busy")
		}
		if ctx.Err() != nil {
			return pkgerrors.Wrap(pkgerrors.CodeBusy, err, "session busy")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire session lock")
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.logg.Error(s.logg.WithSessionID(ctx, sessionID), "failed to release session lock", err)
		}
	}()

	state, err := s.Load(ctx, sessionID)
	if err != nil {
		return err
	}
	fnErr := fn(state)
	if saveErr := s.Save(context.WithoutCancel(ctx), sessionID, state); saveErr != nil {
		if fnErr != nil {
			s.logg.Error(s.logg.WithSessionID(ctx, sessionID), "failed to save session state", saveErr)
			return fnErr
		}
		return saveErr
	}
	return fnErr
}
