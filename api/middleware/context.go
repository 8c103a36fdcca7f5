package middleware

import (
	"context"

	"github.com/campusbite/orderflow/pkg/auth"
	pkgerrors "github.com/campusbite/orderflow/pkg/errors"
)

type contextKey string

const (
	ctxUserID    contextKey = "user_id"
	ctxSessionID contextKey = "session_id"
	ctxProfile   contextKey = "profile"
)

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func SessionIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxSessionID).(string); ok {
		return v
	}
	return ""
}

// ProfileFromContext returns the identity claims used to pre-fill delivery details.
func ProfileFromContext(ctx context.Context) auth.Profile {
	if ctx == nil {
		return auth.Profile{}
	}
	if v, ok := ctx.Value(ctxProfile).(auth.Profile); ok {
		return v
	}
	return auth.Profile{}
}

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

// WithSessionID injects the session identifier into the context for downstream handlers.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxSessionID, sessionID)
}

func WithProfile(ctx context.Context, profile auth.Profile) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxProfile, profile)
}

// RequireSession returns the authenticated session id or an UNAUTHORIZED error.
func RequireSession(ctx context.Context) (string, error) {
	sessionID := SessionIDFromContext(ctx)
	if sessionID == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "session required")
	}
	return sessionID, nil
}
