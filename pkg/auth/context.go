package auth

import "context"

type tokenCtxKey struct{}

// ContextWithToken keeps the caller's bearer token so calls to the order service
// act as the caller.
func ContextWithToken(ctx context.Context, token string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, tokenCtxKey{}, token)
}

func TokenFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	token, _ := ctx.Value(tokenCtxKey{}).(string)
	return token
}
