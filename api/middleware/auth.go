package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/campusbite/orderflow/api/responses"
	"github.com/campusbite/orderflow/pkg/auth"
	pkgerrors "github.com/campusbite/orderflow/pkg/errors"
	"github.com/campusbite/orderflow/pkg/logger"
)

const bearerScheme = "bearer"

var (
	errMissingCredentials = pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	errUnsupportedScheme  = pkgerrors.New(pkgerrors.CodeUnauthorized, "authorization must use the Bearer scheme")
)

// Auth admits requests carrying a valid identity-service token. The session id
// from the token keys every piece of per-customer state.
func Auth(verifier *auth.Verifier, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r.Header.Get("Authorization"))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				message := "invalid token"
				if errors.Is(err, auth.ErrTokenExpired) {
					message = "token expired"
				}
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, message))
				return
			}

			sessionID := claims.EffectiveSessionID()
			if sessionID == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id"))
				return
			}

			userID := claims.UserID.String()
			ctx := WithSessionID(WithUserID(r.Context(), userID), sessionID)
			ctx = WithProfile(ctx, claims.Profile)
			ctx = auth.ContextWithToken(ctx, token)
			if logg != nil {
				ctx = logg.WithSessionID(logg.WithUserID(ctx, userID), sessionID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errMissingCredentials
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, bearerScheme) {
		return "", errUnsupportedScheme
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errMissingCredentials
	}
	return token, nil
}
