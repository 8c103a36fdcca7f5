package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

const corsPreflightMaxAge = 300

// CORS lets the storefront UI origins call the API with credentials. Retry-After
// is exposed so the UI can back off from rate limits and busy sessions.
func CORS(origins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", HeaderIdempotencyKey, requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader, HeaderReplayed, "Retry-After"},
		AllowCredentials: true,
		MaxAge:           corsPreflightMaxAge,
	})
}
