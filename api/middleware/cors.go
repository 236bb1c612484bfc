package middleware

import (
	"net/http"
	"slices"

	"github.com/go-chi/cors"

	"github.com/angelmondragon/socshift-backend/pkg/config"
)

// CORS lets the scheduling web app call the API from its own origin. A
// wildcard origin drops credentialed requests, as browsers require.
func CORS(cfg config.CORSConfig) func(http.Handler) http.Handler {
	wildcard := slices.Contains(cfg.AllowedOrigins, "*")
	return cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Accept-Language", "Authorization", "Content-Type", idempotencyHeader, requestIDHeader},
		// Exports are downloaded via Content-Disposition; 429s carry Retry-After.
		ExposedHeaders:   []string{requestIDHeader, "Content-Disposition", "Retry-After"},
		AllowCredentials: !wildcard,
		MaxAge:           cfg.MaxAgeSeconds,
	})
}
