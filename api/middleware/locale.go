package middleware

import (
	"net/http"

	"github.com/angelmondragon/socshift-backend/pkg/i18n"
)

// Locale hands the Accept-Language header to the translator via the context.
// An explicit ?lang= query parameter wins.
func Locale() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			locale := r.URL.Query().Get("lang")
			if locale == "" {
				locale = r.Header.Get("Accept-Language")
			}
			if locale == "" {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(i18n.WithLocale(r.Context(), locale)))
		})
	}
}
