package validators

import (
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/socshift-backend/pkg/dates"
	pkgerrors "github.com/angelmondragon/socshift-backend/pkg/errors"
)

func queryValue(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}

func invalidParam(msg, key string, extra map[string]any) error {
	details := map[string]any{"field": key}
	for k, v := range extra {
		details[k] = v
	}
	return pkgerrors.New(pkgerrors.CodeValidation, msg).WithDetails(details)
}

// ParseQueryInt reads key as an integer in [lo, hi], returning def when absent.
func ParseQueryInt(r *http.Request, key string, def, lo, hi int) (int, error) {
	raw := queryValue(r, key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, invalidParam("query parameter must be numeric", key, nil)
	}
	if n < lo || n > hi {
		return 0, invalidParam("query parameter out of range", key, map[string]any{"min": lo, "max": hi})
	}
	return n, nil
}

// ParseQueryDate returns the YYYY-MM-DD value of key, or "" when absent.
func ParseQueryDate(r *http.Request, key string) (string, error) {
	raw := queryValue(r, key)
	if raw != "" && !dates.Valid(raw) {
		return "", invalidParam("query parameter must be a date in YYYY-MM-DD format", key, nil)
	}
	return raw, nil
}

// QueryString returns the trimmed value of key, capped at maxLen runes so
// accented names are never cut mid-character.
func QueryString(r *http.Request, key string, maxLen int) string {
	value := queryValue(r, key)
	if maxLen > 0 && utf8.RuneCountInString(value) > maxLen {
		value = string([]rune(value)[:maxLen])
	}
	return value
}

// PathParam returns a required chi URL parameter.
func PathParam(r *http.Request, name string) (string, error) {
	value := strings.TrimSpace(chi.URLParam(r, name))
	if value == "" {
		return "", invalidParam("path parameter is required", name, nil)
	}
	return value, nil
}
