package pagination

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100
)

const sep = "|"

var ErrInvalidCursor = errors.New("invalid cursor")

// Cursor is the (timestamp, document id) pair of the last row a page
// returned. Queries resume with StartAfter on the same ordering.
type Cursor struct {
	Timestamp time.Time
	ID        string
}

// NormalizeLimit clamps a requested page size into [1, MaxLimit], treating
// zero or negative as DefaultLimit.
func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// LimitWithBuffer asks for one extra row so Split can tell whether another
// page exists.
func LimitWithBuffer(limit int) int {
	return NormalizeLimit(limit) + 1
}

// Split trims rows fetched with LimitWithBuffer(limit) back to the page size
// and returns the cursor of the last kept row, or nil on the final page.
func Split[T any](rows []T, limit int, at func(T) Cursor) ([]T, *Cursor) {
	size := NormalizeLimit(limit)
	if len(rows) <= size {
		return rows, nil
	}
	rows = rows[:size]
	next := at(rows[size-1])
	return rows, &next
}

// EncodeCursor renders the cursor as URL-safe base64 so it can travel in a
// query string untouched.
func EncodeCursor(c Cursor) string {
	raw := c.Timestamp.UTC().Format(time.RFC3339Nano) + sep + c.ID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// ParseCursor reverses EncodeCursor. An empty value means "first page" and
// yields a nil cursor.
func ParseCursor(value string) (*Cursor, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(value, "="))
	if err != nil {
		return nil, errors.Join(ErrInvalidCursor, err)
	}
	stamp, id, ok := strings.Cut(string(decoded), sep)
	if !ok || strings.TrimSpace(id) == "" {
		return nil, ErrInvalidCursor
	}
	ts, err := time.Parse(time.RFC3339Nano, stamp)
	if err != nil {
		return nil, errors.Join(ErrInvalidCursor, err)
	}
	return &Cursor{Timestamp: ts, ID: strings.TrimSpace(id)}, nil
}
