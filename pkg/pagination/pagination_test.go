package pagination

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestLimits(t *testing.T) {
	cases := map[int]int{0: DefaultLimit, -3: DefaultLimit, 1: 1, 40: 40, 500: MaxLimit}
	for in, want := range cases {
		if got := NormalizeLimit(in); got != want {
			t.Fatalf("NormalizeLimit(%d) = %d, want %d", in, got, want)
		}
	}
	if got := LimitWithBuffer(10); got != 11 {
		t.Fatalf("expected buffered limit 11, got %d", got)
	}
}

type row struct {
	id string
	at time.Time
}

func TestSplit(t *testing.T) {
	base := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	rows := []row{{"a", base}, {"b", base.Add(-time.Minute)}, {"c", base.Add(-2 * time.Minute)}}
	key := func(r row) Cursor { return Cursor{Timestamp: r.at, ID: r.id} }

	page, next := Split(rows, 2, key)
	if len(page) != 2 || next == nil || next.ID != "b" || !next.Timestamp.Equal(rows[1].at) {
		t.Fatalf("unexpected page %v next %+v", page, next)
	}

	page, next = Split(rows[:2], 2, key)
	if len(page) != 2 || next != nil {
		t.Fatalf("last page should carry no cursor, got %+v", next)
	}
}

func TestCursorRoundTripIsURLSafe(t *testing.T) {
	ts := time.Date(2026, 1, 13, 8, 30, 0, 123, time.UTC)
	encoded := EncodeCursor(Cursor{Timestamp: ts, ID: "log?42/>>"})
	if strings.ContainsAny(encoded, "+/=") {
		t.Fatalf("cursor %q is not URL safe", encoded)
	}

	cursor, err := ParseCursor(encoded)
	if err != nil {
		t.Fatalf("parse cursor: %v", err)
	}
	if !cursor.Timestamp.Equal(ts) || cursor.ID != "log?42/>>" {
		t.Fatalf("unexpected cursor %+v", cursor)
	}
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	if c, err := ParseCursor("  "); err != nil || c != nil {
		t.Fatalf("empty cursor should be nil, got %+v %v", c, err)
	}
	for _, raw := range []string{"not-base64!", "bm8tc2VwYXJhdG9y", EncodeCursor(Cursor{ID: " "})} {
		if _, err := ParseCursor(raw); !errors.Is(err, ErrInvalidCursor) {
			t.Fatalf("%q: expected ErrInvalidCursor, got %v", raw, err)
		}
	}
}
