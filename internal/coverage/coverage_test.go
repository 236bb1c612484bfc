package coverage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/socshift-backend/pkg/db/models"
	"github.com/angelmondragon/socshift-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/socshift-backend/pkg/errors"
)

func day(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02 15:04", value)
	require.NoError(t, err)
	return parsed
}

func TestAggregateSingleDay(t *testing.T) {
	shifts := []models.Shift{{ID: "s1", Date: "2026-01-13", Type: enums.ShiftTypeMorning, UserID: "u1"}}

	report := Aggregate(shifts, day(t, "2026-01-13 17:45"), 1)

	require.Len(t, report.Records, 3)
	assert.Equal(t, Record{Date: "2026-01-13", Type: enums.ShiftTypeMorning, Count: 1, Status: enums.CoverageOK, Assignees: []string{"u1"}}, report.Records[0])
	assert.Equal(t, enums.CoverageUnderstaffed, report.Records[1].Status)
	assert.Equal(t, enums.ShiftTypeEvening, report.Records[1].Type)
	assert.Equal(t, enums.CoverageUnderstaffed, report.Records[2].Status)
	assert.Equal(t, enums.ShiftTypeNight, report.Records[2].Type)
	assert.Equal(t, Summary{Understaffed: 2, OK: 1}, report.Summary)
}

func TestAggregateClassifiesByCount(t *testing.T) {
	shifts := []models.Shift{
		{Date: "2026-01-14", Type: enums.ShiftTypeNight, UserID: "u1"},
		{Date: "2026-01-14", Type: enums.ShiftTypeNight, UserID: "u2"},
		{Date: "2026-01-14", Type: enums.ShiftTypeNight, UserID: "u3"},
		{Date: "2026-01-14", Type: enums.ShiftTypeEvening, UserID: ""},
		{Date: "2026-01-20", Type: enums.ShiftTypeMorning, UserID: "u1"},
	}

	report := Aggregate(shifts, day(t, "2026-01-13 00:00"), 2)

	require.Len(t, report.Records, 6)
	assert.Equal(t, "2026-01-14", report.End)
	for _, rec := range report.Records {
		switch {
		case rec.Count == 0:
			assert.Equal(t, enums.CoverageUnderstaffed, rec.Status)
		case rec.Count == 1:
			assert.Equal(t, enums.CoverageOK, rec.Status)
		default:
			assert.Equal(t, enums.CoverageOverstaffed, rec.Status)
		}
	}
	night := report.Records[5]
	assert.Equal(t, 3, night.Count)
	assert.Equal(t, 0, report.Records[4].Count, "unassigned shifts do not count")
	assert.Len(t, report.Understaffed(), 5)
}

func TestAggregateEmptyWindow(t *testing.T) {
	report := Aggregate(nil, day(t, "2026-01-13 00:00"), 0)
	assert.Empty(t, report.Records)
}

type stubLister struct {
	from, to string
	rows     []models.Shift
}

func (s *stubLister) ListRange(ctx context.Context, from, to string) ([]models.Shift, error) {
	s.from, s.to = from, to
	return s.rows, nil
}

func TestSnapshotWindow(t *testing.T) {
	lister := &stubLister{}
	svc, err := NewService(lister, time.UTC)
	require.NoError(t, err)
	svc.(*service).now = func() time.Time { return time.Date(2026, 1, 13, 23, 0, 0, 0, time.UTC) }

	report, err := svc.Snapshot(context.Background(), 14)
	require.NoError(t, err)
	assert.Equal(t, "2026-01-13", lister.from)
	assert.Equal(t, "2026-01-26", lister.to)
	assert.Len(t, report.Records, 42)

	_, err = svc.Snapshot(context.Background(), 10)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}
