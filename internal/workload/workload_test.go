package workload

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/socshift-backend/pkg/auth"
	"github.com/angelmondragon/socshift-backend/pkg/db/models"
	"github.com/angelmondragon/socshift-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/socshift-backend/pkg/errors"
)

func closed(id, shiftID, uid string, hours float64) models.ClockEntry {
	in := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)
	out := in.Add(time.Duration(hours * float64(time.Hour)))
	return models.ClockEntry{ID: id, ShiftID: shiftID, UserID: uid, ClockIn: in, ClockOut: &out, ActualHours: hours}
}

func TestComputeCountsHoursAndReliability(t *testing.T) {
	stats := Compute(Input{
		Users: []models.User{{ID: "u1", Name: "Ana"}, {ID: "u2", Name: "ben"}, {ID: "u3", Name: "Cy"}},
		Shifts: []models.Shift{
			{ID: "s1", Date: "2026-03-02", Type: enums.ShiftTypeMorning, UserID: "u1"},
			{ID: "s2", Date: "2026-03-03", Type: enums.ShiftTypeNight, UserID: "u1"},
			{ID: "s3", Date: "2026-03-05", Type: enums.ShiftTypeEvening, UserID: "u1"},
			{ID: "s4", Date: "2026-03-02", Type: enums.ShiftTypeEvening, UserID: "u2"},
			{ID: "s5", Date: "2026-03-02", Type: enums.ShiftTypeNight},
		},
		Entries: []models.ClockEntry{
			closed("c1", "s1", "u1", 8.13),
			closed("c2", "s2", "u1", 7.5),
			{ID: "c3", ShiftID: "s4", UserID: "u2", ClockIn: time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)},
		},
		Config: models.DefaultShiftConfiguration(),
		Today:  "2026-03-04",
	})

	require.Len(t, stats, 3)
	assert.Equal(t, []string{"Ana", "ben", "Cy"}, []string{stats[0].Name, stats[1].Name, stats[2].Name})

	ana := stats[0]
	assert.Equal(t, 3, ana.Shifts)
	assert.Equal(t, 24, ana.ScheduledHours)
	assert.Equal(t, "15.63", ana.ClockedHours.String())
	assert.Equal(t, 2, ana.PastShifts)
	assert.Equal(t, 2, ana.Attended)
	require.NotNil(t, ana.Reliability)
	assert.Equal(t, 100.0, *ana.Reliability)

	ben := stats[1]
	assert.Equal(t, "0", ben.ClockedHours.String())
	require.NotNil(t, ben.Reliability)
	assert.Equal(t, 0.0, *ben.Reliability)

	assert.Nil(t, stats[2].Reliability)
	assert.Zero(t, stats[2].Shifts)
}

func TestComputeFlagsOverCapWeeks(t *testing.T) {
	var rows []models.Shift
	for _, d := range []string{"2026-03-02", "2026-03-03", "2026-03-04", "2026-03-05", "2026-03-06", "2026-03-07"} {
		rows = append(rows, models.Shift{ID: d, Date: d, Type: enums.ShiftTypeMorning, UserID: "u1"})
	}
	rows = append(rows, models.Shift{ID: "next", Date: "2026-03-09", Type: enums.ShiftTypeMorning, UserID: "u1"})

	stats := Compute(Input{Shifts: rows, Config: models.DefaultShiftConfiguration(), Today: "2026-03-01"})
	require.Len(t, stats, 1)
	assert.True(t, stats[0].OverCap)
	assert.Equal(t, []string{"2026-03-02"}, stats[0].OverCapWeeks)
	assert.Equal(t, "u1", stats[0].Name)

	stats = Compute(Input{Shifts: rows[:5], Config: models.DefaultShiftConfiguration(), Today: "2026-03-01"})
	assert.False(t, stats[0].OverCap)
}

func TestComputeRoundsReliability(t *testing.T) {
	stats := Compute(Input{
		Shifts: []models.Shift{
			{ID: "a", Date: "2026-03-02", Type: enums.ShiftTypeMorning, UserID: "u1"},
			{ID: "b", Date: "2026-03-03", Type: enums.ShiftTypeMorning, UserID: "u1"},
			{ID: "c", Date: "2026-03-04", Type: enums.ShiftTypeMorning, UserID: "u1"},
		},
		Entries: []models.ClockEntry{closed("c1", "a", "u1", 8)},
		Config:  models.DefaultShiftConfiguration(),
		Today:   "2026-03-09",
	})
	require.NotNil(t, stats[0].Reliability)
	assert.Equal(t, 33.3, *stats[0].Reliability)
}

type stubShifts []models.Shift

func (s stubShifts) ListRange(ctx context.Context, from, to string) ([]models.Shift, error) {
	var out []models.Shift
	for _, sh := range s {
		if sh.Date >= from && sh.Date <= to {
			out = append(out, sh)
		}
	}
	return out, nil
}

type stubUsers []models.User

func (s stubUsers) List(ctx context.Context) ([]models.User, error) { return s, nil }

type stubEntries struct {
	rows     []models.ClockEntry
	from, to time.Time
}

func (s *stubEntries) ListBetween(ctx context.Context, from, to time.Time) ([]models.ClockEntry, error) {
	s.from, s.to = from, to
	return s.rows, nil
}

type staticConfig struct{}

func (staticConfig) Get(ctx context.Context) (models.ShiftConfiguration, error) {
	return models.DefaultShiftConfiguration(), nil
}

func newTestService(t *testing.T, entries *stubEntries) *service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Shifts: stubShifts{
			{ID: "s1", Date: "2026-03-02", Type: enums.ShiftTypeMorning, UserID: "u1"},
			{ID: "s2", Date: "2026-03-03", Type: enums.ShiftTypeMorning, UserID: "u2"},
			{ID: "old", Date: "2026-01-05", Type: enums.ShiftTypeMorning, UserID: "u1"},
		},
		Users:   stubUsers{{ID: "u1", Name: "Ana"}, {ID: "u2", Name: "Ben"}},
		Entries: entries,
		Config:  staticConfig{},
	})
	require.NoError(t, err)
	impl := svc.(*service)
	impl.now = func() time.Time { return time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC) }
	return impl
}

func TestStatsDefaultWindowAndSelfScope(t *testing.T) {
	entries := &stubEntries{rows: []models.ClockEntry{closed("c1", "s1", "u1", 8), closed("c2", "s2", "u2", 8)}}
	svc := newTestService(t, entries)

	report, err := svc.Stats(context.Background(), auth.Actor{UserID: "u1"}, Params{})
	require.NoError(t, err)
	assert.Equal(t, "2026-02-09", report.From)
	assert.Equal(t, "2026-03-08", report.To)
	assert.Equal(t, time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC), entries.from)
	assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), entries.to)

	require.Len(t, report.Users, 1)
	assert.Equal(t, "u1", report.Users[0].UserID)
	assert.Equal(t, 1, report.Users[0].Shifts)
	assert.Equal(t, "8", report.Users[0].ClockedHours.String())
}

func TestStatsPermissionsAndValidation(t *testing.T) {
	svc := newTestService(t, &stubEntries{})

	_, err := svc.Stats(context.Background(), auth.Actor{UserID: "u1"}, Params{UserID: "u2"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeForbidden))

	report, err := svc.Stats(context.Background(), auth.Actor{UserID: "admin", IsAdmin: true}, Params{From: "2026-01-01", To: "2026-03-08"})
	require.NoError(t, err)
	assert.Len(t, report.Users, 2)
	assert.Equal(t, 2, report.Users[0].Shifts)

	_, err = svc.Stats(context.Background(), auth.Actor{UserID: "admin", IsAdmin: true}, Params{From: "2025-01-01", To: "2026-03-08"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	_, err = svc.Stats(context.Background(), auth.Actor{UserID: "admin", IsAdmin: true}, Params{To: "tomorrow"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}
