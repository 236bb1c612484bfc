package recommendations

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/socshift-backend/pkg/auth"
	"github.com/angelmondragon/socshift-backend/pkg/dates"
	"github.com/angelmondragon/socshift-backend/pkg/db/models"
	"github.com/angelmondragon/socshift-backend/pkg/enums"
	"github.com/angelmondragon/socshift-backend/pkg/i18n"
)

// 2026-03-01 is a Sunday, so tomorrow is Monday 2026-03-02.
const today = "2026-03-01"

// fullTeam covers every slot in the horizon except the ones listed.
func fullTeam(except ...string) []models.Shift {
	skip := map[string]bool{}
	for _, k := range except {
		skip[k] = true
	}
	days, _ := dates.Range(dates.MustAddDays(today, 1), Horizon)
	var out []models.Shift
	for _, d := range days {
		for _, t := range enums.ShiftTypes {
			if skip[models.SlotKey(d, t)] {
				continue
			}
			out = append(out, models.Shift{Date: d, Type: t, UserID: "other"})
		}
	}
	return out
}

func TestRecommendScoresAndOrders(t *testing.T) {
	user := models.User{ID: "u1", Preferences: models.Preferences{
		PreferredShifts: []enums.ShiftType{enums.ShiftTypeNight},
		PreferredDays:   []string{"Tuesday"},
	}}
	shifts := fullTeam(
		models.SlotKey("2026-03-03", enums.ShiftTypeNight),
		models.SlotKey("2026-03-05", enums.ShiftTypeMorning),
	)

	recs := Recommend(Input{User: user, Shifts: shifts, Today: today})

	require.Len(t, recs, Limit)
	top := recs[0]
	assert.Equal(t, "2026-03-03", top.Date)
	assert.Equal(t, enums.ShiftTypeNight, top.Type)
	assert.Equal(t, 50+25+15+20, top.Score)
	assert.Equal(t, enums.UrgencyHigh, top.Urgency)

	for i := 1; i < len(recs); i++ {
		assert.GreaterOrEqual(t, recs[i-1].Score, recs[i].Score)
	}
	// Tuesday Night on 2026-03-10 is staffed but preferred twice: 90.
	assert.Equal(t, 90, recs[1].Score)
	assert.Equal(t, "2026-03-10", recs[1].Date)
}

func TestRecommendSkipsWorkingDaysAndPenalizesAdjacent(t *testing.T) {
	user := models.User{ID: "u1"}
	shifts := append(fullTeam(models.SlotKey("2026-03-03", enums.ShiftTypeMorning)),
		models.Shift{Date: "2026-03-02", Type: enums.ShiftTypeEvening, UserID: "u1"},
	)

	recs := Recommend(Input{User: user, Shifts: shifts, Today: today})

	for _, r := range recs {
		assert.NotEqual(t, "2026-03-02", r.Date, "days the user already works are skipped")
	}
	assert.Equal(t, "2026-03-03", recs[0].Date)
	assert.Equal(t, enums.ShiftTypeMorning, recs[0].Type)
	assert.Equal(t, 50+20-10, recs[0].Score)
	assert.Equal(t, enums.UrgencyMedium, recs[0].Urgency)
	assert.Equal(t, ReasonAdjacent, recs[0].Reasons[len(recs[0].Reasons)-1].MessageID)
}

func TestRecommendUnavailableReplacesReasonsAndFloorsAtZero(t *testing.T) {
	user := models.User{ID: "u1", Preferences: models.Preferences{UnavailableDates: []string{"2026-03-03"}}}
	shifts := []models.Shift{
		{Date: "2026-03-02", Type: enums.ShiftTypeMorning, UserID: "u1"},
		{Date: "2026-03-04", Type: enums.ShiftTypeMorning, UserID: "u1"},
	}

	recs := Recommend(Input{User: user, Shifts: append(fullTeam(), shifts...), Today: today})
	for _, r := range recs {
		assert.GreaterOrEqual(t, r.Score, 0)
	}

	rec := score(user, "2026-03-03", "Tuesday", enums.ShiftTypeMorning, 3, true, true)
	assert.Equal(t, 0, rec.Score)
	assert.Equal(t, enums.UrgencyLow, rec.Urgency)
	require.Len(t, rec.Reasons, 1)
	assert.Equal(t, ReasonUnavailable, rec.Reasons[0].MessageID)
}

func TestRecommendTieBreaksByDateThenType(t *testing.T) {
	recs := Recommend(Input{User: models.User{ID: "u1"}, Today: today})
	require.Len(t, recs, Limit)
	assert.Equal(t, "2026-03-02", recs[0].Date)
	assert.Equal(t, enums.ShiftTypeMorning, recs[0].Type)
	assert.Equal(t, enums.ShiftTypeEvening, recs[1].Type)
	assert.Equal(t, enums.ShiftTypeNight, recs[2].Type)
	assert.Equal(t, "2026-03-03", recs[3].Date)
}

type stubUsers map[string]models.User

func (s stubUsers) Get(ctx context.Context, id string) (*models.User, error) {
	u := s[id]
	return &u, nil
}

type stubShifts []models.Shift

func (s stubShifts) ListRange(ctx context.Context, from, to string) ([]models.Shift, error) {
	return s, nil
}

type stubBlocks []models.UserAvailability

func (s stubBlocks) ListByUser(ctx context.Context, userID, from, to string) ([]models.UserAvailability, error) {
	return s, nil
}

func TestForUserLocalizesReasons(t *testing.T) {
	svc, err := NewService(
		stubUsers{"u1": {ID: "u1"}},
		stubShifts(fullTeam(models.SlotKey("2026-03-04", enums.ShiftTypeEvening))),
		stubBlocks{{UserID: "u1", Date: "2026-03-05", Available: false}},
		i18n.MustNew("en"),
		time.UTC,
	)
	require.NoError(t, err)
	svc.(*service).now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	items, err := svc.ForUser(context.Background(), auth.Actor{UserID: "u1"}, "")
	require.NoError(t, err)
	require.NotEmpty(t, items)
	assert.Equal(t, "2026-03-04", items[0].Date)
	assert.Equal(t, []string{"Open Evening shift on Wednesday", "Nobody is covering this shift yet"}, items[0].Reasons)

	for _, it := range items {
		if it.Date == "2026-03-05" {
			assert.Equal(t, []string{"You marked this date as unavailable"}, it.Reasons)
		}
	}
}
