// Package workload summarises per-user shift load and attendance.
package workload

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/socshift-backend/pkg/dates"
	"github.com/angelmondragon/socshift-backend/pkg/db/models"
)

// Input is what Compute needs. Today separates past shifts from upcoming ones.
type Input struct {
	Users   []models.User
	Shifts  []models.Shift
	Entries []models.ClockEntry
	Config  models.ShiftConfiguration
	Today   string
}

// Stats is one user's workload over the window.
type Stats struct {
	UserID         string          `json:"userId"`
	Name           string          `json:"name"`
	Shifts         int             `json:"shifts"`
	ScheduledHours int             `json:"scheduledHours"`
	ClockedHours   decimal.Decimal `json:"clockedHours"`
	PastShifts     int             `json:"pastShifts"`
	Attended       int             `json:"attended"`
	// Reliability is nil until the user has a past shift in the window.
	Reliability  *float64 `json:"reliability"`
	OverCap      bool     `json:"overCap"`
	OverCapWeeks []string `json:"overCapWeeks,omitempty"`
}

// Compute builds one Stats per user that is either listed in Users or holds
// a shift. Rows are ordered by name, then id.
func Compute(in Input) []Stats {
	byUser := map[string]*Stats{}
	get := func(uid string) *Stats {
		if st, ok := byUser[uid]; ok {
			return st
		}
		st := &Stats{UserID: uid, Name: uid, ClockedHours: decimal.Zero}
		byUser[uid] = st
		return st
	}
	for _, u := range in.Users {
		st := get(u.ID)
		if u.Name != "" {
			st.Name = u.Name
		}
	}

	attended := map[string]bool{}
	for _, e := range in.Entries {
		if e.Open() {
			continue
		}
		attended[e.ShiftID] = true
		st := get(e.UserID)
		st.ClockedHours = st.ClockedHours.Add(decimal.NewFromFloat(e.ActualHours))
	}

	weeks := map[string]map[string]int{}
	for _, s := range in.Shifts {
		if s.UserID == "" {
			continue
		}
		st := get(s.UserID)
		st.Shifts++
		st.ScheduledHours += in.Config.Window(s.Type).WorkHours
		if s.Date < in.Today {
			st.PastShifts++
			if attended[s.ID] {
				st.Attended++
			}
		}
		if week, err := dates.WeekStart(s.Date); err == nil {
			if weeks[s.UserID] == nil {
				weeks[s.UserID] = map[string]int{}
			}
			weeks[s.UserID][week]++
		}
	}

	out := make([]Stats, 0, len(byUser))
	for uid, st := range byUser {
		for week, n := range weeks[uid] {
			if n > models.WeeklyShiftCap {
				st.OverCapWeeks = append(st.OverCapWeeks, week)
			}
		}
		slices.Sort(st.OverCapWeeks)
		st.OverCap = len(st.OverCapWeeks) > 0
		st.ClockedHours = st.ClockedHours.Round(2)
		if st.PastShifts > 0 {
			pct := decimal.NewFromInt(int64(st.Attended)).
				Mul(decimal.NewFromInt(100)).
				Div(decimal.NewFromInt(int64(st.PastShifts))).
				Round(1).
				InexactFloat64()
			st.Reliability = &pct
		}
		out = append(out, *st)
	}
	slices.SortFunc(out, func(a, b Stats) int {
		if c := strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
			return c
		}
		return strings.Compare(a.UserID, b.UserID)
	})
	return out
}
