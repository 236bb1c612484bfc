// Package recommendations ranks open shift slots for a user.
package recommendations

import (
	"sort"

	"github.com/angelmondragon/socshift-backend/pkg/dates"
	"github.com/angelmondragon/socshift-backend/pkg/db/models"
	"github.com/angelmondragon/socshift-backend/pkg/enums"
)

// Scoring weights.
const (
	BaseScore           = 50
	PreferredShiftBonus = 25
	PreferredDayBonus   = 15
	NeedsCoverageBonus  = 20
	UnavailablePenalty  = 40
	AdjacentPenalty     = 10

	// Horizon is how many days after today are considered.
	Horizon = 14
	// Limit is how many recommendations are returned.
	Limit = 5
)

// Message ids used for reasons.
const (
	ReasonOpenSlot       = "recommendation.open_slot"
	ReasonPreferredShift = "recommendation.preferred_shift"
	ReasonPreferredDay   = "recommendation.preferred_day"
	ReasonNeedsCoverage  = "recommendation.needs_coverage"
	ReasonAdjacent       = "recommendation.adjacent"
	ReasonUnavailable    = "recommendation.unavailable"
)

// Reason explains part of a score.
type Reason struct {
	MessageID string
	Params    map[string]any
}

// Recommendation is one scored slot.
type Recommendation struct {
	Date      string
	Type      enums.ShiftType
	Weekday   string
	Score     int
	Urgency   enums.Urgency
	Assignees int
	Reasons   []Reason
}

// Input is everything Recommend looks at. Shifts is the whole team's
// schedule over the horizon plus one day on each side; Blocked lists dates
// with an availability block.
type Input struct {
	User    models.User
	Shifts  []models.Shift
	Blocked []string
	Today   string
}

// Recommend scores every slot from tomorrow through Today+Horizon on a day
// the user is not already working, and returns the best Limit.
func Recommend(in Input) []Recommendation {
	days, err := dates.Range(dates.MustAddDays(in.Today, 1), Horizon)
	if err != nil {
		return []Recommendation{}
	}

	uid := in.User.ID
	assigned := map[string]int{}
	working := map[string]bool{}
	for _, s := range in.Shifts {
		if s.UserID == "" {
			continue
		}
		assigned[s.SlotKey()]++
		if s.UserID == uid {
			working[s.Date] = true
		}
	}
	blocked := map[string]bool{}
	for _, d := range in.Blocked {
		blocked[d] = true
	}

	var out []Recommendation
	for _, day := range days {
		if working[day] {
			continue
		}
		weekday, _ := dates.Weekday(day)
		adjacent := working[dates.MustAddDays(day, -1)] || working[dates.MustAddDays(day, 1)]
		unavailable := blocked[day] || in.User.UnavailableOn(day)
		for _, t := range enums.ShiftTypes {
			count := assigned[models.SlotKey(day, t)]
			out = append(out, score(in.User, day, weekday.String(), t, count, adjacent, unavailable))
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		return a.Type.Order() < b.Type.Order()
	})
	if len(out) > Limit {
		out = out[:Limit]
	}
	if out == nil {
		out = []Recommendation{}
	}
	return out
}

func score(user models.User, day, weekday string, t enums.ShiftType, count int, adjacent, unavailable bool) Recommendation {
	rec := Recommendation{Date: day, Type: t, Weekday: weekday, Score: BaseScore, Assignees: count}
	rec.Reasons = []Reason{{MessageID: ReasonOpenSlot, Params: map[string]any{"ShiftType": string(t), "Weekday": weekday}}}

	if user.PrefersShift(t) {
		rec.Score += PreferredShiftBonus
		rec.Reasons = append(rec.Reasons, Reason{MessageID: ReasonPreferredShift})
	}
	if user.PrefersDay(weekday) {
		rec.Score += PreferredDayBonus
		rec.Reasons = append(rec.Reasons, Reason{MessageID: ReasonPreferredDay})
	}
	if count == 0 {
		rec.Score += NeedsCoverageBonus
		rec.Reasons = append(rec.Reasons, Reason{MessageID: ReasonNeedsCoverage})
	}
	if unavailable {
		rec.Score -= UnavailablePenalty
		rec.Reasons = []Reason{{MessageID: ReasonUnavailable}}
	}
	if adjacent {
		rec.Score -= AdjacentPenalty
		if !unavailable {
			rec.Reasons = append(rec.Reasons, Reason{MessageID: ReasonAdjacent})
		}
	}
	rec.Score = max(rec.Score, 0)
	rec.Urgency = enums.UrgencyForScore(rec.Score)
	return rec
}
