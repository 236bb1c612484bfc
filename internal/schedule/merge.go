package schedule

import (
	"time"

	"github.com/angelmondragon/socshift-backend/internal/shifts"
	"github.com/angelmondragon/socshift-backend/pkg/dates"
	"github.com/angelmondragon/socshift-backend/pkg/db/models"
)

// Plan is the set of writes one generation commits atomically.
type Plan struct {
	Deletes []models.Shift
	Inserts []models.Shift
	Skipped []Skip
}

// Writes counts the document writes committing the plan takes.
func (p Plan) Writes() int {
	return len(p.Deletes) + len(p.Inserts)
}

// MergeInput carries the context PlanMerge needs besides the shifts.
type MergeInput struct {
	Window Window
	Today  string
	// Known restricts inserts to these user ids when non-nil.
	Known  map[string]bool
	Config models.ShiftConfiguration
	Now    time.Time
}

// PlanMerge decides which existing shifts to delete and which proposals to
// insert. Shifts dated today or earlier, and shifts with manuallyCreated set,
// are never deleted; proposals landing on them are skipped.
func PlanMerge(existing []models.Shift, proposals []Proposal, in MergeInput) Plan {
	plan := Plan{Deletes: []models.Shift{}, Inserts: []models.Shift{}, Skipped: []Skip{}}

	protected := map[string]bool{}
	for _, s := range existing {
		if !in.Window.Contains(s.Date) || s.Date <= in.Today {
			continue
		}
		if s.ManuallyCreated {
			protected[s.SlotKey()] = true
			continue
		}
		plan.Deletes = append(plan.Deletes, s)
	}

	seen := map[string]bool{}
	for _, p := range proposals {
		reason := ""
		switch {
		case !dates.Valid(p.Date) || !p.Type.IsValid() || p.UserID == "":
			reason = SkipInvalid
		case p.Date <= in.Today:
			reason = SkipPast
		case !in.Window.Contains(p.Date):
			reason = SkipOutsideWindow
		case in.Known != nil && !in.Known[p.UserID]:
			reason = SkipUnknownUser
		case protected[p.SlotKey()]:
			reason = SkipProtected
		case seen[p.SlotKey()+"|"+p.UserID]:
			reason = SkipDuplicate
		}
		if reason != "" {
			plan.Skipped = append(plan.Skipped, Skip{Proposal: p, Reason: reason})
			continue
		}
		seen[p.SlotKey()+"|"+p.UserID] = true
		plan.Inserts = append(plan.Inserts, toShift(p, in.Config, in.Now))
	}
	return plan
}

func toShift(p Proposal, cfg models.ShiftConfiguration, now time.Time) models.Shift {
	shift := shifts.NewShift(p.Date, p.Type, p.UserID, cfg, now)
	if validClock(p.LunchStart) && validClock(p.LunchEnd) {
		shift.LunchStart, shift.LunchEnd = p.LunchStart, p.LunchEnd
	}
	if validClock(p.BreakStart) && validClock(p.BreakEnd) {
		shift.BreakStart, shift.BreakEnd = p.BreakStart, p.BreakEnd
	}
	shift.ManuallyCreated = false
	return shift
}

func validClock(value string) bool {
	if len(value) != 5 {
		return false
	}
	_, err := time.Parse("15:04", value)
	return err == nil
}
