package schedule

import (
	"fmt"
	"sort"

	"go.uber.org/multierr"

	"github.com/angelmondragon/socshift-backend/pkg/dates"
	"github.com/angelmondragon/socshift-backend/pkg/db/models"
	"github.com/angelmondragon/socshift-backend/pkg/enums"
)

// Validator rules.
const (
	RuleInvalid          = "invalid_shift"
	RuleOutsideWindow    = "outside_window"
	RuleUnknownUser      = "unknown_user"
	RuleSlotUncovered    = "slot_uncovered"
	RuleSlotOverfilled   = "slot_overfilled"
	RuleWeeklyCap        = "weekly_cap"
	RuleSameDayDouble    = "same_day_double"
	RuleNightThenMorning = "night_then_morning"
	RuleUnavailable      = "unavailable"
)

// Violation is one broken hard rule.
type Violation struct {
	Rule    string          `json:"rule"`
	Date    string          `json:"date,omitempty"`
	Type    enums.ShiftType `json:"type,omitempty"`
	UserID  string          `json:"userId,omitempty"`
	Message string          `json:"message"`
}

func (v Violation) Error() string {
	return v.Rule + ": " + v.Message
}

// ValidationInput is the context the rules are checked against. Protected
// holds the manuallyCreated shifts in the window, which stay in place.
type ValidationInput struct {
	Window    Window
	Roster    []models.User
	Protected []models.Shift
	// Blocked maps user id to dates covered by an availability block.
	Blocked map[string][]string
}

// Validate checks proposals plus protected shifts against the hard rules.
// Proposals that will be skipped because a protected shift holds their slot
// are not counted.
func Validate(proposals []Proposal, in ValidationInput) []Violation {
	users := make(map[string]models.User, len(in.Roster))
	for _, u := range in.Roster {
		users[u.ID] = u
	}
	blocked := map[string]bool{}
	for uid, days := range in.Blocked {
		for _, d := range days {
			blocked[uid+"|"+d] = true
		}
	}
	protectedSlots := map[string]bool{}
	for _, s := range in.Protected {
		protectedSlots[s.SlotKey()] = true
	}

	violations := []Violation{}
	add := func(v Violation) { violations = append(violations, v) }

	type assignment struct {
		date   string
		typ    enums.ShiftType
		userID string
	}
	var effective []assignment
	for _, s := range in.Protected {
		if in.Window.Contains(s.Date) {
			effective = append(effective, assignment{s.Date, s.Type, s.UserID})
		}
	}

	for _, p := range proposals {
		switch {
		case !dates.Valid(p.Date) || !p.Type.IsValid():
			add(Violation{Rule: RuleInvalid, Date: p.Date, Type: p.Type, UserID: p.UserID, Message: fmt.Sprintf("unknown date or shift type %q on %q", p.Type, p.Date)})
			continue
		case !in.Window.Contains(p.Date):
			add(Violation{Rule: RuleOutsideWindow, Date: p.Date, Type: p.Type, UserID: p.UserID, Message: fmt.Sprintf("date is outside %s..%s", in.Window.From, in.Window.To)})
			continue
		}
		user, ok := users[p.UserID]
		if !ok {
			add(Violation{Rule: RuleUnknownUser, Date: p.Date, Type: p.Type, UserID: p.UserID, Message: fmt.Sprintf("user %q is not on the roster", p.UserID)})
			continue
		}
		if protectedSlots[p.SlotKey()] {
			continue
		}
		if user.UnavailableOn(p.Date) || blocked[p.UserID+"|"+p.Date] {
			add(Violation{Rule: RuleUnavailable, Date: p.Date, Type: p.Type, UserID: p.UserID, Message: fmt.Sprintf("%s is unavailable on %s", user.Name, p.Date)})
		}
		effective = append(effective, assignment{p.Date, p.Type, p.UserID})
	}

	perSlot := map[string][]string{}
	perUserDay := map[string][]enums.ShiftType{}
	for _, a := range effective {
		key := models.SlotKey(a.date, a.typ)
		perSlot[key] = append(perSlot[key], a.userID)
		perUserDay[a.userID+"|"+a.date] = append(perUserDay[a.userID+"|"+a.date], a.typ)
	}

	days := in.Window.Days()
	for _, day := range days {
		for _, t := range enums.ShiftTypes {
			holders := perSlot[models.SlotKey(day, t)]
			switch {
			case len(holders) == 0:
				add(Violation{Rule: RuleSlotUncovered, Date: day, Type: t, Message: fmt.Sprintf("%s %s has no assignee", day, t)})
			case len(holders) > 1:
				add(Violation{Rule: RuleSlotOverfilled, Date: day, Type: t, Message: fmt.Sprintf("%s %s has %d assignees", day, t, len(holders))})
			}
		}
	}

	userIDs := make([]string, 0, len(users))
	for id := range users {
		userIDs = append(userIDs, id)
	}
	sort.Strings(userIDs)
	for _, uid := range userIDs {
		name := users[uid].Name
		// every rolling week inside the window; the first breach is enough
		for i := 0; i < len(days); i++ {
			block := days[i:min(i+models.RollingWeekDays, len(days))]
			count := 0
			for _, day := range block {
				count += len(perUserDay[uid+"|"+day])
			}
			if count > models.WeeklyShiftCap {
				add(Violation{Rule: RuleWeeklyCap, Date: block[0], UserID: uid, Message: fmt.Sprintf("%s has %d shifts in %s..%s (max %d)", name, count, block[0], block[len(block)-1], models.WeeklyShiftCap)})
				break
			}
			if i+models.RollingWeekDays >= len(days) {
				break
			}
		}
		for _, day := range days {
			held := perUserDay[uid+"|"+day]
			if len(held) > 1 {
				add(Violation{Rule: RuleSameDayDouble, Date: day, UserID: uid, Message: fmt.Sprintf("%s has %d shifts on %s", name, len(held), day)})
			}
			if hasType(held, enums.ShiftTypeNight) && hasType(perUserDay[uid+"|"+dates.MustAddDays(day, 1)], enums.ShiftTypeMorning) {
				add(Violation{Rule: RuleNightThenMorning, Date: day, UserID: uid, Message: fmt.Sprintf("%s works Night on %s and Morning the next day", name, day)})
			}
		}
	}
	return violations
}

// ViolationsErr folds violations into one error, nil when there are none.
func ViolationsErr(violations []Violation) error {
	var err error
	for _, v := range violations {
		err = multierr.Append(err, v)
	}
	return err
}

// ViolationSummary renders violations for a follow-up prompt.
func ViolationSummary(violations []Violation) []string {
	out := make([]string, 0, len(violations))
	for _, err := range multierr.Errors(ViolationsErr(violations)) {
		out = append(out, err.Error())
	}
	return out
}

func hasType(types []enums.ShiftType, t enums.ShiftType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}
