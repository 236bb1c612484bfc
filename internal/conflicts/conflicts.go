// Package conflicts checks a candidate shift against a user's schedule and
// preferences.
package conflicts

import (
	"github.com/angelmondragon/socshift-backend/pkg/dates"
	"github.com/angelmondragon/socshift-backend/pkg/db/models"
	"github.com/angelmondragon/socshift-backend/pkg/enums"
)

// Conflict codes, in evaluation order.
const (
	CodeUnavailable        = "unavailable"
	CodeShiftNotPreferred  = "shift_not_preferred"
	CodeDayNotPreferred    = "day_not_preferred"
	CodeBackToBackBoth     = "back_to_back_both"
	CodeBackToBackPrevious = "back_to_back_previous"
	CodeBackToBackNext     = "back_to_back_next"
	CodeWeeklyLimit        = "weekly_limit"
	CodeDuplicate          = "duplicate"
)

// Summary message ids.
const (
	MessageNone        = "conflict.none"
	MessageHighWarning = "conflict.high_warning"
)

// Candidate is the shift the user is considering.
type Candidate struct {
	Date string
	Type enums.ShiftType
}

// Input is everything Detect looks at. Shifts are the user's own shifts;
// Blocked lists dates covered by an availability block with available=false.
type Input struct {
	Candidate Candidate
	User      models.User
	Shifts    []models.Shift
	Blocked   []string
}

// Conflict is one finding with its template parameters.
type Conflict struct {
	Code   string
	Params map[string]any
}

// MessageID is the i18n catalog id of the conflict.
func (c Conflict) MessageID() string {
	return "conflict." + c.Code
}

// Result is the outcome of Detect.
type Result struct {
	Conflicts []Conflict
	Severity  enums.ConflictSeverity
	// Summary is MessageNone, MessageHighWarning or empty.
	Summary string
}

// Detect evaluates every check independently and in a fixed order.
func Detect(in Input) Result {
	c := in.Candidate
	uid := in.User.ID
	var found []Conflict

	if in.User.UnavailableOn(c.Date) || contains(in.Blocked, c.Date) {
		found = append(found, Conflict{Code: CodeUnavailable, Params: map[string]any{"Date": c.Date}})
	}
	if len(in.User.Preferences.PreferredShifts) > 0 && !in.User.PrefersShift(c.Type) {
		found = append(found, Conflict{Code: CodeShiftNotPreferred, Params: map[string]any{"ShiftType": string(c.Type)}})
	}
	if weekday, err := dates.Weekday(c.Date); err == nil && len(in.User.Preferences.PreferredDays) > 0 && !in.User.PrefersDay(weekday.String()) {
		found = append(found, Conflict{Code: CodeDayNotPreferred, Params: map[string]any{"Weekday": weekday.String()}})
	}

	if prev, next, err := neighbours(c.Date); err == nil {
		hasPrev := worksOn(in.Shifts, uid, prev)
		hasNext := worksOn(in.Shifts, uid, next)
		switch {
		case hasPrev && hasNext:
			found = append(found, Conflict{Code: CodeBackToBackBoth, Params: map[string]any{"Previous": prev, "Next": next}})
		case hasPrev:
			found = append(found, Conflict{Code: CodeBackToBackPrevious, Params: map[string]any{"Date": prev}})
		case hasNext:
			found = append(found, Conflict{Code: CodeBackToBackNext, Params: map[string]any{"Date": next}})
		}
	}

	if n := models.MaxInRollingWeek(in.Shifts, uid, c.Date, models.SlotKey(c.Date, c.Type)); n >= models.WeeklyShiftCap {
		found = append(found, Conflict{Code: CodeWeeklyLimit, Params: map[string]any{"Count": n, "Limit": models.WeeklyShiftCap}})
	}

	for _, s := range in.Shifts {
		if s.UserID == uid && s.Date == c.Date && s.Type == c.Type {
			found = append(found, Conflict{Code: CodeDuplicate, Params: map[string]any{"Date": c.Date, "ShiftType": string(c.Type)}})
			break
		}
	}

	result := Result{Conflicts: found, Severity: enums.SeverityForCount(len(found))}
	switch result.Severity {
	case enums.SeverityNone:
		result.Conflicts = []Conflict{}
		result.Summary = MessageNone
	case enums.SeverityHigh:
		result.Summary = MessageHighWarning
	}
	return result
}

func neighbours(day string) (string, string, error) {
	prev, err := dates.AddDays(day, -1)
	if err != nil {
		return "", "", err
	}
	return prev, dates.MustAddDays(day, 1), nil
}

func worksOn(shifts []models.Shift, userID, day string) bool {
	for _, s := range shifts {
		if s.UserID == userID && s.Date == day {
			return true
		}
	}
	return false
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
