// Package schedule asks a generative model for a forward schedule, checks
// the answer against the hard staffing rules and merges it into Firestore
// without touching protected or historical shifts.
package schedule

import (
	"github.com/angelmondragon/socshift-backend/pkg/db/models"
	"github.com/angelmondragon/socshift-backend/pkg/enums"
)

// Validation modes for model output that breaks a hard rule.
const (
	ModeRetry  = "retry"
	ModeReject = "reject"
	ModeWarn   = "warn"
)

// Default and maximum generation lengths in days.
const (
	DefaultDays = 7
	MaxDays     = 31
)

// Skip reasons recorded by PlanMerge.
const (
	SkipPast          = "past_or_today"
	SkipOutsideWindow = "outside_window"
	SkipProtected     = "protected"
	SkipInvalid       = "invalid"
	SkipUnknownUser   = "unknown_user"
	SkipDuplicate     = "duplicate"
)

// Proposal is one shift as returned by the model.
type Proposal struct {
	Date       string          `json:"date"`
	Type       enums.ShiftType `json:"type"`
	UserID     string          `json:"userId"`
	LunchStart string          `json:"lunchStart"`
	LunchEnd   string          `json:"lunchEnd"`
	BreakStart string          `json:"breakStart"`
	BreakEnd   string          `json:"breakEnd"`
}

// SlotKey identifies the (date, type) slot the proposal targets.
func (p Proposal) SlotKey() string {
	return models.SlotKey(p.Date, p.Type)
}

// RosterEntry selects a user for generation. Only the id is used; names and
// preferences are re-read from the user documents.
type RosterEntry struct {
	ID string `json:"id" validate:"required"`
}

// Request is the body of POST /api/generate-schedule.
type Request struct {
	Users       []RosterEntry              `json:"users" validate:"omitempty,dive"`
	StartDate   string                     `json:"startDate" validate:"omitempty,ymd"`
	Days        int                        `json:"days" validate:"omitempty,min=1,max=31"`
	ShiftConfig *models.ShiftConfiguration `json:"shiftConfig"`
}

// Window is the inclusive date range a generation may rewrite.
type Window struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Contains reports whether day falls within the window.
func (w Window) Contains(day string) bool {
	return day >= w.From && day <= w.To
}

// Skip is a proposal left out of the merge.
type Skip struct {
	Proposal Proposal `json:"proposal"`
	Reason   string   `json:"reason"`
}

// ShiftSummary describes an inserted shift.
type ShiftSummary struct {
	ID     string          `json:"id"`
	Date   string          `json:"date"`
	Type   enums.ShiftType `json:"type"`
	UserID string          `json:"userId"`
}

// Result is returned by Generate.
type Result struct {
	Window     Window         `json:"window"`
	Inserted   []ShiftSummary `json:"inserted"`
	Deleted    int            `json:"deleted"`
	Skipped    []Skip         `json:"skipped"`
	Violations []Violation    `json:"violations"`
	Attempts   int            `json:"attempts"`
}
