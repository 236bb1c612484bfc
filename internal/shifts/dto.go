package shifts

import (
	"github.com/angelmondragon/socshift-backend/pkg/db/models"
	"github.com/angelmondragon/socshift-backend/pkg/enums"
)

// Bulk operation names.
const (
	BulkAssign = "assign"
	BulkClear  = "clear"
)

// MaxBulkDays bounds the date range of one bulk operation.
const MaxBulkDays = 62

// ListParams filters shift listings. Empty fields are ignored.
type ListParams struct {
	From   string
	To     string
	UserID string
}

// BreakOverrides replaces the configured lunch and break windows when set.
type BreakOverrides struct {
	LunchStart string `json:"lunchStart,omitempty" validate:"omitempty,hhmm"`
	LunchEnd   string `json:"lunchEnd,omitempty" validate:"omitempty,hhmm"`
	BreakStart string `json:"breakStart,omitempty" validate:"omitempty,hhmm"`
	BreakEnd   string `json:"breakEnd,omitempty" validate:"omitempty,hhmm"`
}

// AssignInput assigns a user to a (date, type) slot.
type AssignInput struct {
	Date   string          `json:"date" validate:"required,ymd"`
	Type   enums.ShiftType `json:"type" validate:"required,shift_type"`
	UserID string          `json:"userId" validate:"required"`
	BreakOverrides
}

// AssignResult reports the slot write.
type AssignResult struct {
	Shift    models.Shift `json:"shift"`
	Created  bool         `json:"created"`
	Warnings []string     `json:"warnings,omitempty"`
}

// UpdateInput patches a shift. Nil fields are left untouched.
type UpdateInput struct {
	UserID     *string `json:"userId" validate:"omitempty,min=1"`
	LunchStart *string `json:"lunchStart" validate:"omitempty,hhmm"`
	LunchEnd   *string `json:"lunchEnd" validate:"omitempty,hhmm"`
	BreakStart *string `json:"breakStart" validate:"omitempty,hhmm"`
	BreakEnd   *string `json:"breakEnd" validate:"omitempty,hhmm"`
}

// BulkInput describes an assign or clear operation over a date range.
type BulkInput struct {
	Operation       string            `json:"operation" validate:"required,oneof=assign clear"`
	UserID          string            `json:"userId" validate:"required_if=Operation assign"`
	StartDate       string            `json:"startDate" validate:"required,ymd"`
	EndDate         string            `json:"endDate" validate:"required,ymd"`
	Types           []enums.ShiftType `json:"types" validate:"omitempty,dive,shift_type"`
	OnlyUnprotected bool              `json:"onlyUnprotected"`
}

// BulkResult counts what a bulk operation changed.
type BulkResult struct {
	Operation string   `json:"operation"`
	Created   int      `json:"created"`
	Updated   int      `json:"updated"`
	Deleted   int      `json:"deleted"`
	Unchanged int      `json:"unchanged"`
	Warnings  []string `json:"warnings,omitempty"`
}

// SeedResult reports the shifts created for a day.
type SeedResult struct {
	Date    string         `json:"date"`
	Created []models.Shift `json:"created"`
	Skipped []string       `json:"skipped"`
}
