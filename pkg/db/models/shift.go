package models

import (
	"time"

	"github.com/angelmondragon/socshift-backend/pkg/dates"
	"github.com/angelmondragon/socshift-backend/pkg/enums"
)

// WeeklyShiftCap is the most shifts one user should hold in any
// RollingWeekDays consecutive days.
const (
	WeeklyShiftCap  = 5
	RollingWeekDays = 7
)

// Shift is one assignment of a user to a (date, type) slot.
type Shift struct {
	ID              string          `firestore:"-" json:"id"`
	Date            string          `firestore:"date" json:"date" validate:"required,ymd"`
	Type            enums.ShiftType `firestore:"type" json:"type" validate:"required,shift_type"`
	UserID          string          `firestore:"userId" json:"userId"`
	LunchStart      string          `firestore:"lunchStart" json:"lunchStart" validate:"omitempty,hhmm"`
	LunchEnd        string          `firestore:"lunchEnd" json:"lunchEnd" validate:"omitempty,hhmm"`
	BreakStart      string          `firestore:"breakStart" json:"breakStart" validate:"omitempty,hhmm"`
	BreakEnd        string          `firestore:"breakEnd" json:"breakEnd" validate:"omitempty,hhmm"`
	ManuallyCreated bool            `firestore:"manuallyCreated" json:"manuallyCreated"`
	CreatedAt       time.Time       `firestore:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time       `firestore:"updatedAt" json:"updatedAt"`
}

func (s *Shift) SetID(id string) { s.ID = id }

// SlotKey identifies the (date, type) slot a shift occupies.
func (s Shift) SlotKey() string {
	return SlotKey(s.Date, s.Type)
}

// SlotKey builds the map key used to index shifts by slot.
func SlotKey(date string, t enums.ShiftType) string {
	return date + "|" + string(t)
}

// MaxInRollingWeek returns the most shifts userID holds in any seven
// consecutive days that include date. Shifts whose slot key equals skip are
// ignored.
func MaxInRollingWeek(shifts []Shift, userID, date, skip string) int {
	if !dates.Valid(date) {
		return 0
	}
	perDay := map[string]int{}
	for _, s := range shifts {
		if s.UserID != userID || (skip != "" && s.SlotKey() == skip) {
			continue
		}
		perDay[s.Date]++
	}
	peak := 0
	for offset := 1 - RollingWeekDays; offset <= 0; offset++ {
		start := dates.MustAddDays(date, offset)
		count := 0
		for i := 0; i < RollingWeekDays; i++ {
			count += perDay[dates.MustAddDays(start, i)]
		}
		peak = max(peak, count)
	}
	return peak
}
