package models

import (
	"time"

	"github.com/angelmondragon/socshift-backend/pkg/enums"
)

// ShiftWindow holds the timings of one shift type.
type ShiftWindow struct {
	Start      string `firestore:"start" json:"start" validate:"required,hhmm"`
	End        string `firestore:"end" json:"end" validate:"required,hhmm"`
	LunchStart string `firestore:"lunchStart" json:"lunchStart" validate:"required,hhmm"`
	LunchEnd   string `firestore:"lunchEnd" json:"lunchEnd" validate:"required,hhmm"`
	BreakStart string `firestore:"breakStart" json:"breakStart" validate:"required,hhmm"`
	BreakEnd   string `firestore:"breakEnd" json:"breakEnd" validate:"required,hhmm"`
	WorkHours  int    `firestore:"workHours" json:"workHours" validate:"min=1,max=16"`
}

// ShiftConfiguration is the singleton config/shiftConfiguration document.
type ShiftConfiguration struct {
	ID        string      `firestore:"-" json:"-"`
	Morning   ShiftWindow `firestore:"Morning" json:"Morning"`
	Evening   ShiftWindow `firestore:"Evening" json:"Evening"`
	Night     ShiftWindow `firestore:"Night" json:"Night"`
	UpdatedBy string      `firestore:"updatedBy,omitempty" json:"updatedBy,omitempty"`
	UpdatedAt time.Time   `firestore:"updatedAt" json:"updatedAt"`
}

func (c *ShiftConfiguration) SetID(id string) { c.ID = id }

// Window returns the timings for t. Unknown types get the zero window.
func (c ShiftConfiguration) Window(t enums.ShiftType) ShiftWindow {
	switch t {
	case enums.ShiftTypeMorning:
		return c.Morning
	case enums.ShiftTypeEvening:
		return c.Evening
	case enums.ShiftTypeNight:
		return c.Night
	default:
		return ShiftWindow{}
	}
}

// DefaultShiftConfiguration is used until an admin persists a configuration.
func DefaultShiftConfiguration() ShiftConfiguration {
	return ShiftConfiguration{
		Morning: ShiftWindow{
			Start: "06:00", End: "14:00",
			LunchStart: "10:00", LunchEnd: "10:30",
			BreakStart: "12:00", BreakEnd: "12:15",
			WorkHours: 8,
		},
		Evening: ShiftWindow{
			Start: "14:00", End: "22:00",
			LunchStart: "18:00", LunchEnd: "18:30",
			BreakStart: "20:00", BreakEnd: "20:15",
			WorkHours: 8,
		},
		Night: ShiftWindow{
			Start: "22:00", End: "06:00",
			LunchStart: "02:00", LunchEnd: "02:30",
			BreakStart: "04:00", BreakEnd: "04:15",
			WorkHours: 8,
		},
	}
}
