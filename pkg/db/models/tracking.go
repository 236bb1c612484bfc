package models

import (
	"time"

	"github.com/angelmondragon/socshift-backend/pkg/enums"
)

// ActivityLogEntry is an append-only audit record.
type ActivityLogEntry struct {
	ID        string             `firestore:"-" json:"id"`
	UserID    string             `firestore:"userId" json:"userId" validate:"required"`
	UserName  string             `firestore:"userName" json:"userName"`
	Action    string             `firestore:"action" json:"action" validate:"required"`
	Details   string             `firestore:"details,omitempty" json:"details,omitempty"`
	Type      enums.ActivityType `firestore:"type" json:"type" validate:"required"`
	Timestamp time.Time          `firestore:"timestamp" json:"timestamp" validate:"required"`
}

func (a *ActivityLogEntry) SetID(id string) { a.ID = id }

// UserAvailability marks a user available or unavailable on a day.
type UserAvailability struct {
	ID        string    `firestore:"-" json:"id"`
	UserID    string    `firestore:"userId" json:"userId" validate:"required"`
	Date      string    `firestore:"date" json:"date" validate:"required,ymd"`
	Available bool      `firestore:"available" json:"available"`
	Reason    string    `firestore:"reason,omitempty" json:"reason,omitempty"`
	CreatedBy string    `firestore:"createdBy" json:"createdBy"`
	CreatedAt time.Time `firestore:"createdAt" json:"createdAt"`
}

func (a *UserAvailability) SetID(id string) { a.ID = id }

// ClockEntry records actual attendance for a shift. ClockOut is nil while open.
type ClockEntry struct {
	ID          string     `firestore:"-" json:"id"`
	ShiftID     string     `firestore:"shiftId" json:"shiftId" validate:"required"`
	UserID      string     `firestore:"userId" json:"userId" validate:"required"`
	ClockIn     time.Time  `firestore:"clockIn" json:"clockIn" validate:"required"`
	ClockOut    *time.Time `firestore:"clockOut" json:"clockOut"`
	ActualHours float64    `firestore:"actualHours" json:"actualHours" validate:"gte=0"`
}

func (c *ClockEntry) SetID(id string) { c.ID = id }

// Open reports whether the entry has not been clocked out yet.
func (c ClockEntry) Open() bool {
	return c.ClockOut == nil
}

// ShiftNote is a free-form note attached to a shift.
type ShiftNote struct {
	ID        string    `firestore:"-" json:"id"`
	ShiftID   string    `firestore:"shiftId" json:"shiftId" validate:"required"`
	AuthorID  string    `firestore:"authorId" json:"authorId" validate:"required"`
	Content   string    `firestore:"content" json:"content" validate:"required,max=2000"`
	CreatedAt time.Time `firestore:"createdAt" json:"createdAt"`
}

func (n *ShiftNote) SetID(id string) { n.ID = id }
