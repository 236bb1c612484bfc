package models

import (
	"time"

	"github.com/angelmondragon/socshift-backend/pkg/enums"
)

// Preferences is the scheduling preference snapshot a user maintains.
type Preferences struct {
	PreferredDays    []string          `firestore:"preferredDays" json:"preferredDays" validate:"omitempty,dive,weekday"`
	PreferredShifts  []enums.ShiftType `firestore:"preferredShifts" json:"preferredShifts" validate:"omitempty,dive,shift_type"`
	UnavailableDates []string          `firestore:"unavailableDates" json:"unavailableDates" validate:"omitempty,dive,ymd"`
}

// User is stored at users/{uid}; the document id is the auth uid.
type User struct {
	ID          string         `firestore:"-" json:"id"`
	Name        string         `firestore:"name" json:"name" validate:"required"`
	Email       string         `firestore:"email" json:"email" validate:"omitempty,email"`
	Role        enums.UserRole `firestore:"role" json:"role" validate:"required,oneof=ADMIN ANALYST"`
	IsAdmin     bool           `firestore:"isAdmin" json:"isAdmin"`
	IsActive    bool           `firestore:"isActive" json:"isActive"`
	AvatarURL   string         `firestore:"avatarUrl,omitempty" json:"avatarUrl,omitempty"`
	Preferences Preferences    `firestore:"preferences" json:"preferences"`
	CreatedAt   time.Time      `firestore:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time      `firestore:"updatedAt" json:"updatedAt"`
}

func (u *User) SetID(id string) { u.ID = id }

// UnavailableOn reports whether the user listed day as unavailable.
func (u User) UnavailableOn(day string) bool {
	for _, d := range u.Preferences.UnavailableDates {
		if d == day {
			return true
		}
	}
	return false
}

// PrefersShift reports whether t is one of the user's preferred shift types.
func (u User) PrefersShift(t enums.ShiftType) bool {
	for _, p := range u.Preferences.PreferredShifts {
		if p == t {
			return true
		}
	}
	return false
}

// PrefersDay reports whether weekday (e.g. "Monday") is a preferred day.
func (u User) PrefersDay(weekday string) bool {
	for _, d := range u.Preferences.PreferredDays {
		if d == weekday {
			return true
		}
	}
	return false
}
