package users

import (
	"github.com/angelmondragon/socshift-backend/pkg/db/models"
	"github.com/angelmondragon/socshift-backend/pkg/enums"
)

// CreateInput is the admin payload for POST /api/users.
type CreateInput struct {
	Email    string         `json:"email" validate:"required,email"`
	Password string         `json:"password" validate:"required,min=6"`
	Name     string         `json:"name" validate:"required,max=120"`
	Role     enums.UserRole `json:"role" validate:"omitempty,oneof=ADMIN ANALYST"`
	IsAdmin  bool           `json:"isAdmin"`
}

// UpdateInput patches the administrative fields. Nil fields are untouched.
type UpdateInput struct {
	Role     *enums.UserRole `json:"role" validate:"omitempty,oneof=ADMIN ANALYST"`
	IsAdmin  *bool           `json:"isAdmin"`
	IsActive *bool           `json:"isActive"`
}

// PreferencesInput replaces the caller's scheduling preferences.
type PreferencesInput struct {
	PreferredDays    []string          `json:"preferredDays" validate:"omitempty,max=7,dive,weekday"`
	PreferredShifts  []enums.ShiftType `json:"preferredShifts" validate:"omitempty,max=3,dive,shift_type"`
	UnavailableDates []string          `json:"unavailableDates" validate:"omitempty,max=366,dive,ymd"`
}

func (p PreferencesInput) toModel() models.Preferences {
	return models.Preferences{
		PreferredDays:    dedupe(p.PreferredDays),
		PreferredShifts:  dedupe(p.PreferredShifts),
		UnavailableDates: dedupe(p.UnavailableDates),
	}
}

// DeleteResult reports the cascade of a user deletion.
type DeleteResult struct {
	UserID        string `json:"userId"`
	ShiftsDeleted int    `json:"shiftsDeleted"`
}

func dedupe[T comparable](in []T) []T {
	if len(in) == 0 {
		return []T{}
	}
	seen := make(map[T]struct{}, len(in))
	out := make([]T, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
