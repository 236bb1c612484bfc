package auth

import "github.com/angelmondragon/socshift-backend/pkg/enums"

// Actor is the authenticated caller a service acts on behalf of.
type Actor struct {
	UserID  string
	Name    string
	Email   string
	Role    enums.UserRole
	IsAdmin bool
}

// System is the actor used by background jobs.
var System = Actor{UserID: "system", Name: "System", Role: enums.UserRoleAdmin, IsAdmin: true}

// Admin reports whether the actor may perform administrative operations.
func (a Actor) Admin() bool {
	return a.IsAdmin || a.Role == enums.UserRoleAdmin
}

// DisplayName falls back to the user id when no name is known.
func (a Actor) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return a.UserID
}
