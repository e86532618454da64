package domain

import (
	"strings"
	"time"
)

// AuthProvider represents an OAuth provider.
type AuthProvider string

const (
	AuthProviderGoogle AuthProvider = "google"
	AuthProviderGitHub AuthProvider = "github"
)

// Role is the closed set of user roles. The zero value means the user
// signed in through OAuth but has not picked a role yet.
type Role string

const (
	RoleUnassigned Role = ""
	RoleHR         Role = "hr"
	RoleCandidate  Role = "candidate"
)

// KnownRole reports whether r is an assignable role.
func KnownRole(r Role) bool {
	return r == RoleHR || r == RoleCandidate
}

// User represents an authenticated user.
type User struct {
	ID         int64        `json:"id" db:"id"`
	Provider   AuthProvider `json:"provider" db:"provider"`
	ProviderID string       `json:"provider_id" db:"provider_id"`
	Email      string       `json:"email" db:"email"`
	FirstName  string       `json:"first_name" db:"first_name"`
	LastName   string       `json:"last_name" db:"last_name"`
	Role       Role         `json:"role" db:"role"`
	AvatarURL  *string      `json:"avatar_url,omitempty" db:"avatar_url"`
	CreatedAt  time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at" db:"updated_at"`
}

// DisplayName returns the user's full name, falling back to the email
// address when both name parts are empty.
func (u User) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name == "" {
		return u.Email
	}
	return name
}

// NeedsRoleSelection reports whether the user still has to complete
// role selection after a fresh OAuth sign-in.
func (u User) NeedsRoleSelection() bool {
	return u.Role == RoleUnassigned
}
