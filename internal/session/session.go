package session

import (
	"log/slog"

	"github.com/minato/hireline/internal/domain"
)

// Status is the normalized authentication state.
type Status string

const (
	StatusLoading         Status = "loading"
	StatusUnauthenticated Status = "unauthenticated"
	StatusAuthenticated   Status = "authenticated"
)

// Claims is the raw claims bag supplied by the identity provider.
// Unknown additive fields are simply not represented here; the resolver
// only reads the fields it maps.
type Claims struct {
	UserID             int64
	Email              string
	FirstName          string
	LastName           string
	Role               domain.Role
	Provider           domain.AuthProvider
	AvatarURL          string
	NeedsRoleSelection bool
}

// RawSession is the provider-shaped session input: a loading flag from
// the provider's fetch machinery plus an optional claims bag.
type RawSession struct {
	Loading bool
	Claims  *Claims
}

// User is the normalized identity snapshot exposed to consumers.
type User struct {
	ID                 int64
	Email              string
	DisplayName        string
	Role               domain.Role
	NeedsRoleSelection bool
	Provider           domain.AuthProvider
	AvatarURL          string
}

// Session is an immutable snapshot of the authentication context.
// User is non-nil exactly when Status is StatusAuthenticated.
type Session struct {
	Status Status
	User   *User
}

// Equal reports whether two snapshots represent the same state.
func (s Session) Equal(o Session) bool {
	if s.Status != o.Status {
		return false
	}
	if (s.User == nil) != (o.User == nil) {
		return false
	}
	return s.User == nil || *s.User == *o.User
}

// Resolve projects a raw provider session into a normalized Session.
// The loading flag dominates: claims present while the provider is still
// loading do not count as an authenticated state. A claims bag missing a
// required identity field downgrades to unauthenticated rather than
// erroring, so ambiguous state never unlocks protected content.
func Resolve(raw RawSession) Session {
	if raw.Loading {
		return Session{Status: StatusLoading}
	}
	if raw.Claims == nil {
		return Session{Status: StatusUnauthenticated}
	}

	c := raw.Claims
	if c.UserID <= 0 || c.Email == "" {
		slog.Warn("malformed provider session, treating as unauthenticated",
			"user_id", c.UserID,
			"has_email", c.Email != "",
		)
		return Session{Status: StatusUnauthenticated}
	}

	u := domain.User{Email: c.Email, FirstName: c.FirstName, LastName: c.LastName}
	return Session{
		Status: StatusAuthenticated,
		User: &User{
			ID:                 c.UserID,
			Email:              c.Email,
			DisplayName:        u.DisplayName(),
			Role:               c.Role,
			NeedsRoleSelection: c.NeedsRoleSelection,
			Provider:           c.Provider,
			AvatarURL:          c.AvatarURL,
		},
	}
}
