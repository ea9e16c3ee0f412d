package domain

import "time"

// Role names one of the three independent authentication domains.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleStaff:
		return true
	}
	return false
}

// IdentityMetadata is the sign-up payload kept alongside an identity so a
// missing user profile can be rebuilt on first authenticated access.
type IdentityMetadata struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Identity is the credential provider's stable account record.
type Identity struct {
	ID               string
	Email            string
	Metadata         IdentityMetadata
	EmailConfirmedAt *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Session is a bearer token pair issued for an identity.
type Session struct {
	Identity     Identity  `json:"identity"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	Recovery     bool      `json:"recovery,omitempty"`
}

// Expired reports whether the access token is past its expiry.
func (s *Session) Expired(now time.Time) bool {
	return s == nil || !now.Before(s.ExpiresAt)
}
