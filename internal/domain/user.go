package domain

import "time"

// RoleProfile is the role-scoped view of an identity.
type RoleProfile interface {
	IdentityID() string
	Role() Role
	DisplayName() string
}

// UserProfile is a public marketplace user (row in user_profiles).
type UserProfile struct {
	ID        string
	Name      string
	Phone     string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p *UserProfile) IdentityID() string  { return p.ID }
func (p *UserProfile) Role() Role          { return RoleUser }
func (p *UserProfile) DisplayName() string { return p.Name }

// AdminProfile is a row in admins.
type AdminProfile struct {
	ID        string
	Name      string
	Email     string
	CreatedAt time.Time
}

func (p *AdminProfile) IdentityID() string  { return p.ID }
func (p *AdminProfile) Role() Role          { return RoleAdmin }
func (p *AdminProfile) DisplayName() string { return p.Name }

// ExcludedIDs lists identities that belong to internal roles.
type ExcludedIDs struct {
	AdminIDs []string `json:"adminIds"`
	StaffIDs []string `json:"staffIds"`
}

// Set returns the union of admin and staff ids.
func (e ExcludedIDs) Set() map[string]struct{} {
	set := make(map[string]struct{}, len(e.AdminIDs)+len(e.StaffIDs))
	for _, id := range e.AdminIDs {
		set[id] = struct{}{}
	}
	for _, id := range e.StaffIDs {
		set[id] = struct{}{}
	}
	return set
}
