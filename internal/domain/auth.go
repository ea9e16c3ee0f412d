package domain

// AuthContext is built fresh for every privileged request after the bearer
// token and role membership have both been verified server-side.
type AuthContext struct {
	Identity Identity
	Role     Role
	Profile  RoleProfile
}

// IsAdmin reports whether the verified role is admin.
func (a *AuthContext) IsAdmin() bool {
	return a != nil && a.Role == RoleAdmin
}

// IdentityID returns the caller's identity id or "" for a nil context.
func (a *AuthContext) IdentityID() string {
	if a == nil {
		return ""
	}
	return a.Identity.ID
}
