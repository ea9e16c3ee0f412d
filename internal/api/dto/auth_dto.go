package dto

import (
	"time"

	"github.com/spec-kit/property-service/internal/domain"
)

// SignInRequest payload. Identifier is an email, or a phone for users.
type SignInRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// SignUpRequest payload for new users.
type SignUpRequest struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest payload.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenRequest carries a single-use confirmation or recovery token.
type TokenRequest struct {
	Token string `json:"token"`
}

// PasswordResetRequest payload for initiating reset.
type PasswordResetRequest struct {
	Email string `json:"email"`
}

// PasswordUpdateRequest payload for completing a reset.
type PasswordUpdateRequest struct {
	Password string `json:"password"`
}

// SessionResponse describes issued tokens.
type SessionResponse struct {
	IdentityID   string    `json:"identity_id"`
	Email        string    `json:"email"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// ProfileResponse is the role-scoped view of the signed-in identity.
type ProfileResponse struct {
	ID         string      `json:"id"`
	Role       domain.Role `json:"role"`
	Name       string      `json:"name"`
	Email      string      `json:"email,omitempty"`
	Phone      string      `json:"phone,omitempty"`
	Department string      `json:"department,omitempty"`
}

// SignUpResponse reports whether a session was issued or confirmation is pending.
type SignUpResponse struct {
	IdentityID           string           `json:"identity_id"`
	ConfirmationRequired bool             `json:"confirmation_required"`
	Session              *SessionResponse `json:"session,omitempty"`
}

// NewSessionResponse maps a session; nil stays nil.
func NewSessionResponse(s *domain.Session) *SessionResponse {
	if s == nil {
		return nil
	}
	return &SessionResponse{
		IdentityID:   s.Identity.ID,
		Email:        s.Identity.Email,
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		ExpiresAt:    s.ExpiresAt,
	}
}

// NewAccessResponse maps a session without its refresh token, for responses
// to requests that did not present a credential.
func NewAccessResponse(s *domain.Session) *SessionResponse {
	resp := NewSessionResponse(s)
	if resp != nil {
		resp.RefreshToken = ""
	}
	return resp
}

// NewProfileResponse maps any role profile.
func NewProfileResponse(p domain.RoleProfile) *ProfileResponse {
	if p == nil {
		return nil
	}
	resp := &ProfileResponse{ID: p.IdentityID(), Role: p.Role(), Name: p.DisplayName()}
	switch v := p.(type) {
	case *domain.UserProfile:
		resp.Email = v.Email
		resp.Phone = v.Phone
	case *domain.StaffProfile:
		resp.Email = v.Email
		resp.Phone = v.Phone
		resp.Department = v.Department
	case *domain.AdminProfile:
		resp.Email = v.Email
	}
	return resp
}
