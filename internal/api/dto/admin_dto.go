package dto

import (
	"time"

	"github.com/spec-kit/property-service/internal/domain"
)

// LeadResponse is a marketplace user shown to admins.
type LeadResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// StaffResponse is a staff member row.
type StaffResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone,omitempty"`
	Department string `json:"department,omitempty"`
	IsActive   bool   `json:"is_active"`
}

// NewLeadList maps profiles, never returning nil.
func NewLeadList(profiles []domain.UserProfile) []LeadResponse {
	out := make([]LeadResponse, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, LeadResponse{ID: p.ID, Name: p.Name, Phone: p.Phone, Email: p.Email, CreatedAt: p.CreatedAt})
	}
	return out
}

// NewStaffList maps staff profiles, never returning nil.
func NewStaffList(staff []domain.StaffProfile) []StaffResponse {
	out := make([]StaffResponse, 0, len(staff))
	for _, s := range staff {
		out = append(out, StaffResponse{
			ID:         s.ID,
			Name:       s.Name,
			Email:      s.Email,
			Phone:      s.Phone,
			Department: s.Department,
			IsActive:   s.IsActive,
		})
	}
	return out
}
