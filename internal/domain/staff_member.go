package domain

import "time"

// StaffProfile models a CRM staff member (row in crm_staff).
type StaffProfile struct {
	ID         string
	Name       string
	Email      string
	Phone      string
	Department string
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (p *StaffProfile) IdentityID() string  { return p.ID }
func (p *StaffProfile) Role() Role          { return RoleStaff }
func (p *StaffProfile) DisplayName() string { return p.Name }
