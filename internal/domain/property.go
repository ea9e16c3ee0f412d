package domain

import "time"

// ListingType enumerates how a property is offered.
type ListingType string

const (
	ListingTypeSale   ListingType = "sale"
	ListingTypeRent   ListingType = "rent"
	ListingTypeResale ListingType = "resale"
)

// Valid reports whether t is a known listing type.
func (t ListingType) Valid() bool {
	switch t {
	case ListingTypeSale, ListingTypeRent, ListingTypeResale:
		return true
	}
	return false
}

// ApprovalStatus enumerates moderation states for a property.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// Valid reports whether s is a known approval status.
func (s ApprovalStatus) Valid() bool {
	switch s {
	case ApprovalPending, ApprovalApproved, ApprovalRejected:
		return true
	}
	return false
}

// Property is a marketplace listing.
type Property struct {
	ID              string
	Title           string
	Description     string
	Location        string
	PropertyType    string
	Price           int64
	Bedrooms        int
	Bathrooms       int
	AreaSqft        int
	ImageURLs       []string
	ListingType     ListingType
	SubmittedBy     *string
	ApprovalStatus  *ApprovalStatus
	ApprovalDate    *time.Time
	RejectionReason *string
	SubmissionDate  *time.Time
	Featured        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// EffectiveStatus returns the approval status, reading a missing status on
// rows that predate moderation as approved.
func (p *Property) EffectiveStatus() ApprovalStatus {
	if p.ApprovalStatus == nil {
		return ApprovalApproved
	}
	return *p.ApprovalStatus
}

// PubliclyListable reports whether the property may appear in public listings.
func (p *Property) PubliclyListable() bool {
	return p.EffectiveStatus() == ApprovalApproved
}

// VisibleTo reports whether viewerID may read the property. Pending and
// rejected properties are visible only to their submitter and to admins.
func (p *Property) VisibleTo(viewerID string, admin bool) bool {
	if p.PubliclyListable() || admin {
		return true
	}
	return viewerID != "" && p.SubmittedBy != nil && *p.SubmittedBy == viewerID
}

// Approve moves the property to approved and stamps the review time.
// Approving an already approved property is a no-op success and keeps the
// original approval date.
func (p *Property) Approve(now time.Time) {
	alreadyApproved := p.EffectiveStatus() == ApprovalApproved && p.ApprovalDate != nil
	status := ApprovalApproved
	p.ApprovalStatus = &status
	p.RejectionReason = nil
	if !alreadyApproved {
		p.ApprovalDate = &now
	}
}

// Reject moves the property to rejected with an optional reason.
func (p *Property) Reject(reason *string, now time.Time) {
	status := ApprovalRejected
	p.ApprovalStatus = &status
	p.ApprovalDate = &now
	p.RejectionReason = reason
}

// StatusCounts groups a submitter's properties by approval status.
type StatusCounts struct {
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	Total    int `json:"total"`
}

// CountByStatus tallies properties by their effective status.
func CountByStatus(properties []Property) StatusCounts {
	var counts StatusCounts
	for i := range properties {
		switch properties[i].EffectiveStatus() {
		case ApprovalPending:
			counts.Pending++
		case ApprovalApproved:
			counts.Approved++
		case ApprovalRejected:
			counts.Rejected++
		}
		counts.Total++
	}
	return counts
}
