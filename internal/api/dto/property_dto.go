package dto

import (
	"time"

	"github.com/spec-kit/property-service/internal/domain"
)

// CreatePropertyRequest payload shared by user submissions and admin creation.
type CreatePropertyRequest struct {
	Title        string             `json:"title"`
	Description  string             `json:"description"`
	Location     string             `json:"location"`
	PropertyType string             `json:"property_type"`
	Price        int64              `json:"price"`
	Bedrooms     int                `json:"bedrooms"`
	Bathrooms    int                `json:"bathrooms"`
	AreaSqft     int                `json:"area_sqft"`
	ImageURLs    []string           `json:"image_urls"`
	ListingType  domain.ListingType `json:"listing_type"`
	Featured     bool               `json:"featured"`
}

// RejectPropertyRequest payload.
type RejectPropertyRequest struct {
	Reason *string `json:"reason"`
}

// FeaturedRequest payload.
type FeaturedRequest struct {
	Featured bool `json:"featured"`
}

// PropertyResponse describes a listing. Status is the effective status.
type PropertyResponse struct {
	ID              string                `json:"id"`
	Title           string                `json:"title"`
	Description     string                `json:"description"`
	Location        string                `json:"location"`
	PropertyType    string                `json:"property_type"`
	Price           int64                 `json:"price"`
	Bedrooms        int                   `json:"bedrooms"`
	Bathrooms       int                   `json:"bathrooms"`
	AreaSqft        int                   `json:"area_sqft"`
	ImageURLs       []string              `json:"image_urls"`
	ListingType     domain.ListingType    `json:"listing_type"`
	Featured        bool                  `json:"featured"`
	ApprovalStatus  domain.ApprovalStatus `json:"approval_status"`
	ApprovalDate    *time.Time            `json:"approval_date,omitempty"`
	RejectionReason *string               `json:"rejection_reason,omitempty"`
	SubmittedBy     *string               `json:"submitted_by,omitempty"`
	SubmissionDate  *time.Time            `json:"submission_date,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
}

// DashboardResponse is the submitter's own listings plus counts.
type DashboardResponse struct {
	Properties []PropertyResponse  `json:"properties"`
	Counts     domain.StatusCounts `json:"counts"`
}

// NewPropertyResponse maps a property.
func NewPropertyResponse(p *domain.Property) PropertyResponse {
	images := p.ImageURLs
	if images == nil {
		images = []string{}
	}
	return PropertyResponse{
		ID:              p.ID,
		Title:           p.Title,
		Description:     p.Description,
		Location:        p.Location,
		PropertyType:    p.PropertyType,
		Price:           p.Price,
		Bedrooms:        p.Bedrooms,
		Bathrooms:       p.Bathrooms,
		AreaSqft:        p.AreaSqft,
		ImageURLs:       images,
		ListingType:     p.ListingType,
		Featured:        p.Featured,
		ApprovalStatus:  p.EffectiveStatus(),
		ApprovalDate:    p.ApprovalDate,
		RejectionReason: p.RejectionReason,
		SubmittedBy:     p.SubmittedBy,
		SubmissionDate:  p.SubmissionDate,
		CreatedAt:       p.CreatedAt,
	}
}

// NewPropertyList maps properties, never returning nil.
func NewPropertyList(properties []domain.Property) []PropertyResponse {
	out := make([]PropertyResponse, 0, len(properties))
	for i := range properties {
		out = append(out, NewPropertyResponse(&properties[i]))
	}
	return out
}
