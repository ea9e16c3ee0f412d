package service

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/spec-kit/property-service/internal/domain"
	"github.com/spec-kit/property-service/internal/events"
	"github.com/spec-kit/property-service/internal/observability"
	"github.com/spec-kit/property-service/internal/repository"
	apperrors "github.com/spec-kit/property-service/pkg/util"
)

// PropertyService owns the listing moderation lifecycle.
type PropertyService struct {
	properties repository.PropertyRepository
	sanitizer  *bluemonday.Policy
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// PropertyDependencies bundles collaborators.
type PropertyDependencies struct {
	PropertyRepo repository.PropertyRepository
	Dispatcher   events.Dispatcher
	Metrics      *observability.Metrics
	Logger       *zap.Logger
	Clock        func() time.Time
}

// PropertyInput describes listing fields supplied on creation.
type PropertyInput struct {
	Title        string
	Description  string
	Location     string
	PropertyType string
	Price        int64
	Bedrooms     int
	Bathrooms    int
	AreaSqft     int
	ImageURLs    []string
	ListingType  domain.ListingType
	Featured     bool
}

// PropertyDashboard is a submitter's view of their own listings.
type PropertyDashboard struct {
	Properties []domain.Property
	Counts     domain.StatusCounts
}

// NewPropertyService constructs the service.
func NewPropertyService(deps PropertyDependencies) *PropertyService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	return &PropertyService{
		properties: deps.PropertyRepo,
		sanitizer:  bluemonday.StrictPolicy(),
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		now:        now,
	}
}

// Submit records a user listing as pending moderation.
func (s *PropertyService) Submit(ctx context.Context, caller *domain.AuthContext, input PropertyInput) (*domain.Property, error) {
	if err := requireRole(caller, domain.RoleUser); err != nil {
		return nil, err
	}
	property, err := s.build(input)
	if err != nil {
		return nil, err
	}
	now := s.now()
	pending := domain.ApprovalPending
	submitter := caller.IdentityID()
	property.SubmittedBy = &submitter
	property.ApprovalStatus = &pending
	property.SubmissionDate = &now
	property.Featured = false

	if err := s.properties.Create(ctx, property); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("property submitted", zap.String("property_id", property.ID), zap.String("submitted_by", submitter))
	s.publish(ctx, events.EventPropertySubmitted, property.ID, submitter, events.PropertySubmittedPayload{
		Title:       property.Title,
		ListingType: property.ListingType,
	})
	return property, nil
}

// CreateDirect publishes an admin-authored listing. The status is written
// as approved rather than left empty.
func (s *PropertyService) CreateDirect(ctx context.Context, caller *domain.AuthContext, input PropertyInput) (*domain.Property, error) {
	if err := requireRole(caller, domain.RoleAdmin); err != nil {
		return nil, err
	}
	property, err := s.build(input)
	if err != nil {
		return nil, err
	}
	property.Approve(s.now())
	property.Featured = input.Featured

	if err := s.properties.Create(ctx, property); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("property created by admin", zap.String("property_id", property.ID), zap.String("admin_id", caller.IdentityID()))
	return property, nil
}

// Approve marks a property approved. Re-approving is a no-op success.
func (s *PropertyService) Approve(ctx context.Context, caller *domain.AuthContext, propertyID string) (*domain.Property, error) {
	return s.review(ctx, caller, propertyID, domain.ApprovalApproved, nil)
}

// Reject marks a property rejected with an optional reason.
func (s *PropertyService) Reject(ctx context.Context, caller *domain.AuthContext, propertyID string, reason *string) (*domain.Property, error) {
	if reason != nil {
		trimmed := strings.TrimSpace(s.sanitizer.Sanitize(*reason))
		if trimmed == "" {
			reason = nil
		} else {
			reason = &trimmed
		}
	}
	return s.review(ctx, caller, propertyID, domain.ApprovalRejected, reason)
}

func (s *PropertyService) review(ctx context.Context, caller *domain.AuthContext, propertyID string, status domain.ApprovalStatus, reason *string) (*domain.Property, error) {
	if err := requireRole(caller, domain.RoleAdmin); err != nil {
		return nil, err
	}
	if !validID(propertyID) {
		return nil, propertyNotFound(propertyID)
	}
	current, err := s.properties.GetByID(ctx, propertyID)
	if err != nil {
		return nil, propertyLookupError(err, propertyID)
	}

	now := s.now()
	if status == domain.ApprovalApproved {
		current.Approve(now)
	} else {
		current.Reject(reason, now)
	}
	updated, err := s.properties.Review(ctx, propertyID, *current.ApprovalStatus, *current.ApprovalDate, current.RejectionReason)
	if err != nil {
		return nil, propertyLookupError(err, propertyID)
	}

	s.metrics.RecordPropertyReview(string(status))
	s.logger.Info("property reviewed",
		zap.String("property_id", propertyID),
		zap.String("status", string(status)),
		zap.String("admin_id", caller.IdentityID()))
	s.publish(ctx, events.EventPropertyReviewed, propertyID, caller.IdentityID(), events.PropertyReviewedPayload{
		SubmittedBy: updated.SubmittedBy,
		Status:      status,
		Reason:      updated.RejectionReason,
	})
	return updated, nil
}

// ListPublic returns listings that are approved, or predate moderation.
func (s *PropertyService) ListPublic(ctx context.Context, filter repository.PropertyFilter) ([]domain.Property, error) {
	if filter.ListingType != nil && !filter.ListingType.Valid() {
		return nil, apperrors.NewValidationError("invalid listing_type", map[string]any{"listing_type": *filter.ListingType})
	}
	properties, err := s.properties.ListPublic(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return properties, nil
}

// Get returns a property if viewerID may see it. Hidden properties are
// reported as not found.
func (s *PropertyService) Get(ctx context.Context, viewerID string, admin bool, propertyID string) (*domain.Property, error) {
	if !validID(propertyID) {
		return nil, propertyNotFound(propertyID)
	}
	property, err := s.properties.GetByID(ctx, propertyID)
	if err != nil {
		return nil, propertyLookupError(err, propertyID)
	}
	if !property.VisibleTo(viewerID, admin) {
		return nil, propertyNotFound(propertyID)
	}
	return property, nil
}

// Dashboard returns all of the caller's submissions with counts by status.
func (s *PropertyService) Dashboard(ctx context.Context, caller *domain.AuthContext) (*PropertyDashboard, error) {
	if err := requireRole(caller, domain.RoleUser); err != nil {
		return nil, err
	}
	properties, err := s.properties.ListBySubmitter(ctx, caller.IdentityID())
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &PropertyDashboard{Properties: properties, Counts: domain.CountByStatus(properties)}, nil
}

// ListForModeration lists properties by status for admins; nil lists all.
func (s *PropertyService) ListForModeration(ctx context.Context, caller *domain.AuthContext, status *domain.ApprovalStatus, limit, offset int) ([]domain.Property, error) {
	if err := requireRole(caller, domain.RoleAdmin); err != nil {
		return nil, err
	}
	if status != nil && !status.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": *status})
	}
	properties, err := s.properties.ListByStatus(ctx, status, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return properties, nil
}

// SetFeatured toggles the featured flag.
func (s *PropertyService) SetFeatured(ctx context.Context, caller *domain.AuthContext, propertyID string, featured bool) (*domain.Property, error) {
	if err := requireRole(caller, domain.RoleAdmin); err != nil {
		return nil, err
	}
	if !validID(propertyID) {
		return nil, propertyNotFound(propertyID)
	}
	property, err := s.properties.SetFeatured(ctx, propertyID, featured)
	if err != nil {
		return nil, propertyLookupError(err, propertyID)
	}
	return property, nil
}

func (s *PropertyService) build(input PropertyInput) (*domain.Property, error) {
	title := strings.TrimSpace(s.sanitizer.Sanitize(input.Title))
	if title == "" {
		return nil, apperrors.NewValidationError("title required", nil)
	}
	if !input.ListingType.Valid() {
		return nil, apperrors.NewValidationError("invalid listing_type", map[string]any{"listing_type": input.ListingType})
	}
	if input.Price < 0 || input.Bedrooms < 0 || input.Bathrooms < 0 || input.AreaSqft < 0 {
		return nil, apperrors.NewValidationError("numeric fields cannot be negative", nil)
	}
	images := make([]string, 0, len(input.ImageURLs))
	for _, raw := range input.ImageURLs {
		u, err := url.Parse(strings.TrimSpace(raw))
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, apperrors.NewValidationError("image urls must be absolute http(s) urls", map[string]any{"image_url": raw})
		}
		images = append(images, u.String())
	}
	return &domain.Property{
		Title:        title,
		Description:  strings.TrimSpace(s.sanitizer.Sanitize(input.Description)),
		Location:     strings.TrimSpace(s.sanitizer.Sanitize(input.Location)),
		PropertyType: strings.TrimSpace(s.sanitizer.Sanitize(input.PropertyType)),
		Price:        input.Price,
		Bedrooms:     input.Bedrooms,
		Bathrooms:    input.Bathrooms,
		AreaSqft:     input.AreaSqft,
		ImageURLs:    images,
		ListingType:  input.ListingType,
	}, nil
}

func (s *PropertyService) publish(ctx context.Context, eventType events.EventType, subjectID, actorID string, payload any) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.New(eventType, subjectID, actorID, payload))
}

func propertyLookupError(err error, propertyID string) error {
	if repository.IsNotFound(err) {
		return propertyNotFound(propertyID)
	}
	return apperrors.MapError(err)
}

func propertyNotFound(propertyID string) error {
	return apperrors.NewNotFound("property", map[string]any{"property_id": propertyID})
}
