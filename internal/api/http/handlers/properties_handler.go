package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/property-service/internal/api/dto"
	"github.com/spec-kit/property-service/internal/auth"
	"github.com/spec-kit/property-service/internal/domain"
	"github.com/spec-kit/property-service/internal/repository"
	"github.com/spec-kit/property-service/internal/service"
)

// PropertiesHandler serves public listings, user submissions and admin moderation.
type PropertiesHandler struct {
	service *service.PropertyService
}

// NewPropertiesHandler constructs handler.
func NewPropertiesHandler(propertyService *service.PropertyService) *PropertiesHandler {
	return &PropertiesHandler{service: propertyService}
}

// List GET /api/properties.
func (h *PropertiesHandler) List(c *fiber.Ctx) error {
	limit, offset := paging(c, 20, 100)
	featured, err := optionalBool(c, "featured")
	if err != nil {
		return err
	}
	filter := repository.PropertyFilter{
		Featured:   featured,
		SearchTerm: optionalQuery(c, "q"),
		Limit:      limit,
		Offset:     offset,
	}
	if raw := optionalQuery(c, "listing_type"); raw != nil {
		lt := domain.ListingType(*raw)
		filter.ListingType = &lt
	}
	properties, err := h.service.ListPublic(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPropertyList(properties)})
}

// Get GET /api/properties/:id. Pending and rejected listings are visible
// only to their submitter and to admins.
func (h *PropertiesHandler) Get(c *fiber.Ctx) error {
	var viewerID string
	if identity, ok := auth.IdentityFromContext(c); ok {
		viewerID = identity.ID
	}
	caller, _ := auth.AuthContextFromContext(c)

	property, err := h.service.Get(c.UserContext(), viewerID, caller.IsAdmin(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPropertyResponse(property)})
}

// Submit POST /api/properties.
func (h *PropertiesHandler) Submit(c *fiber.Ctx) error {
	caller, err := callerFromContext(c)
	if err != nil {
		return err
	}
	var req dto.CreatePropertyRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	property, err := h.service.Submit(c.UserContext(), caller, propertyInput(req))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewPropertyResponse(property)})
}

// Dashboard GET /api/me/properties.
func (h *PropertiesHandler) Dashboard(c *fiber.Ctx) error {
	caller, err := callerFromContext(c)
	if err != nil {
		return err
	}
	dashboard, err := h.service.Dashboard(c.UserContext(), caller)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.DashboardResponse{
		Properties: dto.NewPropertyList(dashboard.Properties),
		Counts:     dashboard.Counts,
	}})
}

// ListForModeration GET /api/admin/properties?status=.
func (h *PropertiesHandler) ListForModeration(c *fiber.Ctx) error {
	caller, err := callerFromContext(c)
	if err != nil {
		return err
	}
	var status *domain.ApprovalStatus
	if raw := optionalQuery(c, "status"); raw != nil {
		s := domain.ApprovalStatus(*raw)
		status = &s
	}
	limit, offset := paging(c, 50, 200)
	properties, err := h.service.ListForModeration(c.UserContext(), caller, status, limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPropertyList(properties)})
}

// CreateDirect POST /api/admin/properties.
func (h *PropertiesHandler) CreateDirect(c *fiber.Ctx) error {
	caller, err := callerFromContext(c)
	if err != nil {
		return err
	}
	var req dto.CreatePropertyRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	property, err := h.service.CreateDirect(c.UserContext(), caller, propertyInput(req))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewPropertyResponse(property)})
}

// Approve POST /api/admin/properties/:id/approve.
func (h *PropertiesHandler) Approve(c *fiber.Ctx) error {
	caller, err := callerFromContext(c)
	if err != nil {
		return err
	}
	property, err := h.service.Approve(c.UserContext(), caller, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPropertyResponse(property)})
}

// Reject POST /api/admin/properties/:id/reject.
func (h *PropertiesHandler) Reject(c *fiber.Ctx) error {
	caller, err := callerFromContext(c)
	if err != nil {
		return err
	}
	var req dto.RejectPropertyRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return err
		}
	}
	property, err := h.service.Reject(c.UserContext(), caller, c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPropertyResponse(property)})
}

// SetFeatured PUT /api/admin/properties/:id/featured.
func (h *PropertiesHandler) SetFeatured(c *fiber.Ctx) error {
	caller, err := callerFromContext(c)
	if err != nil {
		return err
	}
	var req dto.FeaturedRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	property, err := h.service.SetFeatured(c.UserContext(), caller, c.Params("id"), req.Featured)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPropertyResponse(property)})
}

func propertyInput(req dto.CreatePropertyRequest) service.PropertyInput {
	return service.PropertyInput{
		Title:        req.Title,
		Description:  req.Description,
		Location:     req.Location,
		PropertyType: req.PropertyType,
		Price:        req.Price,
		Bedrooms:     req.Bedrooms,
		Bathrooms:    req.Bathrooms,
		AreaSqft:     req.AreaSqft,
		ImageURLs:    req.ImageURLs,
		ListingType:  req.ListingType,
		Featured:     req.Featured,
	}
}
