package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/property-service/internal/api/dto"
	"github.com/spec-kit/property-service/internal/directory"
	"github.com/spec-kit/property-service/internal/repository"
	"github.com/spec-kit/property-service/internal/service"
)

// AdminHandler serves the admin CRM views.
type AdminHandler struct {
	leads     *service.LeadService
	directory *directory.Directory
}

// NewAdminHandler constructs handler.
func NewAdminHandler(leads *service.LeadService, dir *directory.Directory) *AdminHandler {
	return &AdminHandler{leads: leads, directory: dir}
}

// ExcludedIDs GET /api/admin/excluded-ids.
func (h *AdminHandler) ExcludedIDs(c *fiber.Ctx) error {
	caller, err := callerFromContext(c)
	if err != nil {
		return err
	}
	ids, err := h.leads.ExcludedIDs(c.UserContext(), caller)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ids})
}

// Leads GET /api/admin/leads.
func (h *AdminHandler) Leads(c *fiber.Ctx) error {
	caller, err := callerFromContext(c)
	if err != nil {
		return err
	}
	leads, err := h.leads.Leads(c.UserContext(), caller)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewLeadList(leads)})
}

// Staff GET /api/admin/staff?active=.
func (h *AdminHandler) Staff(c *fiber.Ctx) error {
	active, err := optionalBool(c, "active")
	if err != nil {
		return err
	}
	limit, offset := paging(c, 100, 500)
	staff, err := h.directory.ListStaff(c.UserContext(), repository.StaffFilter{Active: active, Limit: limit, Offset: offset})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewStaffList(staff)})
}
