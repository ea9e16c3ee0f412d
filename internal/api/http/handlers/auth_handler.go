package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/property-service/internal/api/dto"
	"github.com/spec-kit/property-service/internal/credential"
	"github.com/spec-kit/property-service/internal/domain"
	"github.com/spec-kit/property-service/internal/session"
	apperrors "github.com/spec-kit/property-service/pkg/util"
)

// AuthHandler exposes role sign-in, sign-up and recovery endpoints. Each
// role's session lives in its own Manager, selected by role and client id.
type AuthHandler struct {
	sessions *session.Registry
	provider *credential.Provider
}

// NewAuthHandler constructs handler.
func NewAuthHandler(sessions *session.Registry, provider *credential.Provider) *AuthHandler {
	return &AuthHandler{sessions: sessions, provider: provider}
}

// SignIn handles POST /api/auth/:role/sign-in.
func (h *AuthHandler) SignIn(c *fiber.Ctx) error {
	role, err := roleParam(c)
	if err != nil {
		return err
	}
	var req dto.SignInRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.Identifier) == "" || req.Password == "" {
		return apperrors.NewValidationError("identifier and password required", nil)
	}

	client := clientID(c)
	s, profile, err := h.sessions.Manager(role, client).SignIn(c.UserContext(), req.Identifier, req.Password)
	if err != nil {
		h.sessions.ReleaseIfEmpty(role, client)
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"session": dto.NewSessionResponse(s),
		"profile": dto.NewProfileResponse(profile),
	}})
}

// SignUp handles POST /api/auth/user/sign-up.
func (h *AuthHandler) SignUp(c *fiber.Ctx) error {
	var req dto.SignUpRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	client := clientID(c)
	identity, s, err := h.sessions.Manager(domain.RoleUser, client).SignUp(c.UserContext(), session.SignUpInput{
		Name:     req.Name,
		Phone:    req.Phone,
		Email:    req.Email,
		Password: req.Password,
	})
	if s == nil {
		h.sessions.ReleaseIfEmpty(domain.RoleUser, client)
	}
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.SignUpResponse{
		IdentityID:           identity.ID,
		ConfirmationRequired: s == nil,
		Session:              dto.NewSessionResponse(s),
	}})
}

// SignOut handles POST /api/auth/:role/sign-out. Other roles' sessions on
// the same client are untouched.
func (h *AuthHandler) SignOut(c *fiber.Ctx) error {
	role, err := roleParam(c)
	if err != nil {
		return err
	}
	client := clientID(c)
	m, err := h.sessions.Lookup(c.UserContext(), role, client)
	if err != nil {
		return err
	}
	if m == nil {
		return c.SendStatus(http.StatusNoContent)
	}
	if err := m.SignOut(c.UserContext()); err != nil {
		return err
	}
	h.sessions.Release(role, client)
	return c.SendStatus(http.StatusNoContent)
}

// Profile handles GET /api/auth/:role/profile, restoring the stored session
// and re-resolving role membership. The refresh token is never returned here.
func (h *AuthHandler) Profile(c *fiber.Ctx) error {
	role, err := roleParam(c)
	if err != nil {
		return err
	}
	m, err := h.sessions.Lookup(c.UserContext(), role, clientID(c))
	if err != nil {
		return err
	}
	if m == nil {
		return apperrors.NewUnauthorized("no active session")
	}
	profile, err := m.Restore(c.UserContext())
	if err != nil {
		return err
	}
	if profile == nil {
		return apperrors.NewUnauthorized("no active session")
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"session": dto.NewAccessResponse(m.Session()),
		"profile": dto.NewProfileResponse(profile),
	}})
}

// RequestPasswordReset handles POST /api/auth/:role/password/reset-request.
// The response is the same whether or not the email is registered, and the
// caller's client gains nothing until it presents the emailed token.
func (h *AuthHandler) RequestPasswordReset(c *fiber.Ctx) error {
	if _, err := roleParam(c); err != nil {
		return err
	}
	var req dto.PasswordResetRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.Email) == "" {
		return apperrors.NewValidationError("email required", nil)
	}
	if err := h.provider.RequestPasswordReset(c.UserContext(), req.Email); err != nil {
		return err
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{"data": fiber.Map{"status": "requested"}})
}

// Recover handles POST /api/auth/:role/password/recover.
func (h *AuthHandler) Recover(c *fiber.Ctx) error {
	role, err := roleParam(c)
	if err != nil {
		return err
	}
	var req dto.TokenRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	client := clientID(c)
	if err := h.sessions.Manager(role, client).HandleRecovery(c.UserContext(), req.Token); err != nil {
		h.sessions.ReleaseIfEmpty(role, client)
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"status": "recovery_active"}})
}

// ResetPassword handles POST /api/auth/:role/password/reset.
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	role, err := roleParam(c)
	if err != nil {
		return err
	}
	var req dto.PasswordUpdateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	client := clientID(c)
	m, err := h.sessions.Lookup(c.UserContext(), role, client)
	if err != nil {
		return err
	}
	if m == nil {
		return apperrors.NewRecoveryRequired()
	}
	if err := m.ResetPassword(c.UserContext(), req.Password); err != nil {
		return err
	}
	h.sessions.ReleaseIfEmpty(role, client)
	return c.SendStatus(http.StatusNoContent)
}

// Refresh handles POST /api/auth/refresh.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	s, err := h.provider.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSessionResponse(s)})
}

// ConfirmEmail handles POST /api/auth/confirm.
func (h *AuthHandler) ConfirmEmail(c *fiber.Ctx) error {
	var req dto.TokenRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	identity, err := h.provider.ConfirmEmail(c.UserContext(), req.Token)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"identity_id": identity.ID, "email": identity.Email}})
}
