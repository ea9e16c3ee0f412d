package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/property-service/internal/directory"
	"github.com/spec-kit/property-service/internal/domain"
	apperrors "github.com/spec-kit/property-service/pkg/util"
)

const (
	identityKey    = "auth_identity"
	authContextKey = "auth_context"
)

// TokenResolver turns a bearer token into an identity.
type TokenResolver interface {
	ResolveToken(ctx context.Context, bearer string) (*domain.Identity, error)
}

// RoleResolver checks role membership against the role tables.
type RoleResolver interface {
	Resolve(ctx context.Context, role domain.Role, identityID string) (domain.RoleProfile, error)
}

// AuthMiddleware validates bearer tokens and re-verifies role membership
// on every request. Client-side role claims are never consulted.
type AuthMiddleware struct {
	tokens TokenResolver
	roles  RoleResolver
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens TokenResolver, roles RoleResolver) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, roles: roles}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	bearer, err := bearerToken(c)
	if err != nil {
		return err
	}

	identity, err := m.tokens.ResolveToken(c.UserContext(), bearer)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			return apperrors.NewInvalidToken()
		}
		return apperrors.NewInternalError(err)
	}

	c.Locals(identityKey, identity)
	return c.Next()
}

// Optional resolves a bearer token when present and otherwise continues
// anonymously. An unresolvable token is treated as anonymous.
func (m *AuthMiddleware) Optional(c *fiber.Ctx) error {
	if c.Get(fiber.HeaderAuthorization) == "" {
		return c.Next()
	}
	bearer, err := bearerToken(c)
	if err != nil {
		return c.Next()
	}
	if identity, err := m.tokens.ResolveToken(c.UserContext(), bearer); err == nil {
		c.Locals(identityKey, identity)
	}
	return c.Next()
}

// RequireRole admits the caller when it belongs to any of the allowed roles,
// checked in order. The resolved AuthContext is stored for handlers.
func (m *AuthMiddleware) RequireRole(allowed ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := IdentityFromContext(c)
		if !ok {
			return apperrors.NewMissingAuth()
		}
		authCtx, err := m.verify(c.UserContext(), identity, allowed)
		if err != nil {
			return err
		}
		c.Locals(authContextKey, authCtx)
		return c.Next()
	}
}

// OptionalRole attaches an AuthContext when an optional identity belongs to
// one of the roles, and continues without one otherwise.
func (m *AuthMiddleware) OptionalRole(allowed ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := IdentityFromContext(c)
		if !ok {
			return c.Next()
		}
		authCtx, err := m.verify(c.UserContext(), identity, allowed)
		if err == nil {
			c.Locals(authContextKey, authCtx)
		} else if !apperrors.HasCode(err, apperrors.CodeForbidden) {
			return err
		}
		return c.Next()
	}
}

func (m *AuthMiddleware) verify(ctx context.Context, identity *domain.Identity, allowed []domain.Role) (*domain.AuthContext, error) {
	for _, role := range allowed {
		profile, err := m.roles.Resolve(ctx, role, identity.ID)
		if err == nil {
			return &domain.AuthContext{Identity: *identity, Role: role, Profile: profile}, nil
		}
		if !errors.Is(err, directory.ErrNotInRole) {
			return nil, apperrors.NewInternalError(err)
		}
	}
	return nil, apperrors.NewForbidden("insufficient role")
}

func bearerToken(c *fiber.Ctx) (string, error) {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return "", apperrors.NewMissingAuth()
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", apperrors.NewInvalidToken()
	}
	return strings.TrimSpace(parts[1]), nil
}

// IdentityFromContext retrieves the token-verified identity.
func IdentityFromContext(c *fiber.Ctx) (*domain.Identity, bool) {
	identity, ok := c.Locals(identityKey).(*domain.Identity)
	return identity, ok && identity != nil
}

// AuthContextFromContext retrieves the role-verified caller.
func AuthContextFromContext(c *fiber.Ctx) (*domain.AuthContext, bool) {
	authCtx, ok := c.Locals(authContextKey).(*domain.AuthContext)
	return authCtx, ok && authCtx != nil
}
