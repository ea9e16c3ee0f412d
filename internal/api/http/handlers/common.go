package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/spec-kit/property-service/internal/auth"
	"github.com/spec-kit/property-service/internal/domain"
	apperrors "github.com/spec-kit/property-service/pkg/util"
)

// HeaderClientID names the client runtime whose role sessions a request
// operates on.
const HeaderClientID = "X-Client-ID"

func callerFromContext(c *fiber.Ctx) (*domain.AuthContext, error) {
	caller, ok := auth.AuthContextFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return caller, nil
}

func roleParam(c *fiber.Ctx) (domain.Role, error) {
	role := domain.Role(strings.ToLower(c.Params("role")))
	if !role.Valid() {
		return "", apperrors.NewNotFound("role", map[string]any{"role": c.Params("role")})
	}
	return role, nil
}

// clientID returns the caller's client id, minting one when absent. The id
// is always echoed back so the client can reuse it.
func clientID(c *fiber.Ctx) string {
	id := strings.TrimSpace(c.Get(HeaderClientID))
	if id == "" || len(id) > 128 {
		id = uuid.NewString()
	}
	c.Set(HeaderClientID, id)
	return id
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return nil
}

func paging(c *fiber.Ctx, defaultLimit, maxLimit int) (int, int) {
	limit := c.QueryInt("limit", defaultLimit)
	if limit <= 0 || limit > maxLimit {
		limit = defaultLimit
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func optionalQuery(c *fiber.Ctx, key string) *string {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return nil
	}
	return &v
}

func optionalBool(c *fiber.Ctx, key string) (*bool, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	switch strings.ToLower(raw) {
	case "true", "1":
		v := true
		return &v, nil
	case "false", "0":
		v := false
		return &v, nil
	}
	return nil, apperrors.NewValidationError("invalid boolean", map[string]any{key: raw})
}

type clock func() time.Time

func (f clock) now() time.Time {
	if f == nil {
		return time.Now()
	}
	return f()
}
