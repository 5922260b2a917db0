package middleware

import (
	"strings"

	"github.com/arnold/esg-pledges-api/internal/auth"
	"github.com/arnold/esg-pledges-api/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const principalKey = "principal"

// Auth resolves the caller from the session cookie or a Bearer header.
type Auth struct {
	jwt        *auth.JWTManager
	cookieName string
}

func NewAuth(jwt *auth.JWTManager, cookieName string) *Auth {
	return &Auth{jwt: jwt, cookieName: cookieName}
}

func (a *Auth) tokenFrom(c *fiber.Ctx) string {
	if token := c.Cookies(a.cookieName); token != "" {
		return token
	}

	// Extract token from "Bearer <token>"
	header := c.Get(fiber.HeaderAuthorization)
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// Protected rejects requests without a valid token.
func (a *Auth) Protected() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := a.tokenFrom(c)
		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "No token provided")
		}

		p, err := a.jwt.Validate(token)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid or expired token")
		}

		c.Locals(principalKey, p)
		return c.Next()
	}
}

// AdminOnly must run after Protected.
func (a *Auth) AdminOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, ok := GetPrincipal(c)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "No token provided")
		}
		if !p.IsAdmin() {
			return fiber.NewError(fiber.StatusForbidden, "Admin access required")
		}
		return c.Next()
	}
}

// SoftAuth attaches the principal when the token is valid and otherwise
// lets the request through anonymously.
func (a *Auth) SoftAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token := a.tokenFrom(c); token != "" {
			if p, err := a.jwt.Validate(token); err == nil {
				c.Locals(principalKey, p)
			}
		}
		return c.Next()
	}
}

func GetPrincipal(c *fiber.Ctx) (models.Principal, bool) {
	p, ok := c.Locals(principalKey).(models.Principal)
	return p, ok
}

// GetUserID extracts user ID from context
func GetUserID(c *fiber.Ctx) uuid.UUID {
	p, ok := GetPrincipal(c)
	if !ok {
		return uuid.Nil
	}
	return p.ID
}
