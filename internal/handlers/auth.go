package handlers

import (
	"time"

	"github.com/arnold/esg-pledges-api/internal/middleware"
	"github.com/arnold/esg-pledges-api/internal/models"
	"github.com/arnold/esg-pledges-api/internal/services"
	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	users      *services.UserService
	cookieName string
	ttl        time.Duration
	production bool
}

func NewAuthHandler(users *services.UserService, cookieName string, ttl time.Duration, production bool) *AuthHandler {
	return &AuthHandler{users: users, cookieName: cookieName, ttl: ttl, production: production}
}

// Cross-site frontends need SameSite=None, which browsers only accept on
// Secure cookies.
func (h *AuthHandler) cookie(value string, expires time.Time) *fiber.Cookie {
	sameSite := fiber.CookieSameSiteLaxMode
	if h.production {
		sameSite = fiber.CookieSameSiteNoneMode
	}
	return &fiber.Cookie{
		Name:     h.cookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   h.production,
		SameSite: sameSite,
	}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req models.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	resp, err := h.users.Register(c.UserContext(), req)
	if err != nil {
		return err
	}

	c.Cookie(h.cookie(resp.Token, time.Now().Add(h.ttl)))
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Registered successfully",
		"data":    resp,
	})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	resp, err := h.users.Login(c.UserContext(), req)
	if err != nil {
		return err
	}

	c.Cookie(h.cookie(resp.Token, time.Now().Add(h.ttl)))
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Logged in successfully",
		"data":    resp,
	})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user, err := h.users.Me(c.UserContext(), middleware.GetUserID(c))
	if err != nil {
		return err
	}
	return ok(c, user)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	c.Cookie(h.cookie("", time.Unix(0, 0)))
	return message(c, "Logged out successfully")
}
