package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/arnold/esg-pledges-api/internal/auth"
	"github.com/arnold/esg-pledges-api/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestApp(t *testing.T) (*fiber.App, *auth.JWTManager) {
	t.Helper()
	jwt := auth.NewJWTManager("secret", "test", time.Hour)
	a := NewAuth(jwt, "token")

	app := fiber.New()
	app.Use(RequestLogger(zap.NewNop()))
	whoami := func(c *fiber.Ctx) error {
		if p, ok := GetPrincipal(c); ok {
			return c.SendString(p.Email)
		}
		return c.SendString("anonymous")
	}
	app.Get("/protected", a.Protected(), whoami)
	app.Get("/admin", a.Protected(), a.AdminOnly(), whoami)
	app.Get("/soft", a.SoftAuth(), whoami)
	return app, jwt
}

func token(t *testing.T, jwt *auth.JWTManager, role string) string {
	t.Helper()
	tok, err := jwt.Generate(&models.User{ID: uuid.New(), Email: role + "@example.com", Role: role})
	require.NoError(t, err)
	return tok
}

func TestProtected(t *testing.T) {
	app, jwt := newTestApp(t)
	userToken := token(t, jwt, models.RoleUser)

	tests := []struct {
		name   string
		setup  func(*http.Request)
		status int
	}{
		{"no token", func(*http.Request) {}, fiber.StatusUnauthorized},
		{"bad token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer junk") }, fiber.StatusUnauthorized},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+userToken) }, fiber.StatusOK},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "token", Value: userToken}) }, fiber.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			tt.setup(req)
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestAdminOnly(t *testing.T) {
	app, jwt := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, jwt, models.RoleUser))
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, jwt, models.RoleAdmin))
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestSoftAuth_IgnoresBadToken(t *testing.T) {
	app, jwt := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/soft", nil)
	req.Header.Set("Authorization", "Bearer junk")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/soft", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, jwt, models.RoleUser))
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
