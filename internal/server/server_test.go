package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/arnold/esg-pledges-api/internal/config"
	"github.com/arnold/esg-pledges-api/internal/database"
	"github.com/arnold/esg-pledges-api/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	t       *testing.T
	app     *fiber.App
	db      *database.Store
	uploads string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	uploads := t.TempDir()
	cfg := &config.Config{
		Server: config.ServerConfig{
			BaseURL:         "http://api.test",
			BodyLimit:       4 << 20,
			CORSOrigins:     "http://localhost:3000",
			ShutdownTimeout: time.Second,
		},
		Auth: config.AuthConfig{
			JWTSecret:  "test-secret",
			JWTIssuer:  "test",
			TokenTTL:   time.Hour,
			CookieName: "token",
		},
		Images: config.ImagesConfig{
			Driver:        "local",
			Dir:           uploads,
			MaxSize:       1 << 20,
			SweepInterval: time.Hour,
			SweepGrace:    time.Hour,
		},
		Notify: config.NotifyConfig{Transport: "local", Workers: 1, QueueSize: 16},
		Log:    config.LogConfig{Level: "error", Format: "json"},
	}

	db, err := database.Open(":memory:", logger.Silent)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(context.Background()))

	srv, err := Assemble(context.Background(), cfg, zap.NewNop(), db)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close(context.Background()) })

	return &testServer{t: t, app: srv.App(), db: db, uploads: uploads}
}

func (s *testServer) do(method, path, token string, body any) (int, envelope) {
	s.t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return s.send(req, token)
}

func (s *testServer) send(req *http.Request, token string) (int, envelope) {
	s.t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(s.t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(s.t, err)
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(s.t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

// register signs a user up and returns the token and id.
func (s *testServer) register(name, email string) (string, uuid.UUID) {
	s.t.Helper()
	status, env := s.do(http.MethodPost, "/api/auth/register", "", models.RegisterRequest{
		Name: name, Email: email, Password: "secret123",
	})
	require.Equal(s.t, fiber.StatusCreated, status, env.Message)

	var resp models.AuthResponse
	require.NoError(s.t, json.Unmarshal(env.Data, &resp))
	return resp.Token, resp.User.ID
}

func (s *testServer) admin() string {
	s.t.Helper()
	s.register("Admin", "admin@example.com")
	require.NoError(s.t, s.db.SetUserRole(context.Background(), "admin@example.com", models.RoleAdmin))

	status, env := s.do(http.MethodPost, "/api/auth/login", "", models.LoginRequest{
		Email: "admin@example.com", Password: "secret123",
	})
	require.Equal(s.t, fiber.StatusOK, status, env.Message)
	var resp models.AuthResponse
	require.NoError(s.t, json.Unmarshal(env.Data, &resp))
	return resp.Token
}

func (s *testServer) createPledge(token string, category models.Category, text string, points int) models.Pledge {
	s.t.Helper()
	status, env := s.do(http.MethodPost, "/api/"+category.RoutePrefix()+"/pledges", token, map[string]any{
		"pledgeText": text,
		"gift":       "Tote bag",
		"points":     points,
	})
	require.Equal(s.t, fiber.StatusCreated, status, env.Message)
	var p models.Pledge
	require.NoError(s.t, json.Unmarshal(env.Data, &p))
	return p
}

func (s *testServer) complete(token string, category models.Category, id uuid.UUID) (int, envelope) {
	s.t.Helper()
	return s.do(http.MethodPost, "/api/"+category.RoutePrefix()+"/pledges/"+id.String()+"/complete", token, nil)
}

func (s *testServer) rankings() []models.LeaderboardEntry {
	s.t.Helper()
	status, env := s.do(http.MethodGet, "/api/rankings", "", nil)
	require.Equal(s.t, fiber.StatusOK, status, env.Message)
	var out []models.LeaderboardEntry
	require.NoError(s.t, json.Unmarshal(env.Data, &out))
	return out
}

func TestRootAndHealth(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "ESG Pledge API is running", string(body))

	status, env := s.do(http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.True(t, env.Success)
}

func TestAuthErrors(t *testing.T) {
	s := newTestServer(t)
	s.register("Ana", "ana@example.com")

	status, env := s.do(http.MethodPost, "/api/auth/register", "", models.RegisterRequest{
		Name: "Ana", Email: "ana@example.com", Password: "secret123",
	})
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "User already exists", env.Message)

	status, env = s.do(http.MethodPost, "/api/auth/login", "", models.LoginRequest{
		Email: "ana@example.com", Password: "wrong-password",
	})
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.False(t, env.Success)
	assert.Equal(t, "Invalid credentials", env.Message)

	status, env = s.do(http.MethodPost, "/api/auth/register", "", models.RegisterRequest{
		Name: "Bo", Email: "not-an-email", Password: "secret123",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.False(t, env.Success)
}

func TestCompleteRequiresToken(t *testing.T) {
	s := newTestServer(t)

	status, env := s.complete("", models.CategoryE, uuid.New())
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.False(t, env.Success)
	assert.Equal(t, "No token provided", env.Message)

	status, env = s.complete("garbage", models.CategoryE, uuid.New())
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "Invalid or expired token", env.Message)
}

func TestPledgeWritesRequireAdmin(t *testing.T) {
	s := newTestServer(t)
	userToken, _ := s.register("Ana", "ana@example.com")

	status, env := s.do(http.MethodPost, "/api/spledges/pledges", userToken, map[string]any{
		"pledgeText": "Volunteer", "points": 5,
	})
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "Admin access required", env.Message)

	status, _ = s.do(http.MethodDelete, "/api/spledges/pledges/"+uuid.NewString(), userToken, nil)
	assert.Equal(t, fiber.StatusForbidden, status)
}

func TestCompletionFlow(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.admin()
	userToken, userID := s.register("Ana", "ana@example.com")

	pledge := s.createPledge(adminToken, models.CategoryE, "Bike to work", 10)
	assert.Equal(t, "http://api.test/uploads/default.jpg", pledge.ImageURL)
	assert.Equal(t, models.CategoryE, pledge.Category)

	status, env := s.do(http.MethodGet, "/api/epledges/pledges", userToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	var listed []models.Pledge
	require.NoError(t, json.Unmarshal(env.Data, &listed))
	require.Len(t, listed, 1)
	require.NotNil(t, listed[0].IsCompleted)
	assert.False(t, *listed[0].IsCompleted)

	status, env = s.complete(userToken, models.CategoryE, pledge.ID)
	require.Equal(t, fiber.StatusOK, status, env.Message)
	assert.Equal(t, "Pledge completed & reward unlocked!", env.Message)

	status, env = s.complete(userToken, models.CategoryE, pledge.ID)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Pledge already completed", env.Message)

	status, env = s.do(http.MethodGet, "/api/epledges/pledges", userToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &listed))
	require.NotNil(t, listed[0].IsCompleted)
	assert.True(t, *listed[0].IsCompleted)

	status, env = s.do(http.MethodGet, "/api/epledges/user/completed", userToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	var completed []models.CompletedPledge
	require.NoError(t, json.Unmarshal(env.Data, &completed))
	require.Len(t, completed, 1)
	assert.Equal(t, 10, completed[0].Points)
	assert.Equal(t, "Bike to work", completed[0].Pledge.PledgeText)

	// A later price change does not touch the snapshot.
	status, _ = s.do(http.MethodPut, "/api/epledges/pledges/"+pledge.ID.String(), adminToken, map[string]any{"points": 99})
	require.Equal(t, fiber.StatusOK, status)

	board := s.rankings()
	require.Len(t, board, 1)
	assert.Equal(t, userID, board[0].UserID)
	assert.Equal(t, "Ana", board[0].Name)
	assert.Equal(t, 10, board[0].E)
	assert.Equal(t, 10, board[0].Total)

	// The inbox entry is written by the background dispatcher.
	require.Eventually(t, func() bool {
		status, env := s.do(http.MethodGet, "/api/notifications", userToken, nil)
		if status != fiber.StatusOK {
			return false
		}
		var page models.NotificationPage
		if err := json.Unmarshal(env.Data, &page); err != nil {
			return false
		}
		return page.Total == 1 && page.Unread == 1
	}, 2*time.Second, 20*time.Millisecond)
}

func TestCompleteWrongCategoryIsNotFound(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.admin()
	userToken, _ := s.register("Ana", "ana@example.com")
	pledge := s.createPledge(adminToken, models.CategoryE, "Bike to work", 10)

	status, env := s.complete(userToken, models.CategoryG, pledge.ID)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "Pledge not found", env.Message)

	status, env = s.do(http.MethodPost, "/api/epledges/pledges/not-a-uuid/complete", userToken, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.False(t, env.Success)
}

func TestRankingsOrder(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.admin()
	aToken, aID := s.register("A", "a@example.com")
	bToken, bID := s.register("B", "b@example.com")

	e := s.createPledge(adminToken, models.CategoryE, "Plant a tree", 15)
	g := s.createPledge(adminToken, models.CategoryG, "Read the bylaws", 20)

	status, _ := s.complete(aToken, models.CategoryE, e.ID)
	require.Equal(t, fiber.StatusOK, status)
	status, _ = s.complete(bToken, models.CategoryG, g.ID)
	require.Equal(t, fiber.StatusOK, status)

	board := s.rankings()
	require.Len(t, board, 2)
	assert.Equal(t, bID, board[0].UserID)
	assert.Equal(t, 20, board[0].G)
	assert.Equal(t, 20, board[0].Total)
	assert.Equal(t, aID, board[1].UserID)
	assert.Equal(t, 15, board[1].E)
	assert.Equal(t, 15, board[1].Total)
}

func TestDeletePledgeCascades(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.admin()
	userToken, _ := s.register("Ana", "ana@example.com")
	pledge := s.createPledge(adminToken, models.CategoryS, "Mentor a student", 8)

	status, _ := s.complete(userToken, models.CategoryS, pledge.ID)
	require.Equal(t, fiber.StatusOK, status)
	require.Len(t, s.rankings(), 1)

	status, env := s.do(http.MethodDelete, "/api/spledges/pledges/"+pledge.ID.String(), adminToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Pledge deleted successfully", env.Message)

	status, env = s.do(http.MethodGet, "/api/spledges/pledges/"+pledge.ID.String(), "", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.False(t, env.Success)

	status, env = s.do(http.MethodGet, "/api/spledges/user/completed", userToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	var completed []models.CompletedPledge
	require.NoError(t, json.Unmarshal(env.Data, &completed))
	assert.Empty(t, completed)
	assert.Empty(t, s.rankings())
}

func TestCreatePledgeWithImage(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.admin()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("pledgeText", "Board diversity report"))
	require.NoError(t, w.WriteField("gift", "Mug"))
	require.NoError(t, w.WriteField("points", "12"))
	part, err := w.CreateFormFile("image", "Report Cover.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG\r\n\x1a\nfake"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/gpledges/pledges", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	status, env := s.send(req, adminToken)
	require.Equal(t, fiber.StatusCreated, status, env.Message)

	var p models.Pledge
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Equal(t, 12, p.Points)
	require.True(t, strings.HasPrefix(p.ImageURL, "http://api.test/uploads/"), p.ImageURL)
	assert.True(t, strings.HasSuffix(p.ImageURL, "-report-cover.png"), p.ImageURL)

	_, err = os.Stat(filepath.Join(s.uploads, strings.TrimPrefix(p.ImageURL, "http://api.test/uploads/")))
	assert.NoError(t, err)

	// Deleting the pledge removes the stored file.
	status, _ = s.do(http.MethodDelete, "/api/gpledges/pledges/"+p.ID.String(), adminToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	entries, err := os.ReadDir(s.uploads)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAwardsCRUD(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.admin()

	status, env := s.do(http.MethodPost, "/api/epledges/awards", adminToken, map[string]any{
		"title": "Green Champion", "description": "Ten environmental pledges",
	})
	require.Equal(t, fiber.StatusCreated, status, env.Message)
	var award models.Award
	require.NoError(t, json.Unmarshal(env.Data, &award))

	status, env = s.do(http.MethodGet, "/api/epledges/awards", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	var awards []models.Award
	require.NoError(t, json.Unmarshal(env.Data, &awards))
	assert.Len(t, awards, 1)

	status, _ = s.do(http.MethodGet, "/api/spledges/awards/"+award.ID.String(), "", nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, env = s.do(http.MethodPost, "/api/epledges/awards", adminToken, map[string]any{"title": ""})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.False(t, env.Success)

	status, _ = s.do(http.MethodDelete, "/api/epledges/awards/"+award.ID.String(), adminToken, nil)
	assert.Equal(t, fiber.StatusOK, status)
}
