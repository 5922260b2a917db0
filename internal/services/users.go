package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/arnold/esg-pledges-api/internal/auth"
	"github.com/arnold/esg-pledges-api/internal/models"
	"github.com/arnold/esg-pledges-api/internal/store"
	"github.com/google/uuid"
)

const minPasswordLength = 6

type UserService struct {
	store store.Users
	jwt   *auth.JWTManager
}

func NewUserService(s store.Users, jwt *auth.JWTManager) *UserService {
	return &UserService{store: s, jwt: jwt}
}

// Register creates a regular user and returns a session token for it.
func (s *UserService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	raw := strings.TrimSpace(req.Email)
	if raw == "" || req.Password == "" {
		return nil, models.NewValidationError("email", "and password are required")
	}
	// ParseAddress also accepts "Name <addr>"; only a bare address is stored.
	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Address != raw {
		return nil, models.NewValidationError("email", "is not a valid address")
	}
	email := strings.ToLower(addr.Address)
	if len(req.Password) < minPasswordLength {
		return nil, models.NewValidationError("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(req.Name),
		Role:         models.RoleUser,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.Public(models.ErrConflict, "User already exists")
		}
		return nil, err
	}
	return s.session(user)
}

func (s *UserService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return nil, models.NewValidationError("email", "and password are required")
	}

	user, err := s.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.Public(models.ErrUnauthorized, "Invalid credentials")
		}
		return nil, err
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		return nil, models.Public(models.ErrUnauthorized, "Invalid credentials")
	}
	return s.session(user)
}

func (s *UserService) session(user *models.User) (*models.AuthResponse, error) {
	token, err := s.jwt.Generate(user)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{Token: token, User: *user}, nil
}

func (s *UserService) Me(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.store.GetUser(ctx, id)
}

// Promote grants the admin role. Existing tokens keep the old role until
// they expire.
func (s *UserService) Promote(ctx context.Context, email string) error {
	return s.store.SetUserRole(ctx, email, models.RoleAdmin)
}

func (s *UserService) RegisterDevice(ctx context.Context, id uuid.UUID, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return models.NewValidationError("token", "is required")
	}
	return s.store.SetDeviceToken(ctx, id, token)
}
