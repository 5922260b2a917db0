package database

import (
	"context"
	"strings"

	"github.com/arnold/esg-pledges-api/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	return translate("create user", "User", s.db.WithContext(ctx).Create(u).Error)
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, translate("get user", "User", err)
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&u).Error
	if err != nil {
		return nil, translate("get user by email", "User", err)
	}
	return &u, nil
}

func (s *Store) SetUserRole(ctx context.Context, email, role string) error {
	res := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		Update("role", role)
	if res.Error != nil {
		return translate("set user role", "User", res.Error)
	}
	if res.RowsAffected == 0 {
		return translate("set user role", "User", gorm.ErrRecordNotFound)
	}
	return nil
}

func (s *Store) SetDeviceToken(ctx context.Context, id uuid.UUID, token string) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("fcm_token", token)
	if res.Error != nil {
		return translate("set device token", "User", res.Error)
	}
	if res.RowsAffected == 0 {
		return translate("set device token", "User", gorm.ErrRecordNotFound)
	}
	return nil
}
