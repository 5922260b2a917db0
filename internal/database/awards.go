package database

import (
	"context"

	"github.com/arnold/esg-pledges-api/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (s *Store) CreateAward(ctx context.Context, a *models.Award) error {
	return translate("create award", "Award", s.db.WithContext(ctx).Create(a).Error)
}

func (s *Store) GetAward(ctx context.Context, category models.Category, id uuid.UUID) (*models.Award, error) {
	var a models.Award
	if err := s.db.WithContext(ctx).Where("id = ? AND category = ?", id, category).First(&a).Error; err != nil {
		return nil, translate("get award", "Award", err)
	}
	return &a, nil
}

func (s *Store) ListAwards(ctx context.Context, category models.Category) ([]models.Award, error) {
	awards := []models.Award{}
	err := s.db.WithContext(ctx).Where("category = ?", category).Order("created_at ASC").Find(&awards).Error
	if err != nil {
		return nil, translate("list awards", "Award", err)
	}
	return awards, nil
}

func (s *Store) UpdateAward(ctx context.Context, a *models.Award) error {
	res := s.db.WithContext(ctx).
		Model(&models.Award{}).
		Where("id = ? AND category = ?", a.ID, a.Category).
		Updates(map[string]interface{}{
			"title":       a.Title,
			"description": a.Description,
			"icon":        a.Icon,
		})
	if res.Error != nil {
		return translate("update award", "Award", res.Error)
	}
	if res.RowsAffected == 0 {
		return translate("update award", "Award", gorm.ErrRecordNotFound)
	}
	return nil
}

func (s *Store) DeleteAward(ctx context.Context, category models.Category, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Where("id = ? AND category = ?", id, category).Delete(&models.Award{})
	if res.Error != nil {
		return translate("delete award", "Award", res.Error)
	}
	if res.RowsAffected == 0 {
		return translate("delete award", "Award", gorm.ErrRecordNotFound)
	}
	return nil
}
