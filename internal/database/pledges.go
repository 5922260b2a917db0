package database

import (
	"context"

	"github.com/arnold/esg-pledges-api/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (s *Store) CreatePledge(ctx context.Context, p *models.Pledge) error {
	return translate("create pledge", "Pledge", s.db.WithContext(ctx).Create(p).Error)
}

func (s *Store) GetPledge(ctx context.Context, category models.Category, id uuid.UUID) (*models.Pledge, error) {
	var p models.Pledge
	err := s.db.WithContext(ctx).Where("id = ? AND category = ?", id, category).First(&p).Error
	if err != nil {
		return nil, translate("get pledge", "Pledge", err)
	}
	return &p, nil
}

func (s *Store) ListPledges(ctx context.Context, category models.Category) ([]models.Pledge, error) {
	pledges := []models.Pledge{}
	err := s.db.WithContext(ctx).
		Where("category = ?", category).
		Order("created_at ASC").
		Find(&pledges).Error
	if err != nil {
		return nil, translate("list pledges", "Pledge", err)
	}
	return pledges, nil
}

func (s *Store) UpdatePledge(ctx context.Context, p *models.Pledge) error {
	res := s.db.WithContext(ctx).
		Model(&models.Pledge{}).
		Where("id = ? AND category = ?", p.ID, p.Category).
		Updates(map[string]interface{}{
			"pledge_text": p.PledgeText,
			"gift":        p.Gift,
			"image_url":   p.ImageURL,
			"points":      p.Points,
		})
	if res.Error != nil {
		return translate("update pledge", "Pledge", res.Error)
	}
	if res.RowsAffected == 0 {
		return translate("update pledge", "Pledge", gorm.ErrRecordNotFound)
	}
	return nil
}

func (s *Store) DeletePledge(ctx context.Context, category models.Category, id uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Pledge
		if err := tx.Select("id").Where("id = ? AND category = ?", id, category).First(&p).Error; err != nil {
			return err
		}
		if err := tx.Where("pledge_id = ?", id).Delete(&models.CompletionRecord{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Pledge{}, "id = ?", id).Error
	})
	return translate("delete pledge", "Pledge", err)
}

func (s *Store) PledgeImageRefs(ctx context.Context) ([]string, error) {
	var refs []string
	err := s.db.WithContext(ctx).Model(&models.Pledge{}).Distinct().Pluck("image_url", &refs).Error
	if err != nil {
		return nil, translate("list image refs", "Pledge", err)
	}
	return refs, nil
}
