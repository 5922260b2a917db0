package database

import (
	"context"
	"time"

	"github.com/arnold/esg-pledges-api/internal/models"
	"github.com/google/uuid"
)

func (s *Store) FindCompletion(ctx context.Context, userID, pledgeID uuid.UUID) (*models.CompletionRecord, error) {
	var rec models.CompletionRecord
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND pledge_id = ?", userID, pledgeID).
		First(&rec).Error
	if err != nil {
		return nil, translate("find completion", "Completion", err)
	}
	return &rec, nil
}

func (s *Store) CreateCompletion(ctx context.Context, rec *models.CompletionRecord) error {
	return translate("create completion", "Completion", s.db.WithContext(ctx).Omit("User", "Pledge").Create(rec).Error)
}

func (s *Store) MarkCompleted(ctx context.Context, id uuid.UUID, points int, at time.Time) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&models.CompletionRecord{}).
		Where("id = ? AND is_completed = ?", id, false).
		Updates(map[string]interface{}{
			"is_completed": true,
			"points":       points,
			"completed_at": at,
		})
	if res.Error != nil {
		return false, translate("mark completed", "Completion", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *Store) ListUserCompletions(ctx context.Context, userID uuid.UUID, category models.Category, completedOnly bool) ([]models.CompletionRecord, error) {
	q := s.db.WithContext(ctx).
		Preload("Pledge").
		Where("user_id = ? AND category = ?", userID, category)
	if completedOnly {
		q = q.Where("is_completed = ?", true)
	}

	var recs []models.CompletionRecord
	if err := q.Order("created_at ASC").Find(&recs).Error; err != nil {
		return nil, translate("list user completions", "Completion", err)
	}
	return recs, nil
}

func (s *Store) ScanCompleted(ctx context.Context, category models.Category) ([]models.CompletionRecord, error) {
	var recs []models.CompletionRecord
	err := s.db.WithContext(ctx).
		Preload("User").
		Preload("Pledge").
		Where("category = ? AND is_completed = ?", category, true).
		Order("created_at ASC").
		Find(&recs).Error
	if err != nil {
		return nil, translate("scan completed", "Completion", err)
	}
	return recs, nil
}
