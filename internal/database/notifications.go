package database

import (
	"context"

	"github.com/arnold/esg-pledges-api/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) error {
	return translate("create notification", "Notification", s.db.WithContext(ctx).Create(n).Error)
}

func (s *Store) ListNotifications(ctx context.Context, userID uuid.UUID, page, limit int) (*models.NotificationPage, error) {
	offset := (page - 1) * limit
	db := s.db.WithContext(ctx)

	notifications := []models.Notification{}
	err := db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&notifications).Error
	if err != nil {
		return nil, translate("list notifications", "Notification", err)
	}

	var total int64
	if err := db.Model(&models.Notification{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, translate("count notifications", "Notification", err)
	}

	var unread int64
	err = db.Model(&models.Notification{}).Where("user_id = ? AND read = ?", userID, false).Count(&unread).Error
	if err != nil {
		return nil, translate("count unread notifications", "Notification", err)
	}

	return &models.NotificationPage{
		Notifications: notifications,
		Total:         total,
		Unread:        unread,
		Page:          page,
		Limit:         limit,
	}, nil
}

func (s *Store) MarkNotificationRead(ctx context.Context, userID, id uuid.UUID) error {
	res := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("read", true)
	if res.Error != nil {
		return translate("mark notification read", "Notification", res.Error)
	}
	if res.RowsAffected == 0 {
		return translate("mark notification read", "Notification", gorm.ErrRecordNotFound)
	}
	return nil
}

func (s *Store) MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) error {
	err := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Update("read", true).Error
	return translate("mark all notifications read", "Notification", err)
}
