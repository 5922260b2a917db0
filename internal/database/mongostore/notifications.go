package mongostore

import (
	"context"

	"github.com/arnold/esg-pledges-api/internal/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	n.CreatedAt = now()
	n.UpdatedAt = n.CreatedAt

	_, err := s.collection(notificationsCollection).InsertOne(ctx, newNotificationDoc(n))
	return translate("create notification", "Notification", err)
}

func (s *Store) ListNotifications(ctx context.Context, userID uuid.UUID, page, limit int) (*models.NotificationPage, error) {
	coll := s.collection(notificationsCollection)
	filter := bson.M{"user_id": userID.String()}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))
	cur, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, translate("list notifications", "Notification", err)
	}
	var docs []notificationDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, translate("list notifications", "Notification", err)
	}

	total, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, translate("count notifications", "Notification", err)
	}
	unread, err := coll.CountDocuments(ctx, bson.M{"user_id": userID.String(), "read": false})
	if err != nil {
		return nil, translate("count unread notifications", "Notification", err)
	}

	notifications := make([]models.Notification, 0, len(docs))
	for _, d := range docs {
		notifications = append(notifications, d.model())
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
	res, err := s.collection(notificationsCollection).UpdateOne(ctx,
		bson.M{"_id": id.String(), "user_id": userID.String()},
		bson.M{"$set": bson.M{"read": true, "updated_at": now()}},
	)
	if err != nil {
		return translate("mark notification read", "Notification", err)
	}
	if res.MatchedCount == 0 {
		return notFound("mark notification read", "Notification")
	}
	return nil
}

func (s *Store) MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) error {
	_, err := s.collection(notificationsCollection).UpdateMany(ctx,
		bson.M{"user_id": userID.String(), "read": false},
		bson.M{"$set": bson.M{"read": true, "updated_at": now()}},
	)
	return translate("mark all notifications read", "Notification", err)
}
