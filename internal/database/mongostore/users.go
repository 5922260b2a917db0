package mongostore

import (
	"context"
	"strings"

	"github.com/arnold/esg-pledges-api/internal/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
)

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.CreatedAt = now()
	u.UpdatedAt = u.CreatedAt

	_, err := s.collection(usersCollection).InsertOne(ctx, newUserDoc(u))
	return translate("create user", "User", err)
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.findUser(ctx, "get user", bson.M{"_id": id.String()})
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, "get user by email", bson.M{"email": strings.ToLower(strings.TrimSpace(email))})
}

func (s *Store) findUser(ctx context.Context, op string, filter bson.M) (*models.User, error) {
	var doc userDoc
	if err := s.collection(usersCollection).FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, translate(op, "User", err)
	}
	u := doc.model()
	return &u, nil
}

func (s *Store) SetUserRole(ctx context.Context, email, role string) error {
	return s.setUserField(ctx, "set user role",
		bson.M{"email": strings.ToLower(strings.TrimSpace(email))}, "role", role)
}

func (s *Store) SetDeviceToken(ctx context.Context, id uuid.UUID, token string) error {
	return s.setUserField(ctx, "set device token", bson.M{"_id": id.String()}, "fcm_token", token)
}

func (s *Store) setUserField(ctx context.Context, op string, filter bson.M, field, value string) error {
	res, err := s.collection(usersCollection).UpdateOne(ctx, filter,
		bson.M{"$set": bson.M{field: value, "updated_at": now()}})
	if err != nil {
		return translate(op, "User", err)
	}
	if res.MatchedCount == 0 {
		return notFound(op, "User")
	}
	return nil
}
