// Package mongostore is the MongoDB implementation of store.Store.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arnold/esg-pledges-api/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	pledgesCollection       = "pledges"
	completionsCollection   = "completion_records"
	usersCollection         = "users"
	awardsCollection        = "awards"
	notificationsCollection = "notifications"
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Open connects and pings the server.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}

	return &Store{client: client, db: client.Database(database)}, nil
}

func (s *Store) collection(name string) *mongo.Collection {
	return s.db.Collection(name)
}

// Migrate creates the indexes the service relies on, including the
// (user, pledge) uniqueness that makes completion race-safe.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		pledgesCollection: {
			{Keys: bson.D{{Key: "category", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		completionsCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "pledge_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "category", Value: 1}, {Key: "is_completed", Value: 1}}},
			{Keys: bson.D{{Key: "pledge_id", Value: 1}}},
		},
		awardsCollection: {
			{Keys: bson.D{{Key: "category", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		notificationsCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
	}

	for name, models := range indexes {
		if _, err := s.collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create %s indexes: %w", name, err)
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("ping: %w: %w", models.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect from MongoDB: %w", err)
	}
	return nil
}

func translate(op, entity string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return fmt.Errorf("%s: %w", op, models.NotFound(entity))
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%s: %w", op, models.ErrConflict)
	default:
		return fmt.Errorf("%s: %w: %w", op, models.ErrStoreUnavailable, err)
	}
}

func notFound(op, entity string) error {
	return translate(op, entity, mongo.ErrNoDocuments)
}

// now matches MongoDB's millisecond date precision.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
