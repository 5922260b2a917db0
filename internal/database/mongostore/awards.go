package mongostore

import (
	"context"

	"github.com/arnold/esg-pledges-api/internal/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (s *Store) CreateAward(ctx context.Context, a *models.Award) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = now()
	a.UpdatedAt = a.CreatedAt

	_, err := s.collection(awardsCollection).InsertOne(ctx, newAwardDoc(a))
	return translate("create award", "Award", err)
}

func (s *Store) GetAward(ctx context.Context, category models.Category, id uuid.UUID) (*models.Award, error) {
	var doc awardDoc
	err := s.collection(awardsCollection).
		FindOne(ctx, bson.M{"_id": id.String(), "category": string(category)}).
		Decode(&doc)
	if err != nil {
		return nil, translate("get award", "Award", err)
	}
	a := doc.model()
	return &a, nil
}

func (s *Store) ListAwards(ctx context.Context, category models.Category) ([]models.Award, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := s.collection(awardsCollection).Find(ctx, bson.M{"category": string(category)}, opts)
	if err != nil {
		return nil, translate("list awards", "Award", err)
	}

	var docs []awardDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, translate("list awards", "Award", err)
	}

	awards := make([]models.Award, 0, len(docs))
	for _, d := range docs {
		awards = append(awards, d.model())
	}
	return awards, nil
}

func (s *Store) UpdateAward(ctx context.Context, a *models.Award) error {
	a.UpdatedAt = now()
	res, err := s.collection(awardsCollection).UpdateOne(ctx,
		bson.M{"_id": a.ID.String(), "category": string(a.Category)},
		bson.M{"$set": bson.M{
			"title":       a.Title,
			"description": a.Description,
			"icon":        a.Icon,
			"updated_at":  a.UpdatedAt,
		}},
	)
	if err != nil {
		return translate("update award", "Award", err)
	}
	if res.MatchedCount == 0 {
		return notFound("update award", "Award")
	}
	return nil
}

func (s *Store) DeleteAward(ctx context.Context, category models.Category, id uuid.UUID) error {
	res, err := s.collection(awardsCollection).DeleteOne(ctx, bson.M{"_id": id.String(), "category": string(category)})
	if err != nil {
		return translate("delete award", "Award", err)
	}
	if res.DeletedCount == 0 {
		return notFound("delete award", "Award")
	}
	return nil
}
