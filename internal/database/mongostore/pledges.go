package mongostore

import (
	"context"

	"github.com/arnold/esg-pledges-api/internal/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (s *Store) CreatePledge(ctx context.Context, p *models.Pledge) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = now()
	p.UpdatedAt = p.CreatedAt

	_, err := s.collection(pledgesCollection).InsertOne(ctx, newPledgeDoc(p))
	return translate("create pledge", "Pledge", err)
}

func (s *Store) GetPledge(ctx context.Context, category models.Category, id uuid.UUID) (*models.Pledge, error) {
	var doc pledgeDoc
	err := s.collection(pledgesCollection).
		FindOne(ctx, bson.M{"_id": id.String(), "category": string(category)}).
		Decode(&doc)
	if err != nil {
		return nil, translate("get pledge", "Pledge", err)
	}
	p := doc.model()
	return &p, nil
}

func (s *Store) ListPledges(ctx context.Context, category models.Category) ([]models.Pledge, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := s.collection(pledgesCollection).Find(ctx, bson.M{"category": string(category)}, opts)
	if err != nil {
		return nil, translate("list pledges", "Pledge", err)
	}

	var docs []pledgeDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, translate("list pledges", "Pledge", err)
	}

	pledges := make([]models.Pledge, 0, len(docs))
	for _, d := range docs {
		pledges = append(pledges, d.model())
	}
	return pledges, nil
}

func (s *Store) UpdatePledge(ctx context.Context, p *models.Pledge) error {
	p.UpdatedAt = now()
	res, err := s.collection(pledgesCollection).UpdateOne(ctx,
		bson.M{"_id": p.ID.String(), "category": string(p.Category)},
		bson.M{"$set": bson.M{
			"pledge_text": p.PledgeText,
			"gift":        p.Gift,
			"image_url":   p.ImageURL,
			"points":      p.Points,
			"updated_at":  p.UpdatedAt,
		}},
	)
	if err != nil {
		return translate("update pledge", "Pledge", err)
	}
	if res.MatchedCount == 0 {
		return notFound("update pledge", "Pledge")
	}
	return nil
}

// DeletePledge removes the pledge first and then its completion records.
// Standalone servers have no multi-document transactions; a crash between
// the two steps leaves orphans that the ranking scan already ignores.
func (s *Store) DeletePledge(ctx context.Context, category models.Category, id uuid.UUID) error {
	res, err := s.collection(pledgesCollection).DeleteOne(ctx, bson.M{"_id": id.String(), "category": string(category)})
	if err != nil {
		return translate("delete pledge", "Pledge", err)
	}
	if res.DeletedCount == 0 {
		return notFound("delete pledge", "Pledge")
	}

	_, err = s.collection(completionsCollection).DeleteMany(ctx, bson.M{"pledge_id": id.String()})
	return translate("delete pledge completions", "Completion", err)
}

func (s *Store) PledgeImageRefs(ctx context.Context) ([]string, error) {
	values, err := s.collection(pledgesCollection).Distinct(ctx, "image_url", bson.M{})
	if err != nil {
		return nil, translate("list image refs", "Pledge", err)
	}

	refs := make([]string, 0, len(values))
	for _, v := range values {
		if ref, ok := v.(string); ok {
			refs = append(refs, ref)
		}
	}
	return refs, nil
}
