package mongostore

import (
	"context"
	"time"

	"github.com/arnold/esg-pledges-api/internal/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (s *Store) FindCompletion(ctx context.Context, userID, pledgeID uuid.UUID) (*models.CompletionRecord, error) {
	var doc completionDoc
	err := s.collection(completionsCollection).
		FindOne(ctx, bson.M{"user_id": userID.String(), "pledge_id": pledgeID.String()}).
		Decode(&doc)
	if err != nil {
		return nil, translate("find completion", "Completion", err)
	}
	rec := doc.model()
	return &rec, nil
}

func (s *Store) CreateCompletion(ctx context.Context, rec *models.CompletionRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	rec.CreatedAt = now()
	rec.UpdatedAt = rec.CreatedAt

	_, err := s.collection(completionsCollection).InsertOne(ctx, newCompletionDoc(rec))
	return translate("create completion", "Completion", err)
}

func (s *Store) MarkCompleted(ctx context.Context, id uuid.UUID, points int, at time.Time) (bool, error) {
	res, err := s.collection(completionsCollection).UpdateOne(ctx,
		bson.M{"_id": id.String(), "is_completed": false},
		bson.M{"$set": bson.M{
			"is_completed": true,
			"points":       points,
			"completed_at": at.UTC(),
			"updated_at":   now(),
		}},
	)
	if err != nil {
		return false, translate("mark completed", "Completion", err)
	}
	return res.ModifiedCount == 1, nil
}

func (s *Store) ListUserCompletions(ctx context.Context, userID uuid.UUID, category models.Category, completedOnly bool) ([]models.CompletionRecord, error) {
	filter := bson.M{"user_id": userID.String(), "category": string(category)}
	if completedOnly {
		filter["is_completed"] = true
	}

	recs, err := s.findCompletions(ctx, filter)
	if err != nil {
		return nil, translate("list user completions", "Completion", err)
	}
	if err := s.resolvePledges(ctx, recs); err != nil {
		return nil, translate("resolve pledges", "Pledge", err)
	}
	return recs, nil
}

func (s *Store) ScanCompleted(ctx context.Context, category models.Category) ([]models.CompletionRecord, error) {
	recs, err := s.findCompletions(ctx, bson.M{"category": string(category), "is_completed": true})
	if err != nil {
		return nil, translate("scan completed", "Completion", err)
	}
	if err := s.resolveUsers(ctx, recs); err != nil {
		return nil, translate("resolve users", "User", err)
	}
	if err := s.resolvePledges(ctx, recs); err != nil {
		return nil, translate("resolve pledges", "Pledge", err)
	}
	return recs, nil
}

func (s *Store) findCompletions(ctx context.Context, filter bson.M) ([]models.CompletionRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := s.collection(completionsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	var docs []completionDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	recs := make([]models.CompletionRecord, 0, len(docs))
	for _, d := range docs {
		recs = append(recs, d.model())
	}
	return recs, nil
}

// resolveUsers batch-loads the owners, the equivalent of a populate("user").
func (s *Store) resolveUsers(ctx context.Context, recs []models.CompletionRecord) error {
	ids := make([]string, 0, len(recs))
	for _, r := range recs {
		ids = append(ids, r.UserID.String())
	}
	if len(ids) == 0 {
		return nil
	}

	cur, err := s.collection(usersCollection).Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return err
	}
	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return err
	}

	byID := make(map[uuid.UUID]models.User, len(docs))
	for _, d := range docs {
		byID[parseID(d.ID)] = d.model()
	}
	for i := range recs {
		if u, ok := byID[recs[i].UserID]; ok {
			recs[i].User = &u
		}
	}
	return nil
}

func (s *Store) resolvePledges(ctx context.Context, recs []models.CompletionRecord) error {
	ids := make([]string, 0, len(recs))
	for _, r := range recs {
		ids = append(ids, r.PledgeID.String())
	}
	if len(ids) == 0 {
		return nil
	}

	cur, err := s.collection(pledgesCollection).Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return err
	}
	var docs []pledgeDoc
	if err := cur.All(ctx, &docs); err != nil {
		return err
	}

	byID := make(map[uuid.UUID]models.Pledge, len(docs))
	for _, d := range docs {
		byID[parseID(d.ID)] = d.model()
	}
	for i := range recs {
		if p, ok := byID[recs[i].PledgeID]; ok {
			recs[i].Pledge = &p
		}
	}
	return nil
}
