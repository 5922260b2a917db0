package services

import (
	"context"
	"errors"
	"time"

	"github.com/arnold/esg-pledges-api/internal/models"
	"github.com/arnold/esg-pledges-api/internal/notify"
	"github.com/arnold/esg-pledges-api/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CompletionService records that a user completed a pledge. Completing is
// idempotent: only the first call per (user, pledge) flips the record and
// emits a reward event.
type CompletionService struct {
	store     store.Store
	publisher notify.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewCompletionService(s store.Store, publisher notify.Publisher, logger *zap.Logger) *CompletionService {
	return &CompletionService{
		store:     s,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Complete returns the user's record for the pledge and whether this call
// performed the false->true transition.
func (s *CompletionService) Complete(ctx context.Context, p models.Principal, category models.Category, pledgeID uuid.UUID) (*models.CompletionRecord, bool, error) {
	if p.ID == uuid.Nil {
		return nil, false, models.ErrUnauthorized
	}

	pledge, err := s.store.GetPledge(ctx, category, pledgeID)
	if err != nil {
		return nil, false, err
	}

	rec, err := s.store.FindCompletion(ctx, p.ID, pledgeID)
	switch {
	case errors.Is(err, models.ErrNotFound):
		rec, err = s.insert(ctx, p, pledge)
		if err == nil {
			s.publish(ctx, p, pledge, rec)
			return rec, true, nil
		}
		if !errors.Is(err, models.ErrConflict) {
			return nil, false, err
		}
		// A concurrent request created the record first.
		rec, err = s.store.FindCompletion(ctx, p.ID, pledgeID)
		if err != nil {
			return nil, false, models.Public(models.ErrConflict, "Could not record completion, please retry")
		}
	case err != nil:
		return nil, false, err
	}

	if rec.IsCompleted {
		return rec, false, nil
	}

	at := s.now().UTC()
	flipped, err := s.store.MarkCompleted(ctx, rec.ID, pledge.Points, at)
	if err != nil {
		return nil, false, err
	}
	if !flipped {
		rec, err = s.store.FindCompletion(ctx, p.ID, pledgeID)
		if err != nil {
			return nil, false, err
		}
		return rec, false, nil
	}

	rec.IsCompleted = true
	rec.Points = pledge.Points
	rec.CompletedAt = &at
	s.publish(ctx, p, pledge, rec)
	return rec, true, nil
}

func (s *CompletionService) insert(ctx context.Context, p models.Principal, pledge *models.Pledge) (*models.CompletionRecord, error) {
	at := s.now().UTC()
	rec := &models.CompletionRecord{
		UserID:      p.ID,
		PledgeID:    pledge.ID,
		Category:    pledge.Category,
		IsCompleted: true,
		Points:      pledge.Points,
		CompletedAt: &at,
	}
	if err := s.store.CreateCompletion(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// publish never fails the completion; delivery problems are only logged.
func (s *CompletionService) publish(ctx context.Context, p models.Principal, pledge *models.Pledge, rec *models.CompletionRecord) {
	ev := notify.RewardEarned{
		UserID:      p.ID,
		Email:       p.Email,
		PledgeID:    pledge.ID,
		Category:    pledge.Category,
		PledgeText:  pledge.PledgeText,
		Gift:        pledge.Gift,
		Points:      rec.Points,
		CompletedAt: *rec.CompletedAt,
	}
	if user, err := s.store.GetUser(ctx, p.ID); err == nil {
		ev.Name = user.Name
		if user.Email != "" {
			ev.Email = user.Email
		}
	}

	if err := s.publisher.Publish(context.WithoutCancel(ctx), ev); err != nil {
		s.logger.Warn("publish reward event",
			zap.String("user_id", p.ID.String()),
			zap.String("pledge_id", pledge.ID.String()),
			zap.Error(err),
		)
	}
}

// Completed lists the user's completed pledges in a category with pledge
// details. Records whose pledge no longer exists are skipped.
func (s *CompletionService) Completed(ctx context.Context, userID uuid.UUID, category models.Category) ([]models.CompletedPledge, error) {
	recs, err := s.store.ListUserCompletions(ctx, userID, category, true)
	if err != nil {
		return nil, err
	}

	out := make([]models.CompletedPledge, 0, len(recs))
	for _, r := range recs {
		if r.Pledge == nil {
			continue
		}
		out = append(out, models.CompletedPledge{
			ID:          r.ID,
			IsCompleted: r.IsCompleted,
			Points:      r.Points,
			CompletedAt: r.CompletedAt,
			Pledge:      *r.Pledge,
		})
	}
	return out, nil
}
