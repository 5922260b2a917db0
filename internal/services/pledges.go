package services

import (
	"context"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/arnold/esg-pledges-api/internal/images"
	"github.com/arnold/esg-pledges-api/internal/models"
	"github.com/arnold/esg-pledges-api/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PledgeService manages the per-category pledge catalogue and the images
// attached to pledges.
type PledgeService struct {
	store  store.Store
	images images.Store
	logger *zap.Logger
}

func NewPledgeService(s store.Store, img images.Store, logger *zap.Logger) *PledgeService {
	return &PledgeService{store: s, images: img, logger: logger}
}

// ImageURL turns a stored image ref into an absolute URL.
func (s *PledgeService) ImageURL(ref string) string {
	if ref == "" {
		ref = models.DefaultImage
	}
	return s.images.URL(ref)
}

// List returns the category's pledges oldest first. With a viewer, each
// pledge carries whether the viewer has completed it.
func (s *PledgeService) List(ctx context.Context, category models.Category, viewer uuid.UUID) ([]models.Pledge, error) {
	pledges, err := s.store.ListPledges(ctx, category)
	if err != nil {
		return nil, err
	}
	if viewer == uuid.Nil {
		return pledges, nil
	}

	recs, err := s.store.ListUserCompletions(ctx, viewer, category, false)
	if err != nil {
		return nil, err
	}
	completed := make(map[uuid.UUID]bool, len(recs))
	for _, r := range recs {
		completed[r.PledgeID] = r.IsCompleted
	}
	for i := range pledges {
		done := completed[pledges[i].ID]
		pledges[i].IsCompleted = &done
	}
	return pledges, nil
}

func (s *PledgeService) Get(ctx context.Context, category models.Category, id uuid.UUID) (*models.Pledge, error) {
	return s.store.GetPledge(ctx, category, id)
}

// Create stores the image first, then the pledge. A failed insert removes
// the image again.
func (s *PledgeService) Create(ctx context.Context, category models.Category, req models.CreatePledgeRequest, image *multipart.FileHeader) (*models.Pledge, error) {
	text := strings.TrimSpace(req.PledgeText)
	if text == "" {
		return nil, models.NewValidationError("pledgeText", "is required")
	}
	points, err := parsePoints(req.Points.String())
	if err != nil {
		return nil, err
	}

	pledge := &models.Pledge{
		Category:   category,
		PledgeText: text,
		Gift:       strings.TrimSpace(req.Gift),
		ImageURL:   models.DefaultImage,
		Points:     points,
	}
	if image != nil {
		ref, err := s.images.Save(ctx, image)
		if err != nil {
			return nil, err
		}
		pledge.ImageURL = ref
	}

	if err := s.store.CreatePledge(ctx, pledge); err != nil {
		s.dropImage(ctx, pledge.ImageURL)
		return nil, err
	}
	return pledge, nil
}

// Update applies a partial update. A new image replaces the old one, which
// is deleted once the pledge row points at the new image.
func (s *PledgeService) Update(ctx context.Context, category models.Category, id uuid.UUID, req models.UpdatePledgeRequest, image *multipart.FileHeader) (*models.Pledge, error) {
	pledge, err := s.store.GetPledge(ctx, category, id)
	if err != nil {
		return nil, err
	}

	var changes models.PledgeChanges
	if req.PledgeText != nil {
		text := strings.TrimSpace(*req.PledgeText)
		if text == "" {
			return nil, models.NewValidationError("pledgeText", "must not be empty")
		}
		changes.PledgeText = &text
	}
	if req.Gift != nil {
		gift := strings.TrimSpace(*req.Gift)
		changes.Gift = &gift
	}
	if req.Points != nil {
		points, err := parsePoints(req.Points.String())
		if err != nil {
			return nil, err
		}
		changes.Points = &points
	}

	oldImage := pledge.ImageURL
	if image != nil {
		ref, err := s.images.Save(ctx, image)
		if err != nil {
			return nil, err
		}
		changes.ImageURL = &ref
	}

	changes.Apply(pledge)
	if err := s.store.UpdatePledge(ctx, pledge); err != nil {
		if changes.ImageURL != nil {
			s.dropImage(ctx, *changes.ImageURL)
		}
		return nil, err
	}

	if changes.ImageURL != nil && oldImage != *changes.ImageURL {
		s.dropImage(ctx, oldImage)
	}
	return pledge, nil
}

// Delete removes the pledge, its completion records and its image. The
// default image is shared and never deleted.
func (s *PledgeService) Delete(ctx context.Context, category models.Category, id uuid.UUID) error {
	pledge, err := s.store.GetPledge(ctx, category, id)
	if err != nil {
		return err
	}
	if err := s.store.DeletePledge(ctx, category, id); err != nil {
		return err
	}
	s.dropImage(ctx, pledge.ImageURL)
	return nil
}

func (s *PledgeService) dropImage(ctx context.Context, ref string) {
	if ref == "" || ref == models.DefaultImage {
		return
	}
	if err := s.images.Delete(ctx, ref); err != nil {
		s.logger.Warn("delete pledge image", zap.String("ref", ref), zap.Error(err))
	}
}

func parsePoints(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	points, err := strconv.Atoi(raw)
	if err != nil {
		return 0, models.NewValidationError("points", "must be a whole number")
	}
	if points < 0 {
		return 0, models.NewValidationError("points", "must be >= 0")
	}
	return points, nil
}

// AwardService manages the per-category award catalogue.
type AwardService struct {
	store store.Awards
}

func NewAwardService(s store.Awards) *AwardService {
	return &AwardService{store: s}
}

func (s *AwardService) List(ctx context.Context, category models.Category) ([]models.Award, error) {
	return s.store.ListAwards(ctx, category)
}

func (s *AwardService) Get(ctx context.Context, category models.Category, id uuid.UUID) (*models.Award, error) {
	return s.store.GetAward(ctx, category, id)
}

func (s *AwardService) Create(ctx context.Context, category models.Category, req models.CreateAwardRequest) (*models.Award, error) {
	award := &models.Award{
		Category:    category,
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Icon:        strings.TrimSpace(req.Icon),
	}
	if err := validateAward(award); err != nil {
		return nil, err
	}
	if err := s.store.CreateAward(ctx, award); err != nil {
		return nil, err
	}
	return award, nil
}

func (s *AwardService) Update(ctx context.Context, category models.Category, id uuid.UUID, req models.UpdateAwardRequest) (*models.Award, error) {
	award, err := s.store.GetAward(ctx, category, id)
	if err != nil {
		return nil, err
	}
	req.Apply(award)
	award.Title = strings.TrimSpace(award.Title)
	award.Description = strings.TrimSpace(award.Description)
	award.Icon = strings.TrimSpace(award.Icon)
	if err := validateAward(award); err != nil {
		return nil, err
	}
	if err := s.store.UpdateAward(ctx, award); err != nil {
		return nil, err
	}
	return award, nil
}

func (s *AwardService) Delete(ctx context.Context, category models.Category, id uuid.UUID) error {
	return s.store.DeleteAward(ctx, category, id)
}

func validateAward(a *models.Award) error {
	if a.Title == "" {
		return models.NewValidationError("title", "is required")
	}
	if a.Description == "" {
		return models.NewValidationError("description", "is required")
	}
	return nil
}
