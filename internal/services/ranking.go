package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/arnold/esg-pledges-api/internal/models"
	"github.com/arnold/esg-pledges-api/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	unknownName  = "Unknown"
	unknownEmail = "N/A"
)

// RankingService builds the cross-category leaderboard from completed
// records. It is recomputed on every call.
type RankingService struct {
	completions store.Completions
	logger      *zap.Logger
}

func NewRankingService(completions store.Completions, logger *zap.Logger) *RankingService {
	return &RankingService{completions: completions, logger: logger}
}

// Compute returns every user with at least one resolvable completion,
// ordered by total descending and then user id ascending.
func (s *RankingService) Compute(ctx context.Context) ([]models.LeaderboardEntry, error) {
	scans := make([][]models.CompletionRecord, len(models.Categories))

	g, gctx := errgroup.WithContext(ctx)
	for i, category := range models.Categories {
		g.Go(func() error {
			recs, err := s.completions.ScanCompleted(gctx, category)
			if err != nil {
				return fmt.Errorf("scan %s completions: %w", category, err)
			}
			scans[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Error("compute rankings", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", models.ErrStoreUnavailable, err)
	}

	byUser := make(map[uuid.UUID]*models.LeaderboardEntry)
	skipped := 0
	for _, recs := range scans {
		for _, r := range recs {
			if r.User == nil || r.Pledge == nil {
				skipped++
				continue
			}

			entry, ok := byUser[r.User.ID]
			if !ok {
				entry = &models.LeaderboardEntry{
					UserID: r.User.ID,
					Name:   fallback(r.User.Name, unknownName),
					Email:  fallback(r.User.Email, unknownEmail),
				}
				byUser[r.User.ID] = entry
			}
			entry.Add(r.Category, r.Points)
		}
	}
	if skipped > 0 {
		s.logger.Debug("rankings skipped unresolved completions", zap.Int("count", skipped))
	}

	entries := make([]models.LeaderboardEntry, 0, len(byUser))
	for _, e := range byUser {
		e.Total = e.E + e.S + e.G
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Total != entries[j].Total {
			return entries[i].Total > entries[j].Total
		}
		return entries[i].UserID.String() < entries[j].UserID.String()
	})
	return entries, nil
}

func fallback(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
