package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/arnold/esg-pledges-api/internal/models"
	"github.com/arnold/esg-pledges-api/internal/store"
)

// InboxSink records the reward in the user's in-app notification list.
type InboxSink struct {
	store store.Notifications
}

func NewInboxSink(s store.Notifications) *InboxSink {
	return &InboxSink{store: s}
}

func (s *InboxSink) Name() string { return "inbox" }

func (s *InboxSink) Deliver(ctx context.Context, ev RewardEarned) error {
	meta, err := json.Marshal(map[string]string{
		"category": string(ev.Category),
		"pledgeId": ev.PledgeID.String(),
	})
	if err != nil {
		return fmt.Errorf("marshal notification metadata: %w", err)
	}
	metadata := string(meta)

	return s.store.CreateNotification(ctx, &models.Notification{
		UserID:   ev.UserID,
		Type:     models.NotificationPledgeCompleted,
		Title:    "Reward unlocked: " + ev.Gift,
		Body:     fmt.Sprintf("You completed %q and earned %d points.", ev.PledgeText, ev.Points),
		Metadata: &metadata,
	})
}
