package notify

import (
	"context"
	"fmt"
	"strconv"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/arnold/esg-pledges-api/internal/store"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// PushSink sends a Firebase Cloud Messaging notification to the user's
// registered device.
type PushSink struct {
	client *messaging.Client
	users  store.Users
}

// NewPushSink returns a disabled sink when no service account is configured
// or Firebase cannot be initialized.
func NewPushSink(ctx context.Context, serviceAccountPath string, users store.Users, logger *zap.Logger) *PushSink {
	sink := &PushSink{users: users}
	if serviceAccountPath == "" {
		logger.Info("FCM: no service account configured, push notifications disabled")
		return sink
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(serviceAccountPath))
	if err != nil {
		logger.Warn("FCM: failed to initialize Firebase app", zap.Error(err))
		return sink
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		logger.Warn("FCM: failed to get messaging client", zap.Error(err))
		return sink
	}

	sink.client = client
	logger.Info("FCM: push notifications enabled")
	return sink
}

func (p *PushSink) Enabled() bool { return p.client != nil }

func (p *PushSink) Name() string { return "push" }

func (p *PushSink) Deliver(ctx context.Context, ev RewardEarned) error {
	if p.client == nil {
		return nil
	}

	user, err := p.users.GetUser(ctx, ev.UserID)
	if err != nil {
		return fmt.Errorf("load device token: %w", err)
	}
	if user.DeviceToken == "" {
		return nil
	}

	_, err = p.client.Send(ctx, &messaging.Message{
		Token: user.DeviceToken,
		Notification: &messaging.Notification{
			Title: "Reward unlocked!",
			Body:  fmt.Sprintf("You earned %d points and unlocked %s.", ev.Points, ev.Gift),
		},
		Data: map[string]string{
			"type":     "pledge_completed",
			"category": string(ev.Category),
			"pledgeId": ev.PledgeID.String(),
			"points":   strconv.Itoa(ev.Points),
		},
	})
	if err != nil {
		return fmt.Errorf("send push to user %s: %w", ev.UserID, err)
	}
	return nil
}
