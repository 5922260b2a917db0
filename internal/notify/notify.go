// Package notify delivers reward events to email, the in-app inbox, push
// and websocket clients, either in-process or through RabbitMQ.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/arnold/esg-pledges-api/internal/models"
	"github.com/google/uuid"
)

var (
	ErrQueueFull = errors.New("notification queue full")
	ErrClosed    = errors.New("notification dispatcher closed")
)

// RewardEarned is emitted once per completion transition.
type RewardEarned struct {
	UserID      uuid.UUID       `json:"userId"`
	Email       string          `json:"email"`
	Name        string          `json:"name"`
	PledgeID    uuid.UUID       `json:"pledgeId"`
	Category    models.Category `json:"category"`
	PledgeText  string          `json:"pledgeText"`
	Gift        string          `json:"gift"`
	Points      int             `json:"points"`
	CompletedAt time.Time       `json:"completedAt"`
}

// Publisher hands an event off for delivery without waiting for it.
type Publisher interface {
	Publish(ctx context.Context, ev RewardEarned) error
}

// Sink is one delivery channel.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, ev RewardEarned) error
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, RewardEarned) error { return nil }
