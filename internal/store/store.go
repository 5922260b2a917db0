// Package store declares the persistence contract shared by the GORM and
// MongoDB backends. Implementations translate driver errors into the
// sentinels in the models package.
package store

import (
	"context"
	"time"

	"github.com/arnold/esg-pledges-api/internal/models"
	"github.com/google/uuid"
)

type Pledges interface {
	CreatePledge(ctx context.Context, p *models.Pledge) error
	GetPledge(ctx context.Context, category models.Category, id uuid.UUID) (*models.Pledge, error)
	// ListPledges returns a category's pledges in insertion order.
	ListPledges(ctx context.Context, category models.Category) ([]models.Pledge, error)
	UpdatePledge(ctx context.Context, p *models.Pledge) error
	// DeletePledge removes the pledge and every completion record pointing at it.
	DeletePledge(ctx context.Context, category models.Category, id uuid.UUID) error
	// PledgeImageRefs lists the image reference of every pledge in every category.
	PledgeImageRefs(ctx context.Context) ([]string, error)
}

type Completions interface {
	FindCompletion(ctx context.Context, userID, pledgeID uuid.UUID) (*models.CompletionRecord, error)
	// CreateCompletion fails with models.ErrConflict when (userID, pledgeID) already exists.
	CreateCompletion(ctx context.Context, rec *models.CompletionRecord) error
	// MarkCompleted flips isCompleted false->true and stores the points
	// snapshot. It reports false when the record was already completed.
	MarkCompleted(ctx context.Context, id uuid.UUID, points int, at time.Time) (bool, error)
	// ListUserCompletions returns the user's records in a category with the
	// pledge resolved (nil when it no longer exists).
	ListUserCompletions(ctx context.Context, userID uuid.UUID, category models.Category, completedOnly bool) ([]models.CompletionRecord, error)
	// ScanCompleted returns every completed record of a category with user
	// and pledge resolved (nil when either no longer exists).
	ScanCompleted(ctx context.Context, category models.Category) ([]models.CompletionRecord, error)
}

type Users interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	SetUserRole(ctx context.Context, email, role string) error
	SetDeviceToken(ctx context.Context, id uuid.UUID, token string) error
}

type Awards interface {
	CreateAward(ctx context.Context, a *models.Award) error
	GetAward(ctx context.Context, category models.Category, id uuid.UUID) (*models.Award, error)
	ListAwards(ctx context.Context, category models.Category) ([]models.Award, error)
	UpdateAward(ctx context.Context, a *models.Award) error
	DeleteAward(ctx context.Context, category models.Category, id uuid.UUID) error
}

type Notifications interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, userID uuid.UUID, page, limit int) (*models.NotificationPage, error)
	MarkNotificationRead(ctx context.Context, userID, id uuid.UUID) error
	MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) error
}

// Store is the full document store used by the server.
type Store interface {
	Pledges
	Completions
	Users
	Awards
	Notifications

	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
