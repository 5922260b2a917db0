package mongostore

import (
	"time"

	"github.com/arnold/esg-pledges-api/internal/models"
	"github.com/google/uuid"
)

// Documents use string ids so collections stay readable from the mongo shell.

type pledgeDoc struct {
	ID         string    `bson:"_id"`
	Category   string    `bson:"category"`
	PledgeText string    `bson:"pledge_text"`
	Gift       string    `bson:"gift"`
	ImageURL   string    `bson:"image_url"`
	Points     int       `bson:"points"`
	CreatedAt  time.Time `bson:"created_at"`
	UpdatedAt  time.Time `bson:"updated_at"`
}

func newPledgeDoc(p *models.Pledge) pledgeDoc {
	return pledgeDoc{
		ID:         p.ID.String(),
		Category:   string(p.Category),
		PledgeText: p.PledgeText,
		Gift:       p.Gift,
		ImageURL:   p.ImageURL,
		Points:     p.Points,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

func (d pledgeDoc) model() models.Pledge {
	return models.Pledge{
		ID:         parseID(d.ID),
		Category:   models.Category(d.Category),
		PledgeText: d.PledgeText,
		Gift:       d.Gift,
		ImageURL:   d.ImageURL,
		Points:     d.Points,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

type completionDoc struct {
	ID          string     `bson:"_id"`
	UserID      string     `bson:"user_id"`
	PledgeID    string     `bson:"pledge_id"`
	Category    string     `bson:"category"`
	IsCompleted bool       `bson:"is_completed"`
	Points      int        `bson:"points"`
	CompletedAt *time.Time `bson:"completed_at,omitempty"`
	CreatedAt   time.Time  `bson:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at"`
}

func newCompletionDoc(r *models.CompletionRecord) completionDoc {
	return completionDoc{
		ID:          r.ID.String(),
		UserID:      r.UserID.String(),
		PledgeID:    r.PledgeID.String(),
		Category:    string(r.Category),
		IsCompleted: r.IsCompleted,
		Points:      r.Points,
		CompletedAt: r.CompletedAt,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func (d completionDoc) model() models.CompletionRecord {
	return models.CompletionRecord{
		ID:          parseID(d.ID),
		UserID:      parseID(d.UserID),
		PledgeID:    parseID(d.PledgeID),
		Category:    models.Category(d.Category),
		IsCompleted: d.IsCompleted,
		Points:      d.Points,
		CompletedAt: d.CompletedAt,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

type userDoc struct {
	ID           string    `bson:"_id"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"password_hash"`
	Name         string    `bson:"name"`
	Role         string    `bson:"role"`
	DeviceToken  string    `bson:"fcm_token,omitempty"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func newUserDoc(u *models.User) userDoc {
	return userDoc{
		ID:           u.ID.String(),
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Name:         u.Name,
		Role:         u.Role,
		DeviceToken:  u.DeviceToken,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (d userDoc) model() models.User {
	return models.User{
		ID:           parseID(d.ID),
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Name:         d.Name,
		Role:         d.Role,
		DeviceToken:  d.DeviceToken,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

type awardDoc struct {
	ID          string    `bson:"_id"`
	Category    string    `bson:"category"`
	Title       string    `bson:"title"`
	Description string    `bson:"description"`
	Icon        string    `bson:"icon"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func newAwardDoc(a *models.Award) awardDoc {
	return awardDoc{
		ID:          a.ID.String(),
		Category:    string(a.Category),
		Title:       a.Title,
		Description: a.Description,
		Icon:        a.Icon,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func (d awardDoc) model() models.Award {
	return models.Award{
		ID:          parseID(d.ID),
		Category:    models.Category(d.Category),
		Title:       d.Title,
		Description: d.Description,
		Icon:        d.Icon,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

type notificationDoc struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	Type      string    `bson:"type"`
	Title     string    `bson:"title"`
	Body      string    `bson:"body"`
	Read      bool      `bson:"read"`
	Metadata  *string   `bson:"metadata,omitempty"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func newNotificationDoc(n *models.Notification) notificationDoc {
	return notificationDoc{
		ID:        n.ID.String(),
		UserID:    n.UserID.String(),
		Type:      n.Type,
		Title:     n.Title,
		Body:      n.Body,
		Read:      n.Read,
		Metadata:  n.Metadata,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}

func (d notificationDoc) model() models.Notification {
	return models.Notification{
		ID:        parseID(d.ID),
		UserID:    parseID(d.UserID),
		Type:      d.Type,
		Title:     d.Title,
		Body:      d.Body,
		Read:      d.Read,
		Metadata:  d.Metadata,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func parseID(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}
