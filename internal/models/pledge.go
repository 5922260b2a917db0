package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultImage is stored on pledges created without an upload.
const DefaultImage = "/uploads/default.jpg"

type Pledge struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Category   Category  `json:"category" gorm:"type:varchar(1);index;not null"`
	PledgeText string    `json:"pledgeText" gorm:"not null"`
	Gift       string    `json:"gift" gorm:"not null;default:''"`
	ImageURL   string    `json:"imageUrl" gorm:"not null;default:'/uploads/default.jpg'"`
	Points     int       `json:"points" gorm:"not null;default:0"`
	CreatedAt  time.Time `json:"createdAt" gorm:"index"`
	UpdatedAt  time.Time `json:"updatedAt"`

	// Viewer state, filled by list endpoints when a user is signed in.
	IsCompleted *bool `json:"isCompleted,omitempty" gorm:"-"`
}

func (p *Pledge) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Pledge DTOs. Points arrive as strings from multipart forms and as numbers
// from JSON bodies.
type CreatePledgeRequest struct {
	PledgeText string      `json:"pledgeText" form:"pledgeText"`
	Gift       string      `json:"gift" form:"gift"`
	Points     json.Number `json:"points" form:"points"`
}

type UpdatePledgeRequest struct {
	PledgeText *string      `json:"pledgeText" form:"pledgeText"`
	Gift       *string      `json:"gift" form:"gift"`
	Points     *json.Number `json:"points" form:"points"`
}

// PledgeChanges is the validated form of UpdatePledgeRequest.
type PledgeChanges struct {
	PledgeText *string
	Gift       *string
	Points     *int
	ImageURL   *string
}

func (c PledgeChanges) Apply(p *Pledge) {
	if c.PledgeText != nil {
		p.PledgeText = *c.PledgeText
	}
	if c.Gift != nil {
		p.Gift = *c.Gift
	}
	if c.Points != nil {
		p.Points = *c.Points
	}
	if c.ImageURL != nil {
		p.ImageURL = *c.ImageURL
	}
}
