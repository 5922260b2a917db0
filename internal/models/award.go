package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Award is a per-category badge. It is descriptive only and never tied to
// completion records.
type Award struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Category    Category  `json:"category" gorm:"type:varchar(1);index;not null"`
	Title       string    `json:"title" gorm:"not null"`
	Description string    `json:"description" gorm:"not null"`
	Icon        string    `json:"icon" gorm:"not null;default:''"`
	CreatedAt   time.Time `json:"createdAt" gorm:"index"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (a *Award) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// Award DTOs
type CreateAwardRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type UpdateAwardRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Icon        *string `json:"icon"`
}

func (r UpdateAwardRequest) Apply(a *Award) {
	if r.Title != nil {
		a.Title = *r.Title
	}
	if r.Description != nil {
		a.Description = *r.Description
	}
	if r.Icon != nil {
		a.Icon = *r.Icon
	}
}
