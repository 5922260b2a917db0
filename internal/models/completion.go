package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CompletionRecord tracks one user's completion of one pledge. Points is the
// pledge's value frozen at the moment of completion.
type CompletionRecord struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	UserID      uuid.UUID  `json:"userId" gorm:"type:uuid;not null;uniqueIndex:idx_completion_user_pledge;index"`
	PledgeID    uuid.UUID  `json:"pledgeId" gorm:"type:uuid;not null;uniqueIndex:idx_completion_user_pledge;index"`
	Category    Category   `json:"pledgeType" gorm:"type:varchar(1);index;not null"`
	IsCompleted bool       `json:"isCompleted" gorm:"not null;default:false;index"`
	Points      int        `json:"points" gorm:"not null;default:0"`
	CompletedAt *time.Time `json:"completedAt"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`

	User   *User   `json:"-" gorm:"foreignKey:UserID"`
	Pledge *Pledge `json:"pledge,omitempty" gorm:"foreignKey:PledgeID"`
}

func (cr *CompletionRecord) BeforeCreate(tx *gorm.DB) error {
	if cr.ID == uuid.Nil {
		cr.ID = uuid.New()
	}
	return nil
}

// CompletedPledge is one row of a user's "completed" list.
type CompletedPledge struct {
	ID          uuid.UUID  `json:"id"`
	IsCompleted bool       `json:"isCompleted"`
	Points      int        `json:"points"`
	CompletedAt *time.Time `json:"completedAt"`
	Pledge      Pledge     `json:"pledge"`
}
