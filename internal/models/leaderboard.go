package models

import "github.com/google/uuid"

// LeaderboardEntry is one user's aggregated ESG points.
type LeaderboardEntry struct {
	UserID uuid.UUID `json:"userId"`
	Name   string    `json:"name"`
	Email  string    `json:"email"`
	E      int       `json:"e"`
	S      int       `json:"s"`
	G      int       `json:"g"`
	Total  int       `json:"total"`
}

// Add credits points to the column matching category.
func (l *LeaderboardEntry) Add(category Category, points int) {
	switch category {
	case CategoryE:
		l.E += points
	case CategoryS:
		l.S += points
	case CategoryG:
		l.G += points
	}
}
