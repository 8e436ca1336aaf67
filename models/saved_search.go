package models

import (
	"time"

	"github.com/google/uuid"
)

// SavedSearch stores a user's filter criteria in canonical encoded form.
type SavedSearch struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"-"`
	Name           string     `json:"name"`
	CriteriaJSON   string     `json:"criteriaJson"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      *time.Time `json:"updatedAt"`
	LastNotifiedAt *time.Time `json:"lastNotifiedAt"`
}
