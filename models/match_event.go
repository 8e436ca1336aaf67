package models

import (
	"time"

	"github.com/google/uuid"
)

// MatchEvent records that a saved search matched a newly created listing.
// Sent is flipped by the delivery side once the push has gone out.
type MatchEvent struct {
	ID            uuid.UUID  `json:"id"`
	UserID        uuid.UUID  `json:"userId"`
	SavedSearchID uuid.UUID  `json:"savedSearchId"`
	ListingID     uuid.UUID  `json:"listingId"`
	Title         string     `json:"title"`
	Body          string     `json:"body"`
	Sent          bool       `json:"sent"`
	CreatedAt     time.Time  `json:"createdAt"`
	SentAt        *time.Time `json:"sentAt"`
}
