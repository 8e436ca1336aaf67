package events

import "github.com/google/uuid"

const TypeSavedSearchMatched = "saved_search.matched"

// SavedSearchMatched is emitted when a newly created listing matches a saved search.
// Changes to this struct should be additive.
type SavedSearchMatched struct {
	Type          string    `json:"type"`
	EventID       uuid.UUID `json:"eventId"`
	UserID        uuid.UUID `json:"userId"`
	SavedSearchID uuid.UUID `json:"savedSearchId"`
	ListingID     uuid.UUID `json:"listingId"`
	Title         string    `json:"title"`
	Body          string    `json:"body"`
}
