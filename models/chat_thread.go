package models

import (
	"time"

	"github.com/google/uuid"
)

// ChatThread points at a conversation kept in the external realtime store.
type ChatThread struct {
	ID         uuid.UUID `json:"id"`
	ListingID  uuid.UUID `json:"listingId"`
	BuyerID    uuid.UUID `json:"buyerId"`
	SellerID   uuid.UUID `json:"sellerId"`
	ThreadPath string    `json:"firebaseThreadPath"`
	CreatedAt  time.Time `json:"createdAt"`
}
