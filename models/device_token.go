package models

import (
	"time"

	"github.com/google/uuid"
)

// DeviceToken is a push token; one per (user, platform).
type DeviceToken struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	Platform  string    `json:"platform"`
	Token     string    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}
