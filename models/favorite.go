package models

import (
	"time"

	"github.com/google/uuid"
)

type FavoriteListing struct {
	ID           uuid.UUID `json:"id"`
	Make         string    `json:"make"`
	Model        string    `json:"model"`
	Variant      *string   `json:"variant"`
	PriceDkk     float64   `json:"priceDkk"`
	FuelType     string    `json:"fuelType"`
	Transmission string    `json:"transmission"`
	Year         *int      `json:"year"`
	MileageKm    *int      `json:"mileageKm"`
	CreatedAt    time.Time `json:"createdAt"`
	FavoritedAt  time.Time `json:"favoritedAt"`
}
