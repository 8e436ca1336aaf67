package models

import "github.com/google/uuid"

type VehicleMake struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type VehicleModel struct {
	ID     uuid.UUID `json:"id"`
	MakeID uuid.UUID `json:"makeId"`
	Name   string    `json:"name"`
}

// PlateLookup is what the vehicle register knows about a license plate.
type PlateLookup struct {
	LicensePlate string  `json:"licensePlate"`
	Make         *string `json:"make"`
	Model        *string `json:"model"`
	Year         *int    `json:"year"`
	FuelType     *string `json:"fuelType"`
	Kilowatts    *int    `json:"kilowatts"`
	Horsepower   *int    `json:"horsepower"`
}
