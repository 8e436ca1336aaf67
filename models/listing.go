package models

import (
	"encoding/json"
	"time"

	"billister-api/criteria"

	"github.com/google/uuid"
)

// Listing is a vehicle classified ad. Features and extra attributes are
// persisted as JSON text (features_json, extra_attributes_json).
type Listing struct {
	ID           uuid.UUID `json:"id"`
	SellerUserID uuid.UUID `json:"sellerUserId"`

	Make    string  `json:"make"`
	Model   string  `json:"model"`
	Variant *string `json:"variant"`

	Year      *int    `json:"year"`
	MileageKm *int    `json:"mileageKm"`
	PriceDkk  float64 `json:"priceDkk"`

	FuelType        string   `json:"fuelType"`
	IsPlugInHybrid  *bool    `json:"isPlugInHybrid"`
	ElectricRangeKm *int     `json:"electricRangeKm"`
	BatteryKwh      *float64 `json:"batteryKwh"`

	Transmission string  `json:"transmission"`
	BodyType     *string `json:"bodyType"`
	Color        *string `json:"color"`
	Doors        *int    `json:"doors"`
	Seats        *int    `json:"seats"`

	Horsepower   *int     `json:"horsepower"`
	Kilowatts    *int     `json:"kilowatts"`
	EngineLiters *float64 `json:"engineLiters"`
	Cylinders    *int     `json:"cylinders"`

	HasTowHook        *bool `json:"hasTowHook"`
	HasFourWheelDrive *bool `json:"hasFourWheelDrive"`

	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
	Geohash    *string  `json:"-"`
	PostalCode *string  `json:"postalCode"`
	City       *string  `json:"city"`

	Title       *string `json:"title"`
	Description *string `json:"description"`

	FeaturesJSON        string `json:"-"`
	ExtraAttributesJSON string `json:"-"`

	ViewCount     int64 `json:"viewCount"`
	FavoriteCount int64 `json:"favoriteCount"`

	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt"`

	Images []ListingImage `json:"images"`
}

type ListingImage struct {
	ID        uuid.UUID `json:"-"`
	ListingID uuid.UUID `json:"-"`
	URL       string    `json:"url"`
	SortOrder int       `json:"sortOrder"`
	Width     *int      `json:"width"`
	Height    *int      `json:"height"`
}

// ListingDetail is the full listing representation with decoded features
// and attributes.
type ListingDetail struct {
	*Listing
	Features        []string                  `json:"features"`
	ExtraAttributes map[string]criteria.Value `json:"extraAttributes"`
}

// ListingSummary is the row shape returned by search and "mine".
type ListingSummary struct {
	ID              uuid.UUID      `json:"id"`
	Make            string         `json:"make"`
	Model           string         `json:"model"`
	Variant         *string        `json:"variant"`
	PriceDkk        float64        `json:"priceDkk"`
	FuelType        string         `json:"fuelType"`
	Transmission    string         `json:"transmission"`
	Year            *int           `json:"year"`
	MileageKm       *int           `json:"mileageKm"`
	ElectricRangeKm *int           `json:"electricRangeKm"`
	Latitude        *float64       `json:"latitude"`
	Longitude       *float64       `json:"longitude"`
	City            *string        `json:"city"`
	ViewCount       int64          `json:"viewCount"`
	FavoriteCount   int64          `json:"favoriteCount"`
	CreatedAt       time.Time      `json:"createdAt"`
	Images          []ListingImage `json:"images"`
}

// ListingComparison is the side-by-side projection used by compare.
type ListingComparison struct {
	ID                uuid.UUID `json:"id"`
	Make              string    `json:"make"`
	Model             string    `json:"model"`
	Variant           *string   `json:"variant"`
	PriceDkk          float64   `json:"priceDkk"`
	FuelType          string    `json:"fuelType"`
	Transmission      string    `json:"transmission"`
	Year              *int      `json:"year"`
	MileageKm         *int      `json:"mileageKm"`
	ElectricRangeKm   *int      `json:"electricRangeKm"`
	BatteryKwh        *float64  `json:"batteryKwh"`
	Horsepower        *int      `json:"horsepower"`
	Kilowatts         *int      `json:"kilowatts"`
	HasTowHook        *bool     `json:"hasTowHook"`
	HasFourWheelDrive *bool     `json:"hasFourWheelDrive"`
}

// NearbyListing is the map pin projection.
type NearbyListing struct {
	ID        uuid.UUID `json:"id"`
	Make      string    `json:"make"`
	Model     string    `json:"model"`
	PriceDkk  float64   `json:"priceDkk"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
}

// ListingUpdate carries the fields a seller may change after creation.
// Nil means unchanged; a non-nil Images replaces the whole image set.
type ListingUpdate struct {
	PriceDkk            *float64
	MileageKm           *int
	Title               *string
	Description         *string
	FeaturesJSON        *string
	ExtraAttributesJSON *string
	Images              []ListingImage
}

// CriteriaView projects the listing onto the fields the criteria matcher reads.
func (l *Listing) CriteriaView() criteria.Listing {
	return criteria.Listing{
		Make:                l.Make,
		Model:               l.Model,
		Variant:             deref(l.Variant),
		Title:               deref(l.Title),
		Description:         deref(l.Description),
		FuelType:            l.FuelType,
		Transmission:        l.Transmission,
		PriceDkk:            l.PriceDkk,
		Year:                l.Year,
		MileageKm:           l.MileageKm,
		ElectricRangeKm:     l.ElectricRangeKm,
		Horsepower:          l.Horsepower,
		Kilowatts:           l.Kilowatts,
		HasTowHook:          l.HasTowHook,
		HasFourWheelDrive:   l.HasFourWheelDrive,
		Latitude:            l.Latitude,
		Longitude:           l.Longitude,
		FeaturesJSON:        l.FeaturesJSON,
		ExtraAttributesJSON: l.ExtraAttributesJSON,
	}
}

// Detail decodes the stored feature and attribute blobs, failing open to empty collections.
func (l *Listing) Detail() ListingDetail {
	return ListingDetail{
		Listing:         l,
		Features:        criteria.DecodeFeatures(l.FeaturesJSON),
		ExtraAttributes: criteria.DecodeAttributes(l.ExtraAttributesJSON),
	}
}

// EncodeFeatures serializes a feature list for storage; nil becomes "[]".
func EncodeFeatures(features []string) string {
	if features == nil {
		features = []string{}
	}
	b, _ := json.Marshal(features)
	return string(b)
}

// EncodeAttributes serializes an attribute map for storage; nil becomes "{}".
func EncodeAttributes(attrs map[string]json.RawMessage) (string, error) {
	if attrs == nil {
		return "{}", nil
	}
	b, err := json.Marshal(attrs)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
