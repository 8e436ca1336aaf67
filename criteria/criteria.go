package criteria

// FilterCriteria describes a listing filter shared by paginated search and
// saved-search matching. Every field is optional; the zero value matches
// every listing.
type FilterCriteria struct {
	// Text is a free-text substring query. Encoded as "q"; "text" is accepted on decode.
	Text *string `json:"q,omitempty"`

	Makes         []string `json:"makes,omitempty"`
	Models        []string `json:"models,omitempty"`
	FuelTypes     []string `json:"fuelTypes,omitempty"`
	Transmissions []string `json:"transmissions,omitempty"`

	PriceMin      *float64 `json:"priceMin,omitempty"`
	PriceMax      *float64 `json:"priceMax,omitempty"`
	YearMin       *int     `json:"yearMin,omitempty"`
	YearMax       *int     `json:"yearMax,omitempty"`
	MileageMin    *int     `json:"mileageMin,omitempty"`
	MileageMax    *int     `json:"mileageMax,omitempty"`
	RangeMin      *int     `json:"rangeMin,omitempty"`
	RangeMax      *int     `json:"rangeMax,omitempty"`
	HorsepowerMin *int     `json:"horsepowerMin,omitempty"`
	HorsepowerMax *int     `json:"horsepowerMax,omitempty"`
	KilowattsMin  *int     `json:"kilowattsMin,omitempty"`
	KilowattsMax  *int     `json:"kilowattsMax,omitempty"`

	HasTowHook        *bool `json:"hasTowHook,omitempty"`
	HasFourWheelDrive *bool `json:"hasFourWheelDrive,omitempty"`

	// RequiredFeatures must all be present on the listing.
	RequiredFeatures []string `json:"requiredFeatures,omitempty"`

	CenterLat *float64 `json:"centerLat,omitempty"`
	CenterLng *float64 `json:"centerLng,omitempty"`
	RadiusKm  *float64 `json:"radiusKm,omitempty"`

	// Extra maps attribute names to an expected value or a list of allowed values.
	Extra map[string]Value `json:"extra,omitempty"`
}

// HasText reports whether the text filter carries a non-blank query.
func (c FilterCriteria) HasText() bool {
	return c.Text != nil && trimmed(*c.Text) != ""
}

// HasGeo reports whether the geo filter is active. A partially specified
// center/radius is inert.
func (c FilterCriteria) HasGeo() bool {
	return c.CenterLat != nil && c.CenterLng != nil && c.RadiusKm != nil
}

// IsEmpty reports whether no field would restrict a result set.
func (c FilterCriteria) IsEmpty() bool {
	return !c.HasText() &&
		len(c.Makes) == 0 && len(c.Models) == 0 &&
		len(c.FuelTypes) == 0 && len(c.Transmissions) == 0 &&
		c.PriceMin == nil && c.PriceMax == nil &&
		c.YearMin == nil && c.YearMax == nil &&
		c.MileageMin == nil && c.MileageMax == nil &&
		c.RangeMin == nil && c.RangeMax == nil &&
		c.HorsepowerMin == nil && c.HorsepowerMax == nil &&
		c.KilowattsMin == nil && c.KilowattsMax == nil &&
		c.HasTowHook == nil && c.HasFourWheelDrive == nil &&
		len(c.RequiredFeatures) == 0 &&
		!c.HasGeo() &&
		len(c.Extra) == 0
}

// Listing is the read-only view of a listing that the in-memory matcher
// evaluates. Features and extra attributes stay in their stored JSON form
// and are decoded lazily.
type Listing struct {
	Make         string
	Model        string
	Variant      string
	Title        string
	Description  string
	FuelType     string
	Transmission string

	PriceDkk        float64
	Year            *int
	MileageKm       *int
	ElectricRangeKm *int
	Horsepower      *int
	Kilowatts       *int

	HasTowHook        *bool
	HasFourWheelDrive *bool

	Latitude  *float64
	Longitude *float64

	FeaturesJSON        string
	ExtraAttributesJSON string
}

// Evaluator evaluates criteria either in memory or as a store query.
type Evaluator interface {
	Matches(c FilterCriteria, l Listing) bool
	ToQuery(c FilterCriteria) QueryFragment
}

// Engine is the default Evaluator.
type Engine struct{}

func (Engine) Matches(c FilterCriteria, l Listing) bool { return Matches(c, l) }

func (Engine) ToQuery(c FilterCriteria) QueryFragment { return ToQuery(c) }
