package criteria

import (
	"encoding/json"
	"strings"

	"golang.org/x/text/cases"
)

// Matches reports whether l satisfies every present field of c. It stops at
// the first failing field.
//
// Compared to ToQuery, set membership ignores case, text search also covers
// the description, and the geo filter uses the exact haversine circle.
func Matches(c FilterCriteria, l Listing) bool {
	if c.HasText() && !matchesText(l, trimmed(*c.Text)) {
		return false
	}

	if !inSet(c.Makes, l.Make) || !inSet(c.Models, l.Model) {
		return false
	}
	if !inSet(c.FuelTypes, l.FuelType) || !inSet(c.Transmissions, l.Transmission) {
		return false
	}

	if !inRange(&l.PriceDkk, c.PriceMin, c.PriceMax) {
		return false
	}
	if !inRange(l.Year, c.YearMin, c.YearMax) ||
		!inRange(l.MileageKm, c.MileageMin, c.MileageMax) ||
		!inRange(l.ElectricRangeKm, c.RangeMin, c.RangeMax) ||
		!inRange(l.Horsepower, c.HorsepowerMin, c.HorsepowerMax) ||
		!inRange(l.Kilowatts, c.KilowattsMin, c.KilowattsMax) {
		return false
	}

	if !flagEquals(l.HasTowHook, c.HasTowHook) || !flagEquals(l.HasFourWheelDrive, c.HasFourWheelDrive) {
		return false
	}

	if len(c.RequiredFeatures) > 0 {
		features := decodeFeatures(l.FeaturesJSON)
		for _, required := range c.RequiredFeatures {
			if !containsFold(features, required) {
				return false
			}
		}
	}

	if c.HasGeo() {
		if l.Latitude == nil || l.Longitude == nil {
			return false
		}
		if HaversineKm(*c.CenterLat, *c.CenterLng, *l.Latitude, *l.Longitude) > *c.RadiusKm {
			return false
		}
	}

	if len(c.Extra) > 0 {
		attrs := decodeAttributes(l.ExtraAttributesJSON)
		for key, expected := range c.Extra {
			actual, ok := attrs[key]
			if !ok || !expected.Matches(actual) {
				return false
			}
		}
	}

	return true
}

func matchesText(l Listing, needle string) bool {
	n := fold(needle)
	for _, field := range []string{l.Make, l.Model, l.Variant, l.Title, l.Description} {
		if strings.Contains(fold(field), n) {
			return true
		}
	}
	return false
}

// inSet treats an empty set as absent.
func inSet(set []string, value string) bool {
	if len(set) == 0 {
		return true
	}
	return containsFold(set, value)
}

// inRange fails whenever a bound is present and the value is missing.
func inRange[T int | float64](value, min, max *T) bool {
	if min == nil && max == nil {
		return true
	}
	if value == nil {
		return false
	}
	if min != nil && *value < *min {
		return false
	}
	if max != nil && *value > *max {
		return false
	}
	return true
}

func flagEquals(value, want *bool) bool {
	if want == nil {
		return true
	}
	return value != nil && *value == *want
}

func containsFold(list []string, value string) bool {
	for _, item := range list {
		if equalFold(item, value) {
			return true
		}
	}
	return false
}

func equalFold(a, b string) bool {
	return fold(a) == fold(b)
}

// fold builds a fresh Caser per call; Casers are stateful.
func fold(s string) string {
	return cases.Fold().String(s)
}

// decodeFeatures returns an empty list for a blank or malformed blob.
func decodeFeatures(raw string) []string {
	var features []string
	if err := json.Unmarshal([]byte(raw), &features); err != nil {
		return nil
	}
	return features
}

// decodeAttributes returns an empty map for a blank or malformed blob.
func decodeAttributes(raw string) map[string]Value {
	var attrs map[string]Value
	if err := json.Unmarshal([]byte(raw), &attrs); err != nil {
		return nil
	}
	return attrs
}

// DecodeFeatures exposes the fail-open feature decoding to callers that render listings.
func DecodeFeatures(raw string) []string {
	features := decodeFeatures(raw)
	if features == nil {
		return []string{}
	}
	return features
}

// DecodeAttributes exposes the fail-open attribute decoding to callers that render listings.
func DecodeAttributes(raw string) map[string]Value {
	attrs := decodeAttributes(raw)
	if attrs == nil {
		return map[string]Value{}
	}
	return attrs
}
