package criteria

import "math"

const (
	earthRadiusKm = 6371.0
	// kmPerDegree approximates one degree of latitude for bounding-box filters.
	kmPerDegree = 111.0
)

// HaversineKm returns the great-circle distance between two coordinates.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLng := toRadians(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// BoundingBox is a lat/lng window around a center point.
type BoundingBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// BoxAround returns the square window of radiusKm/111 degrees on each side
// of the center. It over-selects compared to the exact circle.
func BoxAround(lat, lng, radiusKm float64) BoundingBox {
	delta := radiusKm / kmPerDegree
	return BoundingBox{
		MinLat: lat - delta,
		MaxLat: lat + delta,
		MinLng: lng - delta,
		MaxLng: lng + delta,
	}
}

func (b BoundingBox) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
