package criteria

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// textColumns is the haystack searched by the query path. Description is not part of it.
const textColumns = "(make || ' ' || model || ' ' || COALESCE(variant, '') || ' ' || COALESCE(title, ''))"

// QueryFragment is a conjunction of SQL predicates over the listings table
// with positional ($n) arguments.
type QueryFragment struct {
	Conditions []string
	Args       []interface{}
}

// Where renders the fragment as a WHERE clause, or "" when it has no conditions.
func (f QueryFragment) Where() string {
	if len(f.Conditions) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(f.Conditions, " AND ")
}

// NextArg is the placeholder index following the fragment's own arguments.
func (f QueryFragment) NextArg() int {
	return len(f.Args) + 1
}

type queryBuilder struct {
	conditions []string
	args       []interface{}
	argID      int
}

func newQueryBuilder() *queryBuilder {
	return &queryBuilder{argID: 1, args: make([]interface{}, 0)}
}

func (qb *queryBuilder) addCondition(condition string, fieldName string, arg interface{}) {
	qb.conditions = append(qb.conditions, fmt.Sprintf(condition, fieldName, qb.argID))
	qb.args = append(qb.args, arg)
	qb.argID++
}

func (qb *queryBuilder) addRaw(condition string) {
	qb.conditions = append(qb.conditions, condition)
}

func (qb *queryBuilder) addSetFilter(fieldName string, values []string) {
	if len(values) > 0 {
		qb.addCondition("%s = ANY($%d)", fieldName, pq.Array(values))
	}
}

func (qb *queryBuilder) addFloatFilter(fieldName string, min, max *float64) {
	if min != nil {
		qb.addCondition("%s >= $%d", fieldName, *min)
	}
	if max != nil {
		qb.addCondition("%s <= $%d", fieldName, *max)
	}
}

func (qb *queryBuilder) addIntFilter(fieldName string, min, max *int) {
	if min != nil {
		qb.addCondition("%s >= $%d", fieldName, *min)
	}
	if max != nil {
		qb.addCondition("%s <= $%d", fieldName, *max)
	}
}

func (qb *queryBuilder) addBoolFilter(fieldName string, want *bool) {
	if want != nil {
		qb.addCondition("%s = $%d", fieldName, *want)
	}
}

func (qb *queryBuilder) build() QueryFragment {
	return QueryFragment{Conditions: qb.conditions, Args: qb.args}
}

// ToQuery translates c into SQL predicates. Absent fields add nothing.
// Set membership is case-sensitive, the text search skips the description,
// the geo filter is the bounding box from BoxAround and extra attributes
// are left to Matches.
func ToQuery(c FilterCriteria) QueryFragment {
	qb := newQueryBuilder()

	if c.HasText() {
		qb.addCondition("strpos(%s, $%d) > 0", textColumns, trimmed(*c.Text))
	}

	qb.addSetFilter("make", c.Makes)
	qb.addSetFilter("model", c.Models)
	qb.addSetFilter("fuel_type", c.FuelTypes)
	qb.addSetFilter("transmission", c.Transmissions)

	qb.addFloatFilter("price_dkk", c.PriceMin, c.PriceMax)
	qb.addIntFilter("year", c.YearMin, c.YearMax)
	qb.addIntFilter("mileage_km", c.MileageMin, c.MileageMax)
	qb.addIntFilter("electric_range_km", c.RangeMin, c.RangeMax)
	qb.addIntFilter("horsepower", c.HorsepowerMin, c.HorsepowerMax)
	qb.addIntFilter("kilowatts", c.KilowattsMin, c.KilowattsMax)

	qb.addBoolFilter("has_tow_hook", c.HasTowHook)
	qb.addBoolFilter("has_four_wheel_drive", c.HasFourWheelDrive)

	for _, feature := range c.RequiredFeatures {
		if trimmed(feature) == "" {
			continue
		}
		qb.addCondition("strpos(%s, $%d) > 0", "features_json", `"`+feature+`"`)
	}

	if c.HasGeo() {
		box := BoxAround(*c.CenterLat, *c.CenterLng, *c.RadiusKm)
		qb.addRaw("latitude IS NOT NULL AND longitude IS NOT NULL")
		qb.addCondition("%s >= $%d", "latitude", box.MinLat)
		qb.addCondition("%s <= $%d", "latitude", box.MaxLat)
		qb.addCondition("%s >= $%d", "longitude", box.MinLng)
		qb.addCondition("%s <= $%d", "longitude", box.MaxLng)
	}

	return qb.build()
}
