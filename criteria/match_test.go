package criteria

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func tesla() Listing {
	return Listing{
		Make:                "Tesla",
		Model:               "Model 3",
		Variant:             "Long Range",
		Title:               "Tesla Model 3 LR",
		Description:         "Velholdt med panoramatag",
		FuelType:            "el",
		Transmission:        "automat",
		PriceDkk:            319900,
		Year:                ptr(2021),
		MileageKm:           ptr(45000),
		ElectricRangeKm:     ptr(560),
		Horsepower:          ptr(440),
		Kilowatts:           ptr(324),
		HasTowHook:          ptr(true),
		HasFourWheelDrive:   ptr(true),
		Latitude:            ptr(55.6761),
		Longitude:           ptr(12.5683),
		FeaturesJSON:        `["navigation","Heated_Seats","autopilot"]`,
		ExtraAttributesJSON: `{"color":"Midnight Silver","doors":4,"isofix":true,"seats":5,"misc":null}`,
	}
}

func TestEmptyCriteriaMatchesEverything(t *testing.T) {
	assert.True(t, Matches(FilterCriteria{}, tesla()))
	assert.True(t, Matches(FilterCriteria{}, Listing{}))
	assert.True(t, Matches(FilterCriteria{Makes: []string{}, Text: ptr("   ")}, Listing{}))
}

func TestScenarioTeslaUnderPriceCap(t *testing.T) {
	c := FilterCriteria{Makes: []string{"Tesla"}, PriceMax: ptr(350000.0)}

	assert.True(t, Matches(c, Listing{Make: "Tesla", Model: "Model 3", PriceDkk: 319900}))
	assert.False(t, Matches(c, Listing{Make: "Tesla", PriceDkk: 400000}))
}

func TestTextMatchesDescriptionIgnoringCase(t *testing.T) {
	l := tesla()
	assert.True(t, Matches(FilterCriteria{Text: ptr("long range")}, l))
	assert.True(t, Matches(FilterCriteria{Text: ptr("  PANORAMATAG ")}, l))
	assert.False(t, Matches(FilterCriteria{Text: ptr("diesel")}, l))
}

func TestSetsIgnoreCase(t *testing.T) {
	l := tesla()
	assert.True(t, Matches(FilterCriteria{Makes: []string{"bmw", "TESLA"}}, l))
	assert.True(t, Matches(FilterCriteria{FuelTypes: []string{"EL"}, Transmissions: []string{"Automat"}}, l))
	assert.False(t, Matches(FilterCriteria{Models: []string{"Model Y"}}, l))
}

func TestRangesAreInclusive(t *testing.T) {
	l := tesla()
	assert.True(t, Matches(FilterCriteria{MileageMax: ptr(45000)}, l))
	assert.True(t, Matches(FilterCriteria{MileageMin: ptr(45000)}, l))

	l.MileageKm = ptr(45001)
	assert.False(t, Matches(FilterCriteria{MileageMax: ptr(45000)}, l))

	assert.True(t, Matches(FilterCriteria{PriceMin: ptr(319900.0), PriceMax: ptr(319900.0)}, l))
	assert.True(t, Matches(FilterCriteria{YearMin: ptr(2021), YearMax: ptr(2021)}, l))
	assert.False(t, Matches(FilterCriteria{HorsepowerMin: ptr(441)}, l))
	assert.False(t, Matches(FilterCriteria{KilowattsMax: ptr(323)}, l))
}

func TestRangesRejectMissingValues(t *testing.T) {
	l := tesla()
	l.MileageKm = nil
	l.ElectricRangeKm = nil

	assert.False(t, Matches(FilterCriteria{MileageMax: ptr(1000000)}, l))
	assert.False(t, Matches(FilterCriteria{RangeMin: ptr(0)}, l))
	assert.True(t, Matches(FilterCriteria{YearMin: ptr(2000)}, l))
}

func TestFlags(t *testing.T) {
	l := tesla()
	assert.True(t, Matches(FilterCriteria{HasTowHook: ptr(true)}, l))
	assert.False(t, Matches(FilterCriteria{HasFourWheelDrive: ptr(false)}, l))

	l.HasTowHook = nil
	assert.False(t, Matches(FilterCriteria{HasTowHook: ptr(true)}, l))
	assert.False(t, Matches(FilterCriteria{HasTowHook: ptr(false)}, l))
}

func TestRequiredFeatures(t *testing.T) {
	l := tesla()
	assert.True(t, Matches(FilterCriteria{RequiredFeatures: []string{"NAVIGATION", "heated_seats"}}, l))
	assert.False(t, Matches(FilterCriteria{RequiredFeatures: []string{"navigation", "towbar"}}, l))
}

func TestRequiredFeaturesFailOpenOnCorruptBlob(t *testing.T) {
	l := tesla()
	l.FeaturesJSON = `{not json`
	assert.False(t, Matches(FilterCriteria{RequiredFeatures: []string{"navigation"}}, l))
	assert.True(t, Matches(FilterCriteria{Makes: []string{"Tesla"}}, l))
}

func TestGeoExactCircle(t *testing.T) {
	l := tesla()
	centerLat, centerLng := 55.4038, 10.4024
	distance := HaversineKm(centerLat, centerLng, *l.Latitude, *l.Longitude)

	atBoundary := FilterCriteria{CenterLat: ptr(centerLat), CenterLng: ptr(centerLng), RadiusKm: ptr(distance)}
	assert.True(t, Matches(atBoundary, l))

	shortRadius := FilterCriteria{CenterLat: ptr(centerLat), CenterLng: ptr(centerLng), RadiusKm: ptr(distance - 1e-6)}
	assert.False(t, Matches(shortRadius, l))
}

func TestGeoRequiresCoordinates(t *testing.T) {
	l := tesla()
	l.Longitude = nil
	c := FilterCriteria{CenterLat: ptr(55.6761), CenterLng: ptr(12.5683), RadiusKm: ptr(1000.0)}
	assert.False(t, Matches(c, l))
}

func TestPartialGeoIsInert(t *testing.T) {
	l := tesla()
	l.Latitude = nil
	assert.True(t, Matches(FilterCriteria{CenterLat: ptr(0.0), CenterLng: ptr(0.0)}, l))
	assert.True(t, Matches(FilterCriteria{RadiusKm: ptr(1.0)}, l))
}

func TestExtraTypeAwareEquality(t *testing.T) {
	l := tesla()
	cases := []struct {
		name  string
		extra map[string]Value
		want  bool
	}{
		{"string ignores case", map[string]Value{"color": String("midnight silver")}, true},
		{"number exact", map[string]Value{"doors": Number(4)}, true},
		{"number mismatch", map[string]Value{"doors": Number(5)}, false},
		{"bool", map[string]Value{"isofix": Bool(true)}, true},
		{"bool mismatch", map[string]Value{"isofix": Bool(false)}, false},
		{"list any of", map[string]Value{"seats": List(Number(2), Number(5))}, true},
		{"list none", map[string]Value{"seats": List(Number(2), Number(7))}, false},
		{"missing key", map[string]Value{"sunroof": Bool(true)}, false},
		{"kind mismatch", map[string]Value{"doors": String("4")}, false},
		{"raw null", map[string]Value{"misc": mustValue(t, `null`)}, true},
		{"all keys", map[string]Value{"color": String("MIDNIGHT SILVER"), "doors": Number(4)}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Matches(FilterCriteria{Extra: tc.extra}, l))
		})
	}
}

func TestExtraNumbersCompareByValue(t *testing.T) {
	l := tesla()
	l.ExtraAttributesJSON = `{"engine":2.0}`
	assert.True(t, Matches(FilterCriteria{Extra: map[string]Value{"engine": Number(2)}}, l))
	assert.True(t, Matches(FilterCriteria{Extra: map[string]Value{"engine": mustValue(t, `2.00`)}}, l))
}

func TestExtraFailOpenOnCorruptBlob(t *testing.T) {
	l := tesla()
	l.ExtraAttributesJSON = `[1,2`
	assert.False(t, Matches(FilterCriteria{Extra: map[string]Value{"doors": Number(4)}}, l))
	assert.True(t, Matches(FilterCriteria{}, l))
}

func TestEngineMatchesAndQueryDiverge(t *testing.T) {
	var ev Evaluator = Engine{}
	l := tesla()

	lower := FilterCriteria{Makes: []string{"tesla"}}
	assert.True(t, ev.Matches(lower, l))
	q := ev.ToQuery(lower)
	assert.Equal(t, []string{"make = ANY($1)"}, q.Conditions)

	descOnly := FilterCriteria{Text: ptr("panoramatag")}
	assert.True(t, ev.Matches(descOnly, l))
	assert.NotContains(t, ev.ToQuery(descOnly).Conditions[0], "description")

	// Inside the bounding box but outside the circle: the corner of the box.
	center := FilterCriteria{CenterLat: ptr(55.0), CenterLng: ptr(12.0), RadiusKm: ptr(50.0)}
	box := BoxAround(55.0, 12.0, 50.0)
	corner := Listing{Latitude: ptr(box.MaxLat - 0.001), Longitude: ptr(box.MaxLng - 0.001)}
	assert.True(t, box.Contains(*corner.Latitude, *corner.Longitude))
	assert.False(t, ev.Matches(center, corner))
}

func mustValue(t *testing.T, raw string) Value {
	t.Helper()
	var v Value
	if err := v.UnmarshalJSON([]byte(raw)); err != nil {
		t.Fatalf("unmarshal %q: %v", raw, err)
	}
	return v
}
