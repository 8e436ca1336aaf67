package criteria

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestDecodeCaseInsensitiveKeys(t *testing.T) {
	c, ok := DecodeString(`{"MAKES":["Tesla"],"PriceMax":350000,"hasTowHook":true}`)
	require.True(t, ok)
	assert.Equal(t, []string{"Tesla"}, c.Makes)
	require.NotNil(t, c.PriceMax)
	assert.Equal(t, 350000.0, *c.PriceMax)
	require.NotNil(t, c.HasTowHook)
	assert.True(t, *c.HasTowHook)
}

func TestDecodeIgnoresUnknownFields(t *testing.T) {
	c, ok := DecodeString(`{"colour":"red","yearMin":2018}`)
	require.True(t, ok)
	require.NotNil(t, c.YearMin)
	assert.Equal(t, 2018, *c.YearMin)
}

func TestDecodeTextAlias(t *testing.T) {
	c, ok := DecodeString(`{"text":"model 3"}`)
	require.True(t, ok)
	require.NotNil(t, c.Text)
	assert.Equal(t, "model 3", *c.Text)

	c, ok = DecodeString(`{"q":"golf","text":"polo"}`)
	require.True(t, ok)
	assert.Equal(t, "golf", *c.Text)
}

func TestDecodeRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"empty":          ``,
		"whitespace":     "  \n\t",
		"not json":       `{makes: [}`,
		"array":          `["Tesla"]`,
		"string":         `"Tesla"`,
		"number":         `42`,
		"wrong set type": `{"makes":"Tesla"}`,
		"wrong int type": `{"yearMin":"2018"}`,
		"fractional int": `{"yearMin":2018.5}`,
		"wrong bool":     `{"hasTowHook":"yes"}`,
		"wrong extra":    `{"extra":["a"]}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, ok := DecodeString(raw)
			assert.False(t, ok)
		})
	}
}

func TestDecodeNullIsIdentity(t *testing.T) {
	c, ok := DecodeString(`null`)
	require.True(t, ok)
	assert.True(t, c.IsEmpty())
}

func TestDecodeExtraValues(t *testing.T) {
	c, ok := DecodeString(`{"extra":{"color":"Blue","doors":5,"isofix":true,"seats":[5,7],"misc":{"a":1},"none":null}}`)
	require.True(t, ok)
	require.Len(t, c.Extra, 6)
	assert.Equal(t, KindString, c.Extra["color"].Kind())
	assert.Equal(t, KindNumber, c.Extra["doors"].Kind())
	assert.Equal(t, KindBool, c.Extra["isofix"].Kind())
	assert.Equal(t, KindList, c.Extra["seats"].Kind())
	assert.Len(t, c.Extra["seats"].Items(), 2)
	assert.Equal(t, KindRaw, c.Extra["misc"].Kind())
	assert.Equal(t, KindRaw, c.Extra["none"].Kind())
}

func TestEncodeIsCanonical(t *testing.T) {
	a, ok := DecodeString(`{"priceMax":350000,"makes":["Tesla"],"extra":{"b":1,"a":"x"}}`)
	require.True(t, ok)
	b, ok := DecodeString(`{ "extra": {"a": "x", "b": 1}, "MAKES": ["Tesla"], "priceMAX": 350000 }`)
	require.True(t, ok)

	assert.Equal(t, Encode(a), Encode(b))
	assert.Equal(t, `{"makes":["Tesla"],"priceMax":350000,"extra":{"a":"x","b":1}}`, EncodeString(a))
}

func TestEncodeOmitsAbsentFields(t *testing.T) {
	assert.Equal(t, `{}`, EncodeString(FilterCriteria{}))
	assert.Equal(t, `{"hasTowHook":false}`, EncodeString(FilterCriteria{HasTowHook: ptr(false)}))
}

func TestRoundTrip(t *testing.T) {
	c := FilterCriteria{
		Text:              ptr("golf"),
		Makes:             []string{"VW", "Audi"},
		Models:            []string{"Golf"},
		FuelTypes:         []string{"diesel"},
		Transmissions:     []string{"automat"},
		PriceMin:          ptr(10000.5),
		PriceMax:          ptr(250000.0),
		YearMin:           ptr(2015),
		YearMax:           ptr(2022),
		MileageMin:        ptr(0),
		MileageMax:        ptr(150000),
		RangeMin:          ptr(300),
		RangeMax:          ptr(600),
		HorsepowerMin:     ptr(100),
		HorsepowerMax:     ptr(300),
		KilowattsMin:      ptr(75),
		KilowattsMax:      ptr(220),
		HasTowHook:        ptr(true),
		HasFourWheelDrive: ptr(false),
		RequiredFeatures:  []string{"navigation", "leather"},
		CenterLat:         ptr(55.6761),
		CenterLng:         ptr(12.5683),
		RadiusKm:          ptr(25.0),
		Extra: map[string]Value{
			"color":  String("blue"),
			"doors":  Number(5),
			"isofix": Bool(true),
			"seats":  List(Number(5), Number(7)),
		},
	}

	decoded, ok := Decode(Encode(c))
	require.True(t, ok)
	assert.Equal(t, c, decoded)
}

func TestNormalize(t *testing.T) {
	out, ok := NormalizeString(`{"FuelTypes":["el"], "unknown": 1}`)
	require.True(t, ok)
	assert.Equal(t, `{"fuelTypes":["el"]}`, out)

	_, ok = NormalizeString(`not json`)
	assert.False(t, ok)
}
