package appenv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	cases := map[string]Env{
		"":            Production,
		"production":  Production,
		"staging":     Production,
		" TEST ":      Test,
		"development": Development,
		"dev":         Development,
	}
	for raw, want := range cases {
		assert.Equal(t, want, Parse(raw), raw)
	}
}

func TestCurrentReadsEnv(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	assert.True(t, IsTest())
	assert.False(t, IsProduction())
}
