package appenv

import (
	"os"
	"strings"
)

// Env represents the application runtime environment.
type Env string

const (
	Production  Env = "production"
	Development Env = "development"
	Test        Env = "test"
)

// Current returns the effective runtime environment from APP_ENV.
// Unknown or empty values default to Production.
func Current() Env {
	return Parse(os.Getenv("APP_ENV"))
}

// Parse maps a raw APP_ENV value onto a known Env.
func Parse(raw string) Env {
	switch Env(strings.ToLower(strings.TrimSpace(raw))) {
	case Test:
		return Test
	case Development, "dev":
		return Development
	default:
		return Production
	}
}

func IsProduction() bool  { return Current() == Production }
func IsDevelopment() bool { return Current() == Development }
func IsTest() bool        { return Current() == Test }
