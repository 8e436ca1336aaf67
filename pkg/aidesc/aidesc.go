// Package aidesc writes sales descriptions for listings.
package aidesc

import (
	"context"
	"fmt"
	"strings"

	"billister-api/models"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Generator produces a description for a listing.
type Generator interface {
	Generate(ctx context.Context, listing *models.Listing) (string, error)
}

// Template is the offline generator used when no language model is configured.
type Template struct{}

var danish = message.NewPrinter(language.Danish)

func (Template) Generate(_ context.Context, l *models.Listing) (string, error) {
	var b strings.Builder
	b.WriteString(headline(l))
	b.WriteString(". ")
	if l.Year != nil {
		fmt.Fprintf(&b, "Årgang %d. ", *l.Year)
	}
	if l.MileageKm != nil {
		b.WriteString(danish.Sprintf("%d km. ", *l.MileageKm))
	}
	b.WriteString(strings.TrimSpace(l.FuelType))
	b.WriteString(". ")
	if l.ElectricRangeKm != nil {
		fmt.Fprintf(&b, "Rækkevidde op til %d km. ", *l.ElectricRangeKm)
	}
	if gear := strings.TrimSpace(l.Transmission); gear != "" {
		fmt.Fprintf(&b, "Gear: %s. ", gear)
	}
	b.WriteString("Velholdt bil med mulighed for fremvisning efter aftale.")

	return strings.TrimSpace(strings.ReplaceAll(b.String(), "  ", " ")), nil
}

func headline(l *models.Listing) string {
	if l.Title != nil && strings.TrimSpace(*l.Title) != "" {
		return *l.Title
	}
	h := l.Make + " " + l.Model
	if l.Variant != nil && strings.TrimSpace(*l.Variant) != "" {
		h += " " + *l.Variant
	}
	return h
}
