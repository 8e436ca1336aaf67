// Package plates looks up vehicle data by Danish license plate.
package plates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"billister-api/models"
)

// Lookup returns nil, nil when the register has no vehicle for the plate.
type Lookup interface {
	LookupByPlate(ctx context.Context, plate string) (*models.PlateLookup, error)
}

var platePattern = regexp.MustCompile(`^[A-Z0-9]{1,7}$`)

// Normalize strips spaces and dashes and upper-cases the plate. It reports
// false when the result is not a plausible plate.
func Normalize(plate string) (string, bool) {
	p := strings.ToUpper(strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(plate)))
	return p, platePattern.MatchString(p)
}

// Null is used when no register is configured; it never finds anything.
type Null struct{}

func (Null) LookupByPlate(context.Context, string) (*models.PlateLookup, error) {
	return nil, nil
}

// HTTPLookup queries a JSON register endpoint at {baseURL}/{plate}.
type HTTPLookup struct {
	baseURL string
	client  *http.Client
}

func NewHTTPLookup(baseURL string) *HTTPLookup {
	return &HTTPLookup{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (l *HTTPLookup) LookupByPlate(ctx context.Context, plate string) (*models.PlateLookup, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"/"+url.PathEscape(plate), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("plate lookup %s: %w", plate, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("plate lookup %s: unexpected status %d", plate, resp.StatusCode)
	}

	var out models.PlateLookup
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("plate lookup %s: decode: %w", plate, err)
	}
	if out.LicensePlate == "" {
		out.LicensePlate = plate
	}
	return &out, nil
}
