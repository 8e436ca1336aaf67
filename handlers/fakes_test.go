package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"billister-api/criteria"
	"billister-api/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

var testJWT = JWTConfig{
	Secret:   "test-secret-test-secret-test-secret",
	Issuer:   "Billister",
	Audience: "Billister.Mobile",
	TTL:      time.Hour,
}

func init() {
	gin.SetMode(gin.TestMode)
}

// asUser stubs AuthMiddleware for unit tests.
func asUser(id uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		if id != uuid.Nil {
			c.Set(userIDKey, id)
		}
		c.Next()
	}
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewBuffer(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string                 `json:"code"`
		Message string                 `json:"message"`
		Details map[string]interface{} `json:"details"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	env := decodeEnvelope(t, w)
	require.True(t, env.Success, w.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, dst))
}

type fakeListings struct {
	mu       sync.Mutex
	items    map[uuid.UUID]*models.Listing
	views    int
	err      error
	lastCrit criteria.FilterCriteria
	lastPage [2]int
	updates  []models.ListingUpdate
	compared []uuid.UUID
}

func newFakeListings(ls ...*models.Listing) *fakeListings {
	f := &fakeListings{items: map[uuid.UUID]*models.Listing{}}
	for _, l := range ls {
		f.items[l.ID] = l
	}
	return f
}

func (f *fakeListings) Create(_ context.Context, l *models.Listing) (*models.Listing, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	l.ID = uuid.New()
	l.CreatedAt = time.Now().UTC()
	f.items[l.ID] = l
	return l, nil
}

func (f *fakeListings) GetByID(_ context.Context, id uuid.UUID) (*models.Listing, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[id], nil
}

func (f *fakeListings) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	l, err := f.GetByID(ctx, id)
	return l != nil, err
}

func (f *fakeListings) Search(_ context.Context, c criteria.FilterCriteria, page, pageSize int) ([]models.ListingSummary, int, error) {
	f.lastCrit = c
	f.lastPage = [2]int{page, pageSize}
	if f.err != nil {
		return nil, 0, f.err
	}
	var out []models.ListingSummary
	for _, l := range f.items {
		if criteria.Matches(c, l.CriteriaView()) {
			out = append(out, models.ListingSummary{ID: l.ID, Make: l.Make, Model: l.Model, PriceDkk: l.PriceDkk})
		}
	}
	return out, len(out), nil
}

func (f *fakeListings) ListBySeller(_ context.Context, sellerID uuid.UUID, page, pageSize int) ([]models.ListingSummary, int, error) {
	f.lastPage = [2]int{page, pageSize}
	out := []models.ListingSummary{}
	for _, l := range f.items {
		if l.SellerUserID == sellerID {
			out = append(out, models.ListingSummary{ID: l.ID, Make: l.Make, Model: l.Model})
		}
	}
	return out, len(out), nil
}

func (f *fakeListings) Update(_ context.Context, id uuid.UUID, upd models.ListingUpdate) error {
	f.updates = append(f.updates, upd)
	return f.err
}

func (f *fakeListings) AddImage(_ context.Context, listingID uuid.UUID, img models.ListingImage) (*models.ListingImage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l := f.items[listingID]
	img.ID = uuid.New()
	img.SortOrder = len(l.Images)
	l.Images = append(l.Images, img)
	return &img, nil
}

func (f *fakeListings) SetDescription(_ context.Context, id uuid.UUID, description string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[id].Description = &description
	return nil
}

func (f *fakeListings) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, id)
	return nil
}

func (f *fakeListings) RegisterView(_ context.Context, id uuid.UUID, _ *uuid.UUID, _ string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.items[id]
	if !ok {
		return false, nil
	}
	l.ViewCount++
	f.views++
	return true, nil
}

func (f *fakeListings) Nearby(_ context.Context, lat, lng, radiusKm float64) ([]models.NearbyListing, error) {
	return []models.NearbyListing{{ID: uuid.New(), Latitude: lat, Longitude: lng, PriceDkk: radiusKm}}, nil
}

func (f *fakeListings) Compare(_ context.Context, ids []uuid.UUID) ([]models.ListingComparison, error) {
	f.compared = ids
	out := make([]models.ListingComparison, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.ListingComparison{ID: id})
	}
	return out, nil
}

type fakeNotifier struct {
	calls int
	err   error
}

func (n *fakeNotifier) OnNewListing(context.Context, *models.Listing) (int, error) {
	n.calls++
	return 1, n.err
}

type fakeGenerator struct {
	text string
	err  error
}

func (g fakeGenerator) Generate(context.Context, *models.Listing) (string, error) {
	return g.text, g.err
}

func sampleListing(seller uuid.UUID) *models.Listing {
	return &models.Listing{
		ID:           uuid.New(),
		SellerUserID: seller,
		Make:         "Tesla",
		Model:        "Model 3",
		PriceDkk:     249900,
		FuelType:     "el",
		Transmission: "automat",
		FeaturesJSON: `["autopilot"]`,
	}
}
