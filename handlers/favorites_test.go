package handlers

import (
	"context"
	"net/http"
	"testing"

	"billister-api/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type favKey struct{ user, listing uuid.UUID }

type fakeFavorites struct {
	set map[favKey]bool
}

func (f *fakeFavorites) List(_ context.Context, userID uuid.UUID) ([]models.FavoriteListing, error) {
	var out []models.FavoriteListing
	for k := range f.set {
		if k.user == userID {
			out = append(out, models.FavoriteListing{ID: k.listing})
		}
	}
	return out, nil
}

func (f *fakeFavorites) Add(_ context.Context, userID, listingID uuid.UUID) error {
	f.set[favKey{userID, listingID}] = true
	return nil
}

func (f *fakeFavorites) Remove(_ context.Context, userID, listingID uuid.UUID) error {
	delete(f.set, favKey{userID, listingID})
	return nil
}

func favoritesRouter(h *FavoritesHandler, user uuid.UUID) *gin.Engine {
	r := gin.New()
	g := r.Group("/api/favorites", asUser(user))
	g.GET("", h.List)
	g.POST("/:listingId", h.Add)
	g.DELETE("/:listingId", h.Remove)
	return r
}

func TestFavoritesAddIsIdempotent(t *testing.T) {
	user := uuid.New()
	l := sampleListing(uuid.New())
	favs := &fakeFavorites{set: map[favKey]bool{}}
	r := favoritesRouter(NewFavoritesHandler(favs, newFakeListings(l)), user)

	path := "/api/favorites/" + l.ID.String()
	assert.Equal(t, http.StatusNoContent, doJSON(t, r, http.MethodPost, path, nil).Code)
	assert.Equal(t, http.StatusNoContent, doJSON(t, r, http.MethodPost, path, nil).Code)
	assert.Len(t, favs.set, 1)

	w := doJSON(t, r, http.MethodGet, "/api/favorites", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Items []models.FavoriteListing `json:"items"`
	}
	decodeData(t, w, &body)
	require.Len(t, body.Items, 1)
	assert.Equal(t, l.ID, body.Items[0].ID)

	assert.Equal(t, http.StatusNoContent, doJSON(t, r, http.MethodDelete, path, nil).Code)
	assert.Equal(t, http.StatusNoContent, doJSON(t, r, http.MethodDelete, path, nil).Code)
	assert.Empty(t, favs.set)
}

func TestFavoritesMissingListing(t *testing.T) {
	favs := &fakeFavorites{set: map[favKey]bool{}}
	r := favoritesRouter(NewFavoritesHandler(favs, newFakeListings()), uuid.New())

	assert.Equal(t, http.StatusNotFound, doJSON(t, r, http.MethodPost, "/api/favorites/"+uuid.NewString(), nil).Code)
	assert.Equal(t, http.StatusBadRequest, doJSON(t, r, http.MethodPost, "/api/favorites/abc", nil).Code)
	assert.Empty(t, favs.set)

	w := doJSON(t, r, http.MethodGet, "/api/favorites", nil)
	assert.JSONEq(t, `{"success":true,"data":{"items":[]}}`, w.Body.String())
}

func TestFavoritesRequireUser(t *testing.T) {
	r := favoritesRouter(NewFavoritesHandler(&fakeFavorites{set: map[favKey]bool{}}, newFakeListings()), uuid.Nil)
	assert.Equal(t, http.StatusUnauthorized, doJSON(t, r, http.MethodGet, "/api/favorites", nil).Code)
}
