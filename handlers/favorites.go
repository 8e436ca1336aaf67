package handlers

import (
	"context"
	"net/http"

	"billister-api/models"
	"billister-api/types"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type FavoriteStore interface {
	List(ctx context.Context, userID uuid.UUID) ([]models.FavoriteListing, error)
	Add(ctx context.Context, userID, listingID uuid.UUID) error
	Remove(ctx context.Context, userID, listingID uuid.UUID) error
}

// ListingChecker answers whether a listing exists.
type ListingChecker interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

type FavoritesHandler struct {
	favorites FavoriteStore
	listings  ListingChecker
}

func NewFavoritesHandler(favorites FavoriteStore, listings ListingChecker) *FavoritesHandler {
	return &FavoritesHandler{favorites: favorites, listings: listings}
}

func (h *FavoritesHandler) List(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	items, err := h.favorites.List(c.Request.Context(), userID)
	if err != nil {
		internalError(c, "failed to list favorites", err)
		return
	}
	if items == nil {
		items = []models.FavoriteListing{}
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(gin.H{"items": items}))
}

func (h *FavoritesHandler) Add(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	listingID, ok := uuidParam(c, "listingId")
	if !ok {
		return
	}
	exists, err := h.listings.Exists(c.Request.Context(), listingID)
	if err != nil {
		internalError(c, "failed to load listing", err)
		return
	}
	if !exists {
		notFound(c, "listing")
		return
	}
	if err := h.favorites.Add(c.Request.Context(), userID, listingID); err != nil {
		internalError(c, "failed to add favorite", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *FavoritesHandler) Remove(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	listingID, ok := uuidParam(c, "listingId")
	if !ok {
		return
	}
	if err := h.favorites.Remove(c.Request.Context(), userID, listingID); err != nil {
		internalError(c, "failed to remove favorite", err)
		return
	}
	c.Status(http.StatusNoContent)
}
