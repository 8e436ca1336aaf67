package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"billister-api/models"
	"billister-api/types"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ChatStore interface {
	GetOrCreate(ctx context.Context, listingID, buyerID, sellerID uuid.UUID, threadPath string) (*models.ChatThread, error)
}

// ListingReader loads a single listing, returning nil when it does not exist.
type ListingReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
}

type ChatsHandler struct {
	chats    ChatStore
	listings ListingReader
}

func NewChatsHandler(chats ChatStore, listings ListingReader) *ChatsHandler {
	return &ChatsHandler{chats: chats, listings: listings}
}

// threadPath is where the messages of a buyer/seller conversation live in the
// external realtime store.
func threadPath(listingID, buyerID, sellerID uuid.UUID) string {
	return strings.ToLower(fmt.Sprintf("threads/%s/%s_%s", listingID, buyerID, sellerID))
}

// Start returns the caller's thread with the listing's seller, creating it on first use.
func (h *ChatsHandler) Start(c *gin.Context) {
	buyerID, ok := mustUserID(c)
	if !ok {
		return
	}
	var req struct {
		ListingID uuid.UUID `json:"listingId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "listingId is required"))
		return
	}
	listing, err := h.listings.GetByID(c.Request.Context(), req.ListingID)
	if err != nil {
		internalError(c, "failed to load listing", err)
		return
	}
	if listing == nil {
		notFound(c, "listing")
		return
	}
	sellerID := listing.SellerUserID
	if sellerID == buyerID {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "cannot chat with yourself"))
		return
	}

	thread, err := h.chats.GetOrCreate(c.Request.Context(), listing.ID, buyerID, sellerID, threadPath(listing.ID, buyerID, sellerID))
	if err != nil {
		internalError(c, "failed to start chat", err)
		return
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(gin.H{"id": thread.ID, "firebaseThreadPath": thread.ThreadPath}))
}
