package handlers

import (
	"context"
	"net/http"
	"strconv"

	"billister-api/models"
	"billister-api/types"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type MatchEventStore interface {
	ListForUser(ctx context.Context, userID uuid.UUID, unsentOnly bool) ([]models.MatchEvent, error)
	MarkSent(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int64, error)
}

type NotificationsHandler struct {
	events MatchEventStore
}

func NewNotificationsHandler(events MatchEventStore) *NotificationsHandler {
	return &NotificationsHandler{events: events}
}

// List returns the caller's saved-search match events. ?unsent=true keeps
// only those not yet delivered.
func (h *NotificationsHandler) List(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	unsentOnly, _ := strconv.ParseBool(c.DefaultQuery("unsent", "false"))
	items, err := h.events.ListForUser(c.Request.Context(), userID, unsentOnly)
	if err != nil {
		internalError(c, "failed to list notifications", err)
		return
	}
	if items == nil {
		items = []models.MatchEvent{}
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(gin.H{"items": items}))
}

func (h *NotificationsHandler) MarkSent(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	var req struct {
		IDs []uuid.UUID `json:"ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || len(req.IDs) == 0 {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "ids required"))
		return
	}
	n, err := h.events.MarkSent(c.Request.Context(), userID, req.IDs)
	if err != nil {
		internalError(c, "failed to mark notifications sent", err)
		return
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(gin.H{"updated": n}))
}
