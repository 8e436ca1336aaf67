package handlers

import (
	"context"
	"net/http"
	"strings"

	"billister-api/types"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type DeviceTokenStore interface {
	Upsert(ctx context.Context, userID uuid.UUID, platform, token string) error
}

type DeviceTokensHandler struct {
	tokens DeviceTokenStore
}

func NewDeviceTokensHandler(tokens DeviceTokenStore) *DeviceTokensHandler {
	return &DeviceTokensHandler{tokens: tokens}
}

// Upsert keeps one push token per user and platform.
func (h *DeviceTokensHandler) Upsert(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	var req struct {
		Platform string `json:"platform" binding:"required"`
		Token    string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "platform and token are required"))
		return
	}
	platform := strings.ToLower(strings.TrimSpace(req.Platform))
	if err := h.tokens.Upsert(c.Request.Context(), userID, platform, strings.TrimSpace(req.Token)); err != nil {
		internalError(c, "failed to save device token", err)
		return
	}
	c.Status(http.StatusNoContent)
}
