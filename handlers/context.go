package handlers

import (
	"log/slog"
	"net/http"

	"billister-api/types"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const userIDKey = "userId"

// currentUserID returns the authenticated user set by AuthMiddleware.
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(userIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok && id != uuid.Nil
}

// mustUserID is for routes behind AuthMiddleware; it writes 401 and reports false otherwise.
func mustUserID(c *gin.Context) (uuid.UUID, bool) {
	id, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, types.NewErrorResponse(types.ErrorCodeUnauthorized, "authentication required"))
	}
	return id, ok
}

// uuidParam parses a path parameter, writing 400 on failure.
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}

func internalError(c *gin.Context, msg string, err error) {
	slog.Error(msg, "err", err, "path", c.FullPath(), "requestId", c.GetString("requestId"))
	c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, msg))
}

func notFound(c *gin.Context, what string) {
	c.JSON(http.StatusNotFound, types.NewErrorResponse(types.ErrorCodeNotFound, what+" not found"))
}

func forbidden(c *gin.Context) {
	c.JSON(http.StatusForbidden, types.NewErrorResponse(types.ErrorCodeForbidden, "no access"))
}
