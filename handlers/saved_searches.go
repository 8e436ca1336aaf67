package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"billister-api/criteria"
	"billister-api/models"
	"billister-api/types"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const invalidCriteriaMessage = "CriteriaJson must be valid ListingFilterCriteria JSON"

type SavedSearchStore interface {
	Create(ctx context.Context, userID uuid.UUID, name, criteriaJSON string) (*models.SavedSearch, error)
	GetForUser(ctx context.Context, id, userID uuid.UUID) (*models.SavedSearch, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.SavedSearch, error)
	Update(ctx context.Context, id, userID uuid.UUID, name, criteriaJSON *string) (bool, error)
	Delete(ctx context.Context, id, userID uuid.UUID) error
}

type SavedSearchesHandler struct {
	searches SavedSearchStore
}

func NewSavedSearchesHandler(searches SavedSearchStore) *SavedSearchesHandler {
	return &SavedSearchesHandler{searches: searches}
}

func (h *SavedSearchesHandler) List(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	items, err := h.searches.ListForUser(c.Request.Context(), userID)
	if err != nil {
		internalError(c, "failed to list saved searches", err)
		return
	}
	if items == nil {
		items = []*models.SavedSearch{}
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(gin.H{"items": items}))
}

// Create accepts the criteria as a JSON string and stores its canonical form.
func (h *SavedSearchesHandler) Create(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	var req struct {
		Name         string `json:"name" binding:"required"`
		CriteriaJSON string `json:"criteriaJson"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "name is required"))
		return
	}
	normalized, ok := criteria.NormalizeString(req.CriteriaJSON)
	if !ok {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, invalidCriteriaMessage))
		return
	}
	h.create(c, userID, req.Name, normalized)
}

// CreateFromCriteria is the same as Create with the criteria sent as an object.
func (h *SavedSearchesHandler) CreateFromCriteria(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	var req struct {
		Name     string          `json:"name" binding:"required"`
		Criteria json.RawMessage `json:"criteria"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "name is required"))
		return
	}
	var crit criteria.FilterCriteria
	if len(req.Criteria) > 0 {
		if crit, ok = criteria.Decode(req.Criteria); !ok {
			c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "criteria must be valid listing filter criteria"))
			return
		}
	}
	h.create(c, userID, req.Name, criteria.EncodeString(crit))
}

func (h *SavedSearchesHandler) create(c *gin.Context, userID uuid.UUID, name, criteriaJSON string) {
	saved, err := h.searches.Create(c.Request.Context(), userID, strings.TrimSpace(name), criteriaJSON)
	if err != nil {
		internalError(c, "failed to create saved search", err)
		return
	}
	c.Header("Location", "/api/saved-searches/"+saved.ID.String())
	c.JSON(http.StatusCreated, types.NewSuccessResponse(gin.H{"id": saved.ID}))
}

func (h *SavedSearchesHandler) Get(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	saved, err := h.searches.GetForUser(c.Request.Context(), id, userID)
	if err != nil {
		internalError(c, "failed to load saved search", err)
		return
	}
	if saved == nil {
		notFound(c, "saved search")
		return
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(saved))
}

func (h *SavedSearchesHandler) Update(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Name         *string `json:"name"`
		CriteriaJSON *string `json:"criteriaJson"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeInvalidRequest, "invalid request body"))
		return
	}
	if req.CriteriaJSON != nil {
		normalized, ok := criteria.NormalizeString(*req.CriteriaJSON)
		if !ok {
			c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, invalidCriteriaMessage))
			return
		}
		req.CriteriaJSON = &normalized
	}

	found, err := h.searches.Update(c.Request.Context(), id, userID, req.Name, req.CriteriaJSON)
	if err != nil {
		internalError(c, "failed to update saved search", err)
		return
	}
	if !found {
		notFound(c, "saved search")
		return
	}
	c.Status(http.StatusNoContent)
}

// Delete is idempotent: a missing search still answers 204.
func (h *SavedSearchesHandler) Delete(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.searches.Delete(c.Request.Context(), id, userID); err != nil {
		internalError(c, "failed to delete saved search", err)
		return
	}
	c.Status(http.StatusNoContent)
}
