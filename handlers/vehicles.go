package handlers

import (
	"context"
	"net/http"

	"billister-api/models"
	"billister-api/pkg/plates"
	"billister-api/types"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type VehicleCatalog interface {
	ListMakes(ctx context.Context) ([]models.VehicleMake, error)
	ListModels(ctx context.Context, makeID uuid.UUID) ([]models.VehicleModel, error)
}

type VehiclesHandler struct {
	catalog VehicleCatalog
	plates  plates.Lookup
}

func NewVehiclesHandler(catalog VehicleCatalog, lookup plates.Lookup) *VehiclesHandler {
	if lookup == nil {
		lookup = plates.Null{}
	}
	return &VehiclesHandler{catalog: catalog, plates: lookup}
}

func (h *VehiclesHandler) Makes(c *gin.Context) {
	items, err := h.catalog.ListMakes(c.Request.Context())
	if err != nil {
		internalError(c, "failed to list makes", err)
		return
	}
	if items == nil {
		items = []models.VehicleMake{}
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(gin.H{"items": items}))
}

func (h *VehiclesHandler) Models(c *gin.Context) {
	makeID, ok := uuidParam(c, "makeId")
	if !ok {
		return
	}
	items, err := h.catalog.ListModels(c.Request.Context(), makeID)
	if err != nil {
		internalError(c, "failed to list models", err)
		return
	}
	if items == nil {
		items = []models.VehicleModel{}
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(gin.H{"items": items}))
}

func (h *VehiclesHandler) Plate(c *gin.Context) {
	plate, ok := plates.Normalize(c.Param("plate"))
	if !ok {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "invalid plate"))
		return
	}
	found, err := h.plates.LookupByPlate(c.Request.Context(), plate)
	if err != nil {
		internalError(c, "failed to look up plate", err)
		return
	}
	if found == nil {
		notFound(c, "plate")
		return
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(found))
}
