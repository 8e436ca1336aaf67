package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"billister-api/contracts"
	"billister-api/criteria"
	"billister-api/models"
	"billister-api/pkg/aidesc"
	"billister-api/types"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const defaultNearbyRadiusKm = 25.0

// ListingStore is the listing persistence used by ListingsHandler.
type ListingStore interface {
	Create(ctx context.Context, l *models.Listing) (*models.Listing, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	Search(ctx context.Context, c criteria.FilterCriteria, page, pageSize int) ([]models.ListingSummary, int, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID, page, pageSize int) ([]models.ListingSummary, int, error)
	Update(ctx context.Context, id uuid.UUID, upd models.ListingUpdate) error
	SetDescription(ctx context.Context, id uuid.UUID, description string) error
	Delete(ctx context.Context, id uuid.UUID) error
	RegisterView(ctx context.Context, id uuid.UUID, viewerID *uuid.UUID, viewerIP string) (bool, error)
	Nearby(ctx context.Context, lat, lng, radiusKm float64) ([]models.NearbyListing, error)
	Compare(ctx context.Context, ids []uuid.UUID) ([]models.ListingComparison, error)
}

// NewListingNotifier is told about every listing right after it is stored.
type NewListingNotifier interface {
	OnNewListing(ctx context.Context, listing *models.Listing) (int, error)
}

type ListingsHandler struct {
	listings     ListingStore
	notifier     NewListingNotifier
	descriptions aidesc.Generator
}

func NewListingsHandler(listings ListingStore, notifier NewListingNotifier, descriptions aidesc.Generator) *ListingsHandler {
	if descriptions == nil {
		descriptions = aidesc.Template{}
	}
	return &ListingsHandler{listings: listings, notifier: notifier, descriptions: descriptions}
}

type imagePayload struct {
	URL       string `json:"url"`
	SortOrder int    `json:"sortOrder"`
	Width     *int   `json:"width"`
	Height    *int   `json:"height"`
}

type createListingRequest struct {
	Make              string                     `json:"make"`
	Model             string                     `json:"model"`
	Variant           *string                    `json:"variant"`
	PriceDkk          float64                    `json:"priceDkk"`
	FuelType          string                     `json:"fuelType"`
	Transmission      string                     `json:"transmission"`
	Year              *int                       `json:"year"`
	MileageKm         *int                       `json:"mileageKm"`
	ElectricRangeKm   *int                       `json:"electricRangeKm"`
	BatteryKwh        *float64                   `json:"batteryKwh"`
	IsPlugInHybrid    *bool                      `json:"isPlugInHybrid"`
	BodyType          *string                    `json:"bodyType"`
	Color             *string                    `json:"color"`
	Doors             *int                       `json:"doors"`
	Seats             *int                       `json:"seats"`
	Horsepower        *int                       `json:"horsepower"`
	Kilowatts         *int                       `json:"kilowatts"`
	EngineLiters      *float64                   `json:"engineLiters"`
	Cylinders         *int                       `json:"cylinders"`
	HasTowHook        *bool                      `json:"hasTowHook"`
	HasFourWheelDrive *bool                      `json:"hasFourWheelDrive"`
	Latitude          *float64                   `json:"latitude"`
	Longitude         *float64                   `json:"longitude"`
	PostalCode        *string                    `json:"postalCode"`
	City              *string                    `json:"city"`
	Title             *string                    `json:"title"`
	Description       *string                    `json:"description"`
	Features          []string                   `json:"features"`
	ExtraAttributes   map[string]json.RawMessage `json:"extraAttributes"`
	Images            []imagePayload             `json:"images"`
}

type updateListingRequest struct {
	PriceDkk        *float64                   `json:"priceDkk"`
	MileageKm       *int                       `json:"mileageKm"`
	Title           *string                    `json:"title"`
	Description     *string                    `json:"description"`
	Features        []string                   `json:"features"`
	ExtraAttributes map[string]json.RawMessage `json:"extraAttributes"`
	Images          []imagePayload             `json:"images"`
}

type searchRequest struct {
	Criteria json.RawMessage `json:"criteria"`
	Page     int             `json:"page"`
	PageSize int             `json:"pageSize"`
}

// Search handles GET /api/listings with simple query-string filters.
// Single-value filters become one-element sets.
func (h *ListingsHandler) Search(c *gin.Context) {
	crit, err := criteriaFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, err.Error()))
		return
	}
	h.respondSearch(c, crit, types.ParsePaginationParams(c))
}

// SearchAdvanced handles POST /api/listings/search with a full criteria object.
func (h *ListingsHandler) SearchAdvanced(c *gin.Context) {
	req := searchRequest{Page: 1, PageSize: types.DefaultPageSize}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeInvalidRequest, "invalid request body"))
		return
	}
	var crit criteria.FilterCriteria
	if len(req.Criteria) > 0 {
		var ok bool
		if crit, ok = criteria.Decode(req.Criteria); !ok {
			c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "criteria must be valid listing filter criteria"))
			return
		}
	}
	h.respondSearch(c, crit, types.NewPaginationHelper(req.Page, req.PageSize))
}

func (h *ListingsHandler) respondSearch(c *gin.Context, crit criteria.FilterCriteria, p *types.PaginationHelper) {
	items, total, err := h.listings.Search(c.Request.Context(), crit, p.Page, p.PageSize)
	if err != nil {
		internalError(c, "failed to search listings", err)
		return
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(p.BuildResponse(items, total)))
}

func (h *ListingsHandler) Mine(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	p := types.ParsePaginationParams(c)
	items, total, err := h.listings.ListBySeller(c.Request.Context(), userID, p.Page, p.PageSize)
	if err != nil {
		internalError(c, "failed to list listings", err)
		return
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(p.BuildResponse(items, total)))
}

func (h *ListingsHandler) Get(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	listing, err := h.listings.GetByID(c.Request.Context(), id)
	if err != nil {
		internalError(c, "failed to load listing", err)
		return
	}
	if listing == nil {
		notFound(c, "listing")
		return
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(listing.Detail()))
}

// Create stores the listing and then runs saved-search matching synchronously.
// Matching failures are logged and do not fail the request.
func (h *ListingsHandler) Create(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	var req createListingRequest
	if !bindValidated(c, contracts.ListingCreate, &req) {
		return
	}
	extra, err := models.EncodeAttributes(req.ExtraAttributes)
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "invalid extraAttributes"))
		return
	}

	listing := &models.Listing{
		SellerUserID:        userID,
		Make:                strings.TrimSpace(req.Make),
		Model:               strings.TrimSpace(req.Model),
		Variant:             req.Variant,
		Year:                req.Year,
		MileageKm:           req.MileageKm,
		PriceDkk:            req.PriceDkk,
		FuelType:            req.FuelType,
		IsPlugInHybrid:      req.IsPlugInHybrid,
		ElectricRangeKm:     req.ElectricRangeKm,
		BatteryKwh:          req.BatteryKwh,
		Transmission:        req.Transmission,
		BodyType:            req.BodyType,
		Color:               req.Color,
		Doors:               req.Doors,
		Seats:               req.Seats,
		Horsepower:          req.Horsepower,
		Kilowatts:           req.Kilowatts,
		EngineLiters:        req.EngineLiters,
		Cylinders:           req.Cylinders,
		HasTowHook:          req.HasTowHook,
		HasFourWheelDrive:   req.HasFourWheelDrive,
		Latitude:            req.Latitude,
		Longitude:           req.Longitude,
		PostalCode:          req.PostalCode,
		City:                req.City,
		Title:               req.Title,
		Description:         req.Description,
		FeaturesJSON:        models.EncodeFeatures(req.Features),
		ExtraAttributesJSON: extra,
		Images:              toImages(req.Images),
	}

	created, err := h.listings.Create(c.Request.Context(), listing)
	if err != nil {
		internalError(c, "failed to create listing", err)
		return
	}

	if h.notifier != nil {
		matched, err := h.notifier.OnNewListing(c.Request.Context(), created)
		if err != nil {
			slog.Warn("saved-search matching failed", "listingId", created.ID, "err", err)
		} else if matched > 0 {
			slog.Info("saved searches matched new listing", "listingId", created.ID, "matches", matched)
		}
	}

	c.Header("Location", "/api/listings/"+created.ID.String())
	c.JSON(http.StatusCreated, types.NewSuccessResponse(gin.H{"id": created.ID}))
}

func (h *ListingsHandler) Update(c *gin.Context) {
	listing, ok := h.ownedListing(c)
	if !ok {
		return
	}
	var req updateListingRequest
	if !bindValidated(c, contracts.ListingUpdate, &req) {
		return
	}

	upd := models.ListingUpdate{
		PriceDkk:    req.PriceDkk,
		MileageKm:   req.MileageKm,
		Title:       req.Title,
		Description: req.Description,
	}
	if req.Features != nil {
		features := models.EncodeFeatures(req.Features)
		upd.FeaturesJSON = &features
	}
	if req.ExtraAttributes != nil {
		extra, err := models.EncodeAttributes(req.ExtraAttributes)
		if err != nil {
			c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "invalid extraAttributes"))
			return
		}
		upd.ExtraAttributesJSON = &extra
	}
	if req.Images != nil {
		upd.Images = toImages(req.Images)
	}

	if err := h.listings.Update(c.Request.Context(), listing.ID, upd); err != nil {
		internalError(c, "failed to update listing", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ListingsHandler) Delete(c *gin.Context) {
	listing, ok := h.ownedListing(c)
	if !ok {
		return
	}
	if err := h.listings.Delete(c.Request.Context(), listing.ID); err != nil {
		internalError(c, "failed to delete listing", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RegisterView counts a view. Anonymous views are allowed.
func (h *ListingsHandler) RegisterView(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var viewer *uuid.UUID
	if userID, ok := currentUserID(c); ok {
		viewer = &userID
	}
	found, err := h.listings.RegisterView(c.Request.Context(), id, viewer, c.ClientIP())
	if err != nil {
		internalError(c, "failed to register view", err)
		return
	}
	if !found {
		notFound(c, "listing")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ListingsHandler) Nearby(c *gin.Context) {
	lat, err := queryFloat(c, "lat")
	if err == nil && lat == nil {
		err = errors.New("lat is required")
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, err.Error()))
		return
	}
	lng, err := queryFloat(c, "lng")
	if err == nil && lng == nil {
		err = errors.New("lng is required")
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, err.Error()))
		return
	}
	radius, err := queryFloat(c, "radiusKm")
	if err != nil || (radius != nil && *radius <= 0) {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "radiusKm must be a positive number"))
		return
	}
	r := defaultNearbyRadiusKm
	if radius != nil {
		r = *radius
	}

	items, err := h.listings.Nearby(c.Request.Context(), *lat, *lng, r)
	if err != nil {
		internalError(c, "failed to load nearby listings", err)
		return
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(gin.H{"items": items}))
}

func (h *ListingsHandler) Compare(c *gin.Context) {
	var ids []uuid.UUID
	if err := c.ShouldBindJSON(&ids); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeInvalidRequest, "body must be an array of listing ids"))
		return
	}
	if len(ids) < 2 || len(ids) > 3 {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "compare requires 2-3 ids"))
		return
	}
	items, err := h.listings.Compare(c.Request.Context(), ids)
	if err != nil {
		internalError(c, "failed to compare listings", err)
		return
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(gin.H{"items": items}))
}

func (h *ListingsHandler) GenerateDescription(c *gin.Context) {
	listing, ok := h.ownedListing(c)
	if !ok {
		return
	}
	text, err := h.descriptions.Generate(c.Request.Context(), listing)
	if err != nil {
		slog.Error("description generation failed", "listingId", listing.ID, "err", err)
		c.JSON(http.StatusBadGateway, types.NewErrorResponse(types.ErrorCodeBadGateway, "description service unavailable"))
		return
	}
	if err := h.listings.SetDescription(c.Request.Context(), listing.ID, text); err != nil {
		internalError(c, "failed to save description", err)
		return
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(gin.H{"description": text}))
}

// ownedListing loads the :id listing and checks the caller is its seller.
func (h *ListingsHandler) ownedListing(c *gin.Context) (*models.Listing, bool) {
	userID, ok := mustUserID(c)
	if !ok {
		return nil, false
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return nil, false
	}
	listing, err := h.listings.GetByID(c.Request.Context(), id)
	if err != nil {
		internalError(c, "failed to load listing", err)
		return nil, false
	}
	if listing == nil {
		notFound(c, "listing")
		return nil, false
	}
	if listing.SellerUserID != userID {
		forbidden(c)
		return nil, false
	}
	return listing, true
}

// bindValidated checks the raw body against a schema before decoding it into dst.
func bindValidated(c *gin.Context, schema string, dst interface{}) bool {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeInvalidRequest, "cannot read request body"))
		return false
	}
	if err := contracts.Validate(schema, body); err != nil {
		var verr *contracts.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, types.NewErrorResponseWithDetails(types.ErrorCodeValidation, verr.Message,
				map[string]interface{}{"field": verr.Field}))
			return false
		}
		internalError(c, "failed to validate request", err)
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeInvalidRequest, "invalid request body"))
		return false
	}
	return true
}

func toImages(in []imagePayload) []models.ListingImage {
	out := make([]models.ListingImage, 0, len(in))
	for _, img := range in {
		out = append(out, models.ListingImage{URL: img.URL, SortOrder: img.SortOrder, Width: img.Width, Height: img.Height})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out
}

func criteriaFromQuery(c *gin.Context) (criteria.FilterCriteria, error) {
	var crit criteria.FilterCriteria
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		crit.Text = &q
	}
	crit.Makes = singleton(c.Query("make"))
	crit.Models = singleton(c.Query("model"))
	crit.FuelTypes = singleton(c.Query("fuelType"))
	crit.Transmissions = singleton(c.Query("transmission"))
	crit.RequiredFeatures = singleton(c.Query("feature"))

	var err error
	if crit.PriceMin, err = queryFloat(c, "priceMin"); err != nil {
		return crit, err
	}
	if crit.PriceMax, err = queryFloat(c, "priceMax"); err != nil {
		return crit, err
	}
	ints := []struct {
		name string
		dst  **int
	}{
		{"yearMin", &crit.YearMin}, {"yearMax", &crit.YearMax},
		{"mileageMin", &crit.MileageMin}, {"mileageMax", &crit.MileageMax},
		{"rangeMin", &crit.RangeMin}, {"rangeMax", &crit.RangeMax},
	}
	for _, f := range ints {
		if *f.dst, err = queryInt(c, f.name); err != nil {
			return crit, err
		}
	}
	if crit.HasTowHook, err = queryBool(c, "hasTowHook"); err != nil {
		return crit, err
	}
	if crit.HasFourWheelDrive, err = queryBool(c, "hasFourWheelDrive"); err != nil {
		return crit, err
	}
	return crit, nil
}

func singleton(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return []string{v}
}

func queryFloat(c *gin.Context, name string) (*float64, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, errors.New(name + " must be a number")
	}
	return &v, nil
}

func queryInt(c *gin.Context, name string) (*int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, errors.New(name + " must be an integer")
	}
	return &v, nil
}

func queryBool(c *gin.Context, name string) (*bool, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, errors.New(name + " must be true or false")
	}
	return &v, nil
}
