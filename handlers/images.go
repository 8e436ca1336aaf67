package handlers

import (
	"context"
	"errors"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"

	"billister-api/models"
	"billister-api/types"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ImageUploader is the object storage behind listing images.
type ImageUploader interface {
	MaxUploadSize() int64
	CheckAllowed(size int64, mime string) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
}

type ListingImageStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	AddImage(ctx context.Context, listingID uuid.UUID, img models.ListingImage) (*models.ListingImage, error)
}

type ImagesHandler struct {
	listings ListingImageStore
	storage  ImageUploader
}

func NewImagesHandler(listings ListingImageStore, storage ImageUploader) *ImagesHandler {
	return &ImagesHandler{listings: listings, storage: storage}
}

// Upload stores a multipart "file" for the caller's listing and appends it
// after the listing's current images.
func (h *ImagesHandler) Upload(c *gin.Context) {
	if h.storage == nil {
		c.JSON(http.StatusServiceUnavailable, types.NewErrorResponse(types.ErrorCodeInternal, "image storage is not configured"))
		return
	}
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	listingID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	listing, err := h.listings.GetByID(c.Request.Context(), listingID)
	if err != nil {
		internalError(c, "failed to load listing", err)
		return
	}
	if listing == nil {
		notFound(c, "listing")
		return
	}
	if listing.SellerUserID != userID {
		forbidden(c)
		return
	}

	// Limit request body size before reading multipart data
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.storage.MaxUploadSize())

	file, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			c.JSON(http.StatusRequestEntityTooLarge, types.NewErrorResponse(types.ErrorCodeTooLarge, "file size exceeds the limit"))
			return
		}
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "file is required"))
		return
	}

	// Detect real MIME type from file content, not from client header
	sniff, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "cannot open uploaded file"))
		return
	}
	mt, err := mimetype.DetectReader(sniff)
	_ = sniff.Close()
	if err != nil || mt == nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "failed to detect file type"))
		return
	}
	contentType := mt.String()
	if err := h.storage.CheckAllowed(file.Size, contentType); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, err.Error()))
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "cannot open uploaded file"))
		return
	}
	defer src.Close()

	img := models.ListingImage{ListingID: listing.ID}
	img.Width, img.Height = imageSize(src)
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		internalError(c, "failed to read uploaded file", err)
		return
	}

	key := "listings/" + listing.ID.String() + "/" + uuid.NewString() + mt.Extension()
	img.URL, err = h.storage.Put(c.Request.Context(), key, src, file.Size, contentType)
	if err != nil {
		internalError(c, "failed to store image", err)
		return
	}

	saved, err := h.listings.AddImage(c.Request.Context(), listing.ID, img)
	if err != nil {
		internalError(c, "failed to save image", err)
		return
	}
	c.JSON(http.StatusCreated, types.NewSuccessResponse(saved))
}

// imageSize reads the pixel dimensions of formats the image package knows.
func imageSize(r io.Reader) (*int, *int) {
	cfg, _, err := image.DecodeConfig(r)
	if err != nil {
		return nil, nil
	}
	return &cfg.Width, &cfg.Height
}
