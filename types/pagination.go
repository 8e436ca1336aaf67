package types

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PaginatedResponse contains a page of items with pagination metadata
type PaginatedResponse struct {
	Items      interface{} `json:"items"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	TotalPages int         `json:"totalPages"`
}

// PaginationHelper provides utilities for working with pagination
type PaginationHelper struct {
	Page     int
	PageSize int
	Offset   int
}

// NewPaginationHelper clamps silently: page below 1 becomes 1 and a page size
// outside [1, MaxPageSize] becomes DefaultPageSize.
func NewPaginationHelper(page, pageSize int) *PaginationHelper {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > MaxPageSize {
		pageSize = DefaultPageSize
	}
	return &PaginationHelper{
		Page:     page,
		PageSize: pageSize,
		Offset:   (page - 1) * pageSize,
	}
}

// BuildResponse creates a standardized response with pagination
func (p *PaginationHelper) BuildResponse(items interface{}, total int) PaginatedResponse {
	return PaginatedResponse{
		Items:      items,
		Total:      total,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: (total + p.PageSize - 1) / p.PageSize,
	}
}

// ParsePaginationParams extracts pagination parameters from gin.Context.
// Unparseable values fall through to the clamping defaults.
func ParsePaginationParams(c *gin.Context) *PaginationHelper {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", strconv.Itoa(DefaultPageSize)))

	return NewPaginationHelper(page, pageSize)
}
