package models

import (
	"strings"

	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/validation"
)

// SortMode selects how search results are ordered.
type SortMode string

const (
	SortRelevance SortMode = "relevance"
	SortPriceAsc  SortMode = "price_asc"
	SortPriceDesc SortMode = "price_desc"
)

const (
	// DefaultPageSize is used by transports when page_size is absent.
	DefaultPageSize = 20
	// MaxPageSize is the largest page a caller may request.
	MaxPageSize = 100
)

// SearchQuery represents a text and/or filter search request.
type SearchQuery struct {
	Query          string   `json:"q"`
	ManufacturerID int64    `json:"manufacturer_id,omitempty" validate:"gte=0"`
	CategoryID     int64    `json:"category_id,omitempty" validate:"gte=0"`
	ModelIDs       []int64  `json:"model_ids,omitempty" validate:"omitempty,dive,gt=0"`
	Sort           SortMode `json:"sort,omitempty" validate:"omitempty,oneof=relevance price_asc price_desc"`
	Page           int      `json:"page" validate:"gte=1"`
	PageSize       int      `json:"page_size" validate:"gte=1,lte=100"`
}

// Validate checks pagination, sort mode, and filter ids. It trims the query text
// and defaults the sort mode to relevance. Failures are *validation.RequestValidationError.
func (q *SearchQuery) Validate() error {
	q.Query = strings.TrimSpace(q.Query)
	if q.Sort == "" {
		q.Sort = SortRelevance
	}
	if err := validation.ValidateStruct(q); err != nil {
		return err
	}
	return nil
}

// HasText reports whether the query carries free text.
func (q *SearchQuery) HasText() bool {
	return strings.TrimSpace(q.Query) != ""
}

// Offset returns the zero-based index of the first item on the requested page.
func (q *SearchQuery) Offset() int {
	return (q.Page - 1) * q.PageSize
}

// RecommendQuery is a catalog-wide recommendation page request.
type RecommendQuery struct {
	Page     int `json:"page" validate:"gte=1"`
	PageSize int `json:"page_size" validate:"gte=1,lte=100"`
}

// Validate checks pagination. Failures are *validation.RequestValidationError.
func (q *RecommendQuery) Validate() error {
	if err := validation.ValidateStruct(q); err != nil {
		return err
	}
	return nil
}

// Offset returns the zero-based index of the first item on the requested page.
func (q *RecommendQuery) Offset() int {
	return (q.Page - 1) * q.PageSize
}
