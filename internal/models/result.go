package models

import "time"

// Pagination is the page metadata returned with every listing.
type Pagination struct {
	CurrentPage int  `json:"current_page"`
	PageSize    int  `json:"page_size"`
	TotalItems  int  `json:"total_items"`
	TotalPages  int  `json:"total_pages"`
	HasMore     bool `json:"has_more"`
}

// NewPagination computes page metadata for total items split into pages of pageSize.
func NewPagination(page, pageSize, total int) Pagination {
	totalPages := 0
	if pageSize > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}
	return Pagination{
		CurrentPage: page,
		PageSize:    pageSize,
		TotalItems:  total,
		TotalPages:  totalPages,
		HasMore:     page < totalPages,
	}
}

// PageBounds returns the [start, end) slice bounds of a page over total items.
func PageBounds(offset, pageSize, total int) (int, int) {
	start := offset
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return start, end
}

// ItemView is the public representation of a catalog item in a listing.
type ItemView struct {
	ID              int64                    `json:"id"`
	Name            string                   `json:"name"`
	Description     string                   `json:"description"`
	SKU             string                   `json:"sku"`
	IsUniversal     bool                     `json:"is_universal"`
	Price           float64                  `json:"price"`
	Discount        float64                  `json:"discount"`
	SalePrice       *float64                 `json:"sale_price"`
	LeadTime        int                      `json:"lead_time"`
	Image           *Image                   `json:"image"`
	SupportedModels []*VehicleModel          `json:"supported_models"`
	Categories      []*Category              `json:"categories"`
	CreatedAt       time.Time                `json:"created_at"`
	UpdatedAt       time.Time                `json:"updated_at"`
	RelevanceScore  *float64                 `json:"relevance_score,omitempty"`
	Recommendation  *RecommendationBreakdown `json:"recommendation,omitempty"`
}

// NewItemView builds the view of item with its page-level relations attached.
// rel may be nil, in which case the relation lists are empty.
func NewItemView(item *Item, rel *ItemRelations) *ItemView {
	v := &ItemView{
		ID:              item.ID,
		Name:            item.Name,
		Description:     item.Description,
		SKU:             item.SKU,
		IsUniversal:     item.IsUniversal,
		Price:           item.Price,
		Discount:        item.Discount,
		SalePrice:       item.SalePrice,
		LeadTime:        item.LeadTime,
		SupportedModels: []*VehicleModel{},
		Categories:      []*Category{},
		CreatedAt:       item.CreatedAt,
		UpdatedAt:       item.UpdatedAt,
	}
	if rel != nil {
		if rel.Models != nil {
			v.SupportedModels = rel.Models
		}
		if rel.Categories != nil {
			v.Categories = rel.Categories
		}
		v.Image = rel.PrimaryImage
	}
	return v
}

// SearchParams echoes the resolved parameters of a search.
type SearchParams struct {
	Query               string   `json:"q,omitempty"`
	Tokens              []string `json:"tokens,omitempty"`
	ManufacturerID      int64    `json:"manufacturer_id,omitempty"`
	CategoryID          int64    `json:"category_id,omitempty"`
	ResolvedCategoryIDs []int64  `json:"resolved_category_ids,omitempty"`
	ModelIDs            []int64  `json:"model_ids,omitempty"`
	Sort                SortMode `json:"sort"`
	Page                int      `json:"page"`
	PageSize            int      `json:"page_size"`
}

// SearchResult is the outcome of a search: one page of items plus metadata.
type SearchResult struct {
	Items      []*ItemView  `json:"items"`
	Pagination Pagination   `json:"pagination"`
	Params     SearchParams `json:"params"`
	QueryTime  int64        `json:"query_time_ms"`
}

// RecommendationBreakdown exposes the raw components behind a recommendation score.
type RecommendationBreakdown struct {
	Score         float64 `json:"score"`
	SalesVolume   int64   `json:"sales_volume"`
	OrderCount    int64   `json:"order_count"`
	AgeDays       float64 `json:"age_days"`
	MarginPercent float64 `json:"margin_percent"`
}

// RecommendationParams echoes the weights a recommendation page was scored with.
type RecommendationParams struct {
	SalesWeight       float64 `json:"sales_weight"`
	FreshnessWeight   float64 `json:"freshness_weight"`
	MarginWeight      float64 `json:"margin_weight"`
	FreshnessHalfDays float64 `json:"freshness_half_days"`
	MarginCap         float64 `json:"margin_cap"`
	Page              int     `json:"page"`
	PageSize          int     `json:"page_size"`
	SalesDegraded     bool    `json:"sales_degraded,omitempty"`
}

// RecommendationResult is one page of the catalog-wide recommendation feed.
type RecommendationResult struct {
	Items      []*ItemView          `json:"items"`
	Pagination Pagination           `json:"pagination"`
	Params     RecommendationParams `json:"params"`
	QueryTime  int64                `json:"query_time_ms"`
}
