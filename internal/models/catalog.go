// Package models defines catalog entities, search queries, and result views.
package models

import (
	"strings"
	"time"
)

// Manufacturer is a vehicle manufacturer.
type Manufacturer struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// VehicleModel is a manufacturer's model (optionally a variant over a year range).
type VehicleModel struct {
	ID               int64  `json:"id" db:"id"`
	ManufacturerID   int64  `json:"manufacturer_id" db:"manufacturer_id"`
	ManufacturerName string `json:"manufacturer_name,omitempty" db:"-"`
	ModelName        string `json:"model_name" db:"model_name"`
	Variant          string `json:"variant,omitempty" db:"variant"`
	YearFrom         *int   `json:"year_from,omitempty" db:"year_from"`
	YearTo           *int   `json:"year_to,omitempty" db:"year_to"`
}

// Category is a node of the category forest. ParentID is nil for roots.
type Category struct {
	ID       int64  `json:"id" db:"id"`
	ParentID *int64 `json:"parent_id,omitempty" db:"parent_id"`
	Name     string `json:"name" db:"name"`
}

// Image is a picture attached to a catalog item.
type Image struct {
	ID        int64  `json:"id" db:"id"`
	ItemID    int64  `json:"-" db:"item_id"`
	URL       string `json:"url" db:"url"`
	IsPrimary bool   `json:"is_primary" db:"is_primary"`
	SortOrder int    `json:"sort_order" db:"sort_order"`
}

// Item is a sellable part record.
type Item struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	SKU         string    `json:"sku" db:"sku"`
	IsUniversal bool      `json:"is_universal" db:"is_universal"`
	Price       float64   `json:"price" db:"price"`
	Discount    float64   `json:"discount" db:"discount"`
	SalePrice   *float64  `json:"sale_price,omitempty" db:"sale_price"`
	CostPrice   *float64  `json:"-" db:"cost_price"`
	LeadTime    int       `json:"lead_time" db:"lead_time"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// EffectivePrice is the sale price when one is set, otherwise the list price.
func (i *Item) EffectivePrice() float64 {
	if i.SalePrice != nil && *i.SalePrice > 0 {
		return *i.SalePrice
	}
	return i.Price
}

// ItemDocument is an item flattened with the texts it is matched and scored on.
type ItemDocument struct {
	Item
	ManufacturerNames []string `json:"manufacturer_names,omitempty"`
	ModelNames        []string `json:"model_names,omitempty"`
	Variants          []string `json:"variants,omitempty"`
}

// ManufacturerText returns the lowercased manufacturer names joined by spaces.
func (d *ItemDocument) ManufacturerText() string {
	return strings.ToLower(strings.Join(d.ManufacturerNames, " "))
}

// ModelText returns the lowercased model names and variants joined by spaces.
func (d *ItemDocument) ModelText() string {
	parts := make([]string, 0, len(d.ModelNames)+len(d.Variants))
	parts = append(parts, d.ModelNames...)
	parts = append(parts, d.Variants...)
	return strings.ToLower(strings.Join(parts, " "))
}

// ItemRelations holds the related entities attached to a returned page.
type ItemRelations struct {
	Models       []*VehicleModel
	Categories   []*Category
	PrimaryImage *Image
}

// SynonymEdge is a weighted association between a term and a synonym.
type SynonymEdge struct {
	Term    string  `json:"term" db:"term"`
	Synonym string  `json:"synonym" db:"synonym"`
	Weight  float64 `json:"weight" db:"weight"`
}

// WeightedTerm is one directed side of a synonym edge.
type WeightedTerm struct {
	Term   string  `json:"term"`
	Weight float64 `json:"weight"`
}

// SalesAggregate is the sales history of one SKU over non-draft orders.
type SalesAggregate struct {
	SKU        string `json:"sku" db:"sku"`
	TotalSold  int64  `json:"total_sold" db:"total_sold"`
	OrderCount int64  `json:"order_count" db:"order_count"`
}

// VocabularySource names a table the fuzzy vocabulary is drawn from.
type VocabularySource string

const (
	VocabularyItems         VocabularySource = "items"
	VocabularyManufacturers VocabularySource = "manufacturers"
	VocabularyModels        VocabularySource = "models"
)

// VocabularySources lists every source in snapshot order.
var VocabularySources = []VocabularySource{VocabularyItems, VocabularyManufacturers, VocabularyModels}

// SearchLog is one analytics record persisted by the search log sink.
type SearchLog struct {
	ID           string    `json:"id" db:"id"`
	Mode         string    `json:"mode" db:"mode"`
	QueryParams  string    `json:"query_params" db:"query_params"`
	ResultsCount int       `json:"results_count" db:"results_count"`
	DurationMs   int64     `json:"duration_ms" db:"duration_ms"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// CatalogStats are row counts reported by the status endpoint.
type CatalogStats struct {
	Items         int64 `json:"items"`
	Categories    int64 `json:"categories"`
	Manufacturers int64 `json:"manufacturers"`
	VehicleModels int64 `json:"vehicle_models"`
	Synonyms      int64 `json:"synonyms"`
	SearchLogs    int64 `json:"search_logs"`
}
