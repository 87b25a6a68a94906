// Package storage defines the catalog store contract and its SQLite implementation.
package storage

import (
	"context"

	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/models"
)

// CandidateFilter is the mandatory filter a search candidate must pass.
// Tokens are matched as case-insensitive substrings; every token must match at
// least one of name, description, manufacturer name, model name, or variant.
type CandidateFilter struct {
	Tokens         []string
	ManufacturerID int64
	CategoryIDs    []int64
	ModelIDs       []int64
}

// Storage is the catalog store used by the query engine and operator commands.
type Storage interface {
	// Catalog reads
	ListCategories(ctx context.Context) ([]*models.Category, error)
	ListSynonyms(ctx context.Context) ([]*models.SynonymEdge, error)
	VocabularyNames(ctx context.Context, source models.VocabularySource, limit int) ([]string, error)
	FindCandidates(ctx context.Context, filter *CandidateFilter) ([]*models.ItemDocument, error)
	ListItems(ctx context.Context) ([]*models.Item, error)
	SalesBySKU(ctx context.Context) (map[string]*models.SalesAggregate, error)
	LoadRelations(ctx context.Context, itemIDs []int64) (map[int64]*models.ItemRelations, error)

	// Operator writes
	ReplaceSynonyms(ctx context.Context, edges []*models.SynonymEdge) (int, error)
	UpsertSynonyms(ctx context.Context, edges []*models.SynonymEdge) (int, error)
	RecordSearch(ctx context.Context, log *models.SearchLog) error

	// Stats
	Stats(ctx context.Context) (*models.CatalogStats, error)

	Close() error
}
