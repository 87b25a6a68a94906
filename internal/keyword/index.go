package keyword

import (
	"context"
	"errors"

	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/models"
)

// ErrIndexNotProvisioned is returned when the full-text index has not been built yet.
var ErrIndexNotProvisioned = errors.New("full-text index not provisioned")

// FieldGroup is a set of indexed fields that earn the same full-text bonus.
type FieldGroup string

const (
	// FieldGroupItem covers the item name and description.
	FieldGroupItem FieldGroup = "item"
	// FieldGroupManufacturer covers the names of the item's manufacturers.
	FieldGroupManufacturer FieldGroup = "manufacturer"
	// FieldGroupModel covers the names and variants of the item's vehicle models.
	FieldGroupModel FieldGroup = "model"
)

// FieldGroups lists every group in scoring order.
var FieldGroups = []FieldGroup{FieldGroupItem, FieldGroupManufacturer, FieldGroupModel}

// indexedFields maps a group to the document fields it searches.
var indexedFields = map[FieldGroup][]string{
	FieldGroupItem:         {"name", "description"},
	FieldGroupManufacturer: {"manufacturer"},
	FieldGroupModel:        {"model"},
}

// FullTextIndex is the catalog's native full-text capability.
type FullTextIndex interface {
	// IndexItems adds or replaces the given item documents.
	IndexItems(ctx context.Context, docs []*models.ItemDocument) error
	// MatchPrefix returns the subset of ids whose group fields contain a word starting with term.
	MatchPrefix(ctx context.Context, group FieldGroup, term string, ids []int64) (map[int64]struct{}, error)
	// DocCount returns the total number of documents in the index.
	DocCount() (uint64, error)
	Close() error
}
