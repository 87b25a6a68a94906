// Package indexer builds the catalog full-text index from the catalog store.
package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/keyword"
	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/models"
	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/storage"
	"go.uber.org/zap"
)

// CatalogSource reads item documents from the catalog store.
type CatalogSource interface {
	FindCandidates(ctx context.Context, filter *storage.CandidateFilter) ([]*models.ItemDocument, error)
}

// Indexer copies the catalog into a full-text index.
type Indexer struct {
	source CatalogSource
	logger *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for progress output.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) {
		if l != nil {
			idx.logger = l
		}
	}
}

// NewIndexer creates an indexer reading from source.
func NewIndexer(source CatalogSource, opts ...IndexerOption) *Indexer {
	idx := &Indexer{
		source: source,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// IndexInto adds every catalog item to target and returns how many were indexed.
func (idx *Indexer) IndexInto(ctx context.Context, target keyword.FullTextIndex) (int, error) {
	docs, err := idx.source.FindCandidates(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("read catalog: %w", err)
	}
	prepared := make([]*models.ItemDocument, len(docs))
	for i, d := range docs {
		prepared[i] = prepareDocument(d)
	}
	if err := target.IndexItems(ctx, prepared); err != nil {
		return 0, fmt.Errorf("index items: %w", err)
	}
	return len(prepared), nil
}

// Rebuild replaces the index at path with a fresh copy of the catalog.
// The index is closed before returning.
func (idx *Indexer) Rebuild(ctx context.Context, path string) (int, error) {
	start := time.Now()
	target, err := keyword.ResetCatalogIndex(path)
	if err != nil {
		return 0, fmt.Errorf("reset index: %w", err)
	}
	n, err := idx.IndexInto(ctx, target)
	if cerr := target.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close index: %w", cerr)
	}
	if err != nil {
		return 0, err
	}
	idx.logger.Info("Full-text index rebuilt",
		zap.String("path", path),
		zap.Int("items", n),
		zap.Duration("took", time.Since(start)),
	)
	return n, nil
}
