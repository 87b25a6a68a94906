package keyword

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/models"
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
)

// indexBatchSize bounds how many documents go into one bleve batch.
const indexBatchSize = 500

// CatalogIndex implements FullTextIndex using Bleve.
type CatalogIndex struct {
	index bleve.Index
	path  string
}

func newIndexMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer lowercases and tokenizes without stemming, so prefix
	// queries see the words as written in the catalog.
	textFieldMapping.Analyzer = standard.Name
	for _, fields := range indexedFields {
		for _, f := range fields {
			docMapping.AddFieldMappingsAt(f, textFieldMapping)
		}
	}
	im.AddDocumentMapping("item", docMapping)
	im.DefaultType = "item"
	im.DefaultMapping = docMapping
	return im
}

// NewCatalogIndex creates or opens a Bleve index at path.
// If you change the index mapping in code, use ResetCatalogIndex to rebuild it.
func NewCatalogIndex(path string) (*CatalogIndex, error) {
	if _, err := os.Stat(path); err == nil {
		return OpenCatalogIndex(path)
	}
	index, err := bleve.New(path, newIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &CatalogIndex{index: index, path: path}, nil
}

// OpenCatalogIndex opens an existing index. It returns ErrIndexNotProvisioned
// when nothing has been built at path.
func OpenCatalogIndex(path string) (*CatalogIndex, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w at %s", ErrIndexNotProvisioned, path)
	}
	index, err := bleve.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Bleve index: %w", err)
	}
	return &CatalogIndex{index: index, path: path}, nil
}

// ResetCatalogIndex removes any index at path and creates an empty one.
func ResetCatalogIndex(path string) (*CatalogIndex, error) {
	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("failed to remove Bleve index: %w", err)
	}
	return NewCatalogIndex(path)
}

// Path returns the index directory.
func (c *CatalogIndex) Path() string { return c.path }

// IndexItems indexes docs in batches, keyed by item id.
func (c *CatalogIndex) IndexItems(ctx context.Context, docs []*models.ItemDocument) error {
	batch := c.index.NewBatch()
	for _, d := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := batch.Index(docID(d.ID), indexedDocument(d)); err != nil {
			return fmt.Errorf("index item %d: %w", d.ID, err)
		}
		if batch.Size() >= indexBatchSize {
			if err := c.index.Batch(batch); err != nil {
				return fmt.Errorf("Bleve batch failed: %w", err)
			}
			batch.Reset()
		}
	}
	if batch.Size() > 0 {
		if err := c.index.Batch(batch); err != nil {
			return fmt.Errorf("Bleve batch failed: %w", err)
		}
	}
	return nil
}

func indexedDocument(d *models.ItemDocument) map[string]interface{} {
	return map[string]interface{}{
		"name":         d.Name,
		"description":  d.Description,
		"manufacturer": d.ManufacturerText(),
		"model":        d.ModelText(),
	}
}

// MatchPrefix runs a prefix query over the group's fields restricted to ids.
func (c *CatalogIndex) MatchPrefix(ctx context.Context, group FieldGroup, term string, ids []int64) (map[int64]struct{}, error) {
	matched := make(map[int64]struct{})
	fields, ok := indexedFields[group]
	if !ok {
		return nil, fmt.Errorf("unknown field group %q", group)
	}
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" || len(ids) == 0 {
		return matched, nil
	}

	prefixes := make([]blevequery.Query, 0, len(fields))
	for _, f := range fields {
		pq := bleve.NewPrefixQuery(term)
		pq.SetField(f)
		prefixes = append(prefixes, pq)
	}
	docIDs := make([]string, len(ids))
	for i, id := range ids {
		docIDs[i] = docID(id)
	}
	q := bleve.NewConjunctionQuery(
		bleve.NewDocIDQuery(docIDs),
		bleve.NewDisjunctionQuery(prefixes...),
	)

	req := bleve.NewSearchRequest(q)
	req.Size = len(ids)
	results, err := c.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve prefix search failed: %w", err)
	}
	for _, hit := range results.Hits {
		id, err := strconv.ParseInt(hit.ID, 10, 64)
		if err != nil {
			continue
		}
		matched[id] = struct{}{}
	}
	return matched, nil
}

// DocCount returns the total number of documents in the index.
func (c *CatalogIndex) DocCount() (uint64, error) {
	return c.index.DocCount()
}

// Close closes the Bleve index.
func (c *CatalogIndex) Close() error {
	return c.index.Close()
}

func docID(id int64) string {
	return strconv.FormatInt(id, 10)
}
