// Package search runs catalog text/filter searches and the recommendation feed.
package search

import (
	"context"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/analytics"
	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/keyword"
	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/metrics"
	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/models"
	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/ranking"
	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/storage"
	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/pkg/utils"
	"go.uber.org/zap"
)

// CatalogReader is the part of the catalog store the engine reads from.
type CatalogReader interface {
	FindCandidates(ctx context.Context, filter *storage.CandidateFilter) ([]*models.ItemDocument, error)
	ListItems(ctx context.Context) ([]*models.Item, error)
	SalesBySKU(ctx context.Context) (map[string]*models.SalesAggregate, error)
	LoadRelations(ctx context.Context, itemIDs []int64) (map[int64]*models.ItemRelations, error)
}

// ClosureResolver expands a category id to itself plus its descendants.
type ClosureResolver interface {
	DescendantsOf(ctx context.Context, categoryID int64) []int64
}

// EventReporter receives analytics events. It must not block.
type EventReporter interface {
	Report(event *analytics.Event)
}

// Engine answers search and recommendation requests over the catalog.
type Engine struct {
	store       CatalogReader
	fullText    keyword.FullTextIndex
	closure     ClosureResolver
	expander    *ranking.QueryExpander
	scorer      *ranking.RelevanceScorer
	recommender *ranking.RecommendationScorer
	reporter    EventReporter
	logger      *zap.Logger
}

// EngineOption is a functional option for configuring Engine.
type EngineOption func(*Engine)

// WithFullTextIndex provisions the full-text capability. Without it text
// searches fail with ErrFullTextUnavailable.
func WithFullTextIndex(idx keyword.FullTextIndex) EngineOption {
	return func(e *Engine) {
		e.fullText = idx
	}
}

// WithReporter sets where analytics events go.
func WithReporter(r EventReporter) EngineOption {
	return func(e *Engine) {
		if r != nil {
			e.reporter = r
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates a search engine with the given dependencies.
func NewEngine(
	store CatalogReader,
	closure ClosureResolver,
	expander *ranking.QueryExpander,
	scorer *ranking.RelevanceScorer,
	recommender *ranking.RecommendationScorer,
	opts ...EngineOption,
) *Engine {
	e := &Engine{
		store:       store,
		closure:     closure,
		expander:    expander,
		scorer:      scorer,
		recommender: recommender,
		reporter:    nopReporter{},
		logger:      zap.NewNop(),
	}
	if e.expander == nil {
		e.expander = ranking.NewQueryExpander(nil, nil)
	}
	if e.scorer == nil {
		e.scorer = ranking.NewRelevanceScorer(nil)
	}
	if e.recommender == nil {
		e.recommender = ranking.NewRecommendationScorer(nil)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// FullTextAvailable reports whether text searches can be served.
func (e *Engine) FullTextAvailable() bool {
	return e.fullText != nil
}

// Search runs a text and/or filter search and returns one page of items.
func (e *Engine) Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResult, error) {
	startTime := time.Now()
	mode := analytics.ModeFilter
	if query.HasText() {
		mode = analytics.ModeText
	}

	if err := query.Validate(); err != nil {
		e.finish(mode, searchParams(query, nil, nil), 0, startTime, err)
		return nil, err
	}
	if query.HasText() && e.fullText == nil {
		e.finish(mode, searchParams(query, nil, nil), 0, startTime, ErrFullTextUnavailable)
		return nil, ErrFullTextUnavailable
	}

	var categoryIDs []int64
	if query.CategoryID > 0 {
		categoryIDs = e.closure.DescendantsOf(ctx, query.CategoryID)
	}

	expanded := e.expander.Expand(ctx, query.Query)
	params := searchParams(query, expanded.Tokens, categoryIDs)

	docs, err := e.store.FindCandidates(ctx, &storage.CandidateFilter{
		Tokens:         expanded.Tokens,
		ManufacturerID: query.ManufacturerID,
		CategoryIDs:    categoryIDs,
		ModelIDs:       query.ModelIDs,
	})
	if err != nil {
		err = fmt.Errorf("find candidates: %w", err)
		e.finish(mode, params, 0, startTime, err)
		return nil, err
	}
	total := len(docs)

	var hits *ranking.FullTextHits
	if query.Sort == models.SortRelevance && len(expanded.Tokens) > 0 && total > 0 {
		hits = e.fullTextHits(ctx, expanded, docs)
	}

	ranked := e.scorer.Rank(docs, expanded, hits, query.Sort)
	start, end := models.PageBounds(query.Offset(), query.PageSize, total)
	page := ranked[start:end]

	ids := make([]int64, len(page))
	for i, r := range page {
		ids[i] = r.Doc.ID
	}
	relations := e.loadRelations(ctx, ids)

	withScore := query.Sort == models.SortRelevance && query.HasText()
	items := make([]*models.ItemView, 0, len(page))
	for _, r := range page {
		view := models.NewItemView(&r.Doc.Item, relations[r.Doc.ID])
		if withScore {
			s := utils.Round(r.Score(), 4)
			view.RelevanceScore = &s
		}
		items = append(items, view)
	}

	result := &models.SearchResult{
		Items:      items,
		Pagination: models.NewPagination(query.Page, query.PageSize, total),
		Params:     params,
		QueryTime:  time.Since(startTime).Milliseconds(),
	}
	e.logger.Debug("Search completed",
		zap.String("mode", mode),
		zap.String("query", query.Query),
		zap.Int("total", total),
		zap.Int("returned", len(items)),
	)
	e.finish(mode, params, total, startTime, nil)
	return result, nil
}

// fullTextHits runs the prefix query of every eligible token against every
// field group, restricted to the candidates. Any failure drops the whole
// full-text tier for this request.
func (e *Engine) fullTextHits(ctx context.Context, q *ranking.ExpandedQuery, docs []*models.ItemDocument) *ranking.FullTextHits {
	minLen := e.scorer.Config().FullTextMinTokenLength
	ids := make([]int64, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}

	var (
		hits    = ranking.NewFullTextHits()
		mu      sync.Mutex
		wg      sync.WaitGroup
		errChan = make(chan error, len(q.Tokens)*len(keyword.FieldGroups))
	)
	for _, tok := range q.Tokens {
		if utf8.RuneCountInString(tok) < minLen {
			continue
		}
		term := q.FullTextTerm(tok)
		for _, group := range keyword.FieldGroups {
			wg.Add(1)
			go func(tok, term string, group keyword.FieldGroup) {
				defer wg.Done()
				matched, err := e.fullText.MatchPrefix(ctx, group, term, ids)
				if err != nil {
					errChan <- fmt.Errorf("full-text %s %q: %w", group, term, err)
					return
				}
				mu.Lock()
				hits.Add(tok, group, matched)
				mu.Unlock()
			}(tok, term, group)
		}
	}

	wg.Wait()
	close(errChan)
	for err := range errChan {
		if err != nil {
			e.logger.Warn("Full-text read failed, ranking without it", zap.Error(err))
			metrics.RecordDegraded(metrics.FeatureFullText)
			return nil
		}
	}
	return hits
}

// loadRelations reads the page's relations. A failure returns no relations
// and the items are served without them.
func (e *Engine) loadRelations(ctx context.Context, ids []int64) map[int64]*models.ItemRelations {
	if len(ids) == 0 {
		return nil
	}
	relations, err := e.store.LoadRelations(ctx, ids)
	if err != nil {
		e.logger.Warn("Relation read failed, serving items without relations", zap.Int("items", len(ids)), zap.Error(err))
		metrics.RecordDegraded(metrics.FeatureRelations)
		return nil
	}
	return relations
}

// Recommend ranks the whole catalog by sales, freshness and margin and
// returns one page.
func (e *Engine) Recommend(ctx context.Context, query *models.RecommendQuery) (*models.RecommendationResult, error) {
	startTime := time.Now()
	cfg := e.recommender.Config()
	params := models.RecommendationParams{
		SalesWeight:       cfg.SalesWeight,
		FreshnessWeight:   cfg.FreshnessWeight,
		MarginWeight:      cfg.MarginWeight,
		FreshnessHalfDays: cfg.FreshnessHalfDays,
		MarginCap:         cfg.MarginCap,
		Page:              query.Page,
		PageSize:          query.PageSize,
	}

	if err := query.Validate(); err != nil {
		e.finish(analytics.ModeRecommend, params, 0, startTime, err)
		return nil, err
	}

	items, err := e.store.ListItems(ctx)
	if err != nil {
		err = fmt.Errorf("list items: %w", err)
		e.finish(analytics.ModeRecommend, params, 0, startTime, err)
		return nil, err
	}

	sales, err := e.store.SalesBySKU(ctx)
	if err != nil {
		e.logger.Warn("Sales read failed, recommending without sales", zap.Error(err))
		metrics.RecordDegraded(metrics.FeatureSales)
		sales = nil
		params.SalesDegraded = true
	}

	ranked := e.recommender.Rank(items, sales)
	total := len(ranked)
	start, end := models.PageBounds(query.Offset(), query.PageSize, total)
	page := ranked[start:end]

	ids := make([]int64, len(page))
	for i, r := range page {
		ids[i] = r.Item.ID
	}
	relations := e.loadRelations(ctx, ids)

	views := make([]*models.ItemView, 0, len(page))
	for _, r := range page {
		view := models.NewItemView(r.Item, relations[r.Item.ID])
		b := r.Breakdown
		b.Score = utils.Round(b.Score, 4)
		b.AgeDays = utils.Round(b.AgeDays, 2)
		b.MarginPercent = utils.Round(b.MarginPercent, 2)
		view.Recommendation = &b
		views = append(views, view)
	}

	result := &models.RecommendationResult{
		Items:      views,
		Pagination: models.NewPagination(query.Page, query.PageSize, total),
		Params:     params,
		QueryTime:  time.Since(startTime).Milliseconds(),
	}
	e.finish(analytics.ModeRecommend, params, total, startTime, nil)
	return result, nil
}

// finish records metrics and reports the analytics event of one call.
func (e *Engine) finish(mode string, params interface{}, total int, startTime time.Time, err error) {
	elapsed := time.Since(startTime)
	metrics.RecordSearch(mode, elapsed, total, err)
	e.reporter.Report(analytics.NewEvent(mode, params, total, elapsed))
}

func searchParams(q *models.SearchQuery, tokens []string, categoryIDs []int64) models.SearchParams {
	return models.SearchParams{
		Query:               q.Query,
		Tokens:              tokens,
		ManufacturerID:      q.ManufacturerID,
		CategoryID:          q.CategoryID,
		ResolvedCategoryIDs: categoryIDs,
		ModelIDs:            q.ModelIDs,
		Sort:                q.Sort,
		Page:                q.Page,
		PageSize:            q.PageSize,
	}
}

type nopReporter struct{}

func (nopReporter) Report(*analytics.Event) {}
