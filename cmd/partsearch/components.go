package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/analytics"
	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/catalog"
	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/config"
	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/keyword"
	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/ranking"
	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/search"
	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/server"
	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/storage"
	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/watcher"
)

// Components holds initialized services.
type Components struct {
	Storage    *storage.SQLiteStorage
	FullText   *keyword.CatalogIndex
	Closure    *catalog.CategoryClosureIndex
	Synonyms   *catalog.SynonymTable
	Vocabulary *keyword.VocabularyProvider
	Relevance  *ranking.RelevanceScorer
	Recommend  *ranking.RecommendationScorer
	Reporter   *analytics.Reporter
	Engine     *search.Engine
}

// Caches returns the invalidatable caches keyed by their API name.
func (c *Components) Caches() server.Caches {
	return server.Caches{
		"category_closure": c.Closure,
		"synonyms":         c.Synonyms,
		"vocabulary":       c.Vocabulary,
	}
}

// Invalidators returns the caches dropped on config reload.
func (c *Components) Invalidators() []watcher.Invalidator {
	return []watcher.Invalidator{c.Closure, c.Synonyms, c.Vocabulary}
}

func (c *Components) Close() {
	if c.Reporter != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = c.Reporter.Close(ctx)
		cancel()
	}
	if c.FullText != nil {
		_ = c.FullText.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	c := &Components{Storage: store}

	fullText, err := keyword.OpenCatalogIndex(cfg.Storage.BleveIndexPath)
	switch {
	case err == nil:
		c.FullText = fullText
	case errors.Is(err, keyword.ErrIndexNotProvisioned):
		logger.Warn("Full-text index not built; text search is unavailable until `partsearch reindex` runs",
			zap.String("path", cfg.Storage.BleveIndexPath))
	default:
		logger.Warn("Full-text index could not be opened; text search is unavailable", zap.Error(err))
	}

	cacheOpts := []catalog.Option{
		catalog.WithLogger(logger),
		catalog.WithMaxAge(cfg.Search.CacheMaxAge()),
	}
	c.Closure = catalog.NewCategoryClosureIndex(store, cacheOpts...)
	c.Synonyms = catalog.NewSynonymTable(store, cacheOpts...)
	c.Vocabulary = keyword.NewVocabularyProvider(store,
		keyword.WithVocabularyLimit(cfg.Search.VocabularyLimit),
		keyword.WithVocabularyTTL(cfg.Search.VocabularyTTL()),
		keyword.WithVocabularyLogger(logger),
	)
	expander := ranking.NewQueryExpander(
		c.Synonyms,
		keyword.NewFuzzyMatcher(c.Vocabulary),
		ranking.WithSynonymMinWeight(cfg.Search.SynonymMinWeight),
		ranking.WithFuzzyMaxDistance(cfg.Search.FuzzyMaxDistance),
		ranking.WithExpanderLogger(logger),
	)

	rankingCfg := cfg.Ranking
	recommendCfg := cfg.Recommend
	c.Relevance = ranking.NewRelevanceScorer(&rankingCfg)
	c.Recommend = ranking.NewRecommendationScorer(&recommendCfg)

	engineOpts := []search.EngineOption{search.WithLogger(logger)}
	if c.FullText != nil {
		engineOpts = append(engineOpts, search.WithFullTextIndex(c.FullText))
	}
	if cfg.Analytics.EnabledOrDefault() {
		c.Reporter = newReporter(cfg, store, logger)
		engineOpts = append(engineOpts, search.WithReporter(c.Reporter))
	}
	c.Engine = search.NewEngine(store, c.Closure, expander, c.Relevance, c.Recommend, engineOpts...)
	return c, nil
}

// newReporter builds the analytics pipeline: reporter, circuit breaker, sink.
func newReporter(cfg *config.Config, store *storage.SQLiteStorage, logger *zap.Logger) *analytics.Reporter {
	var sink analytics.Sink
	switch cfg.Analytics.Sink {
	case config.SinkLog:
		sink = analytics.NewLogSink(logger)
	default:
		sink = analytics.NewStoreSink(store)
	}
	guarded := analytics.NewBreakerSink("analytics-"+cfg.Analytics.Sink, sink, analytics.BreakerSettings{
		FailureThreshold: cfg.Analytics.BreakerFailureThreshold,
		OpenTimeout:      cfg.Analytics.BreakerOpen(),
	}, logger)
	return analytics.NewReporter(guarded,
		analytics.WithTimeout(cfg.Analytics.Timeout()),
		analytics.WithLogger(logger),
	)
}
