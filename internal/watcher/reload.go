package watcher

import (
	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/config"
	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/ranking"
	"go.uber.org/zap"
)

// RankingTarget takes new relevance bonuses.
type RankingTarget interface {
	SetConfig(config *ranking.RankingConfig)
}

// RecommendTarget takes new recommendation weights.
type RecommendTarget interface {
	SetConfig(config *ranking.RecommendConfig)
}

// Invalidator is a cache dropped on reload.
type Invalidator interface {
	Invalidate()
}

// ConfigReloader applies a reloaded config to the running components.
type ConfigReloader struct {
	relevance RankingTarget
	recommend RecommendTarget
	caches    []Invalidator
	logger    *zap.Logger
}

// NewConfigReloader creates a reloader. Either target may be nil.
func NewConfigReloader(relevance RankingTarget, recommend RecommendTarget, caches []Invalidator, logger *zap.Logger) *ConfigReloader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConfigReloader{
		relevance: relevance,
		recommend: recommend,
		caches:    caches,
		logger:    logger,
	}
}

// Reload loads path and applies it. On error nothing is changed.
func (r *ConfigReloader) Reload(path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	r.Apply(cfg)
	return nil
}

// Apply swaps the weights and drops every cache.
func (r *ConfigReloader) Apply(cfg *config.Config) {
	if r.relevance != nil {
		rc := cfg.Ranking
		r.relevance.SetConfig(&rc)
	}
	if r.recommend != nil {
		rc := cfg.Recommend
		r.recommend.SetConfig(&rc)
	}
	for _, c := range r.caches {
		c.Invalidate()
	}
	r.logger.Info("Configuration reloaded", zap.Int("caches_invalidated", len(r.caches)))
}

// OnChange returns a watcher callback that reloads the file and logs failures.
func (r *ConfigReloader) OnChange() func(path string) {
	return func(path string) {
		if err := r.Reload(path); err != nil {
			r.logger.Warn("Configuration reload failed, keeping previous settings", zap.String("path", path), zap.Error(err))
		}
	}
}
