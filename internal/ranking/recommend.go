package ranking

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/models"
)

// Recommendation is an item with its recommendation score and raw components.
type Recommendation struct {
	Item      *models.Item
	Breakdown models.RecommendationBreakdown
}

// RecommendationScorer ranks the whole catalog by a blend of sales volume,
// freshness and margin.
type RecommendationScorer struct {
	mu     sync.RWMutex
	config *RecommendConfig
	now    func() time.Time
}

// NewRecommendationScorer creates a scorer with the given configuration.
func NewRecommendationScorer(config *RecommendConfig) *RecommendationScorer {
	if config == nil {
		config = DefaultRecommendConfig()
	}
	config.ApplyDefaults()
	return &RecommendationScorer{config: config, now: time.Now}
}

// SetConfig swaps the configuration used by later calls.
func (r *RecommendationScorer) SetConfig(config *RecommendConfig) {
	if config == nil {
		config = DefaultRecommendConfig()
	}
	config.ApplyDefaults()
	r.mu.Lock()
	r.config = config
	r.mu.Unlock()
}

// Config returns a copy of the current configuration.
func (r *RecommendationScorer) Config() RecommendConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return *r.config
}

// Rank scores every item and orders them by score descending, then newest
// first, then id. A nil sales map scores every item with zero sales.
func (r *RecommendationScorer) Rank(items []*models.Item, sales map[string]*models.SalesAggregate) []*Recommendation {
	cfg := r.Config()
	now := r.now()

	// Aggregates of SKUs outside items do not take part in normalization.
	var maxSales int64
	for _, item := range items {
		if agg, ok := sales[item.SKU]; ok && agg.TotalSold > maxSales {
			maxSales = agg.TotalSold
		}
	}
	salesNorm := float64(maxSales)
	if salesNorm < 1 {
		salesNorm = 1
	}

	out := make([]*Recommendation, len(items))
	for i, item := range items {
		var sold, orders int64
		if agg, ok := sales[item.SKU]; ok {
			sold, orders = agg.TotalSold, agg.OrderCount
		}

		ageDays := now.Sub(item.CreatedAt).Hours() / 24
		if ageDays < 0 {
			ageDays = 0
		}
		freshness := 1 / (1 + ageDays/cfg.FreshnessHalfDays)

		margin := MarginRatio(item)
		normMargin := math.Min(margin, cfg.MarginCap) / cfg.MarginCap

		score := cfg.SalesWeight*(float64(sold)/salesNorm) +
			cfg.FreshnessWeight*freshness +
			cfg.MarginWeight*normMargin

		out[i] = &Recommendation{
			Item: item,
			Breakdown: models.RecommendationBreakdown{
				Score:         score,
				SalesVolume:   sold,
				OrderCount:    orders,
				AgeDays:       ageDays,
				MarginPercent: margin * 100,
			},
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Breakdown.Score != b.Breakdown.Score {
			return a.Breakdown.Score > b.Breakdown.Score
		}
		if !a.Item.CreatedAt.Equal(b.Item.CreatedAt) {
			return a.Item.CreatedAt.After(b.Item.CreatedAt)
		}
		return a.Item.ID < b.Item.ID
	})
	return out
}

// MarginRatio is (effective price - cost) / cost, or zero without a positive cost.
func MarginRatio(item *models.Item) float64 {
	if item.CostPrice == nil || *item.CostPrice <= 0 {
		return 0
	}
	cost := *item.CostPrice
	return (item.EffectivePrice() - cost) / cost
}
