package ranking

import (
	"math"
	"testing"
	"time"

	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/models"
)

var recommendNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestRecommendationScorer() *RecommendationScorer {
	r := NewRecommendationScorer(nil)
	r.now = func() time.Time { return recommendNow }
	return r
}

func daysAgo(d float64) time.Time {
	return recommendNow.Add(-time.Duration(d * 24 * float64(time.Hour)))
}

func TestRecommendationScorer_Formula(t *testing.T) {
	r := newTestRecommendationScorer()
	items := []*models.Item{
		{ID: 1, SKU: "A", Price: 30, CostPrice: price(10), CreatedAt: recommendNow},
		{ID: 2, SKU: "B", Price: 10, CreatedAt: daysAgo(30)},
		{ID: 3, SKU: "C", Price: 100, CostPrice: price(10), CreatedAt: daysAgo(90)},
		{ID: 4, SKU: "D", Price: 100, SalePrice: price(15), CostPrice: price(10), CreatedAt: daysAgo(30)},
	}
	sales := map[string]*models.SalesAggregate{
		"A": {SKU: "A", TotalSold: 10, OrderCount: 4},
		"B": {SKU: "B", TotalSold: 5, OrderCount: 5},
	}

	ranked := r.Rank(items, sales)
	byID := make(map[int64]models.RecommendationBreakdown)
	for _, rec := range ranked {
		byID[rec.Item.ID] = rec.Breakdown
	}

	tests := []struct {
		id         int64
		score      float64
		sales      int64
		orders     int64
		ageDays    float64
		marginPerc float64
	}{
		// 0.5*1 + 0.3*1 + 0.2*(2/2)
		{1, 1.0, 10, 4, 0, 200},
		// 0.5*0.5 + 0.3*0.5 + 0
		{2, 0.4, 5, 5, 30, 0},
		// 0 + 0.3*0.25 + 0.2*(capped 2/2)
		{3, 0.275, 0, 0, 90, 900},
		// 0 + 0.3*0.5 + 0.2*(0.5/2), sale price used
		{4, 0.2, 0, 0, 30, 50},
	}
	for _, tt := range tests {
		b := byID[tt.id]
		if math.Abs(b.Score-tt.score) > 1e-9 {
			t.Errorf("item %d score = %v, want %v", tt.id, b.Score, tt.score)
		}
		if b.SalesVolume != tt.sales || b.OrderCount != tt.orders {
			t.Errorf("item %d sales = %d/%d, want %d/%d", tt.id, b.SalesVolume, b.OrderCount, tt.sales, tt.orders)
		}
		if math.Abs(b.AgeDays-tt.ageDays) > 1e-9 {
			t.Errorf("item %d age = %v, want %v", tt.id, b.AgeDays, tt.ageDays)
		}
		if math.Abs(b.MarginPercent-tt.marginPerc) > 1e-9 {
			t.Errorf("item %d margin = %v, want %v", tt.id, b.MarginPercent, tt.marginPerc)
		}
	}

	wantOrder := []int64{1, 2, 3, 4}
	for i, rec := range ranked {
		if rec.Item.ID != wantOrder[i] {
			t.Errorf("rank %d = item %d, want %d", i, rec.Item.ID, wantOrder[i])
		}
	}
}

func TestRecommendationScorer_IgnoresSalesOutsideCatalog(t *testing.T) {
	r := newTestRecommendationScorer()
	items := []*models.Item{{ID: 1, SKU: "A", Price: 10, CreatedAt: recommendNow}}
	sales := map[string]*models.SalesAggregate{
		"A":       {SKU: "A", TotalSold: 10, OrderCount: 2},
		"DELETED": {SKU: "DELETED", TotalSold: 1000, OrderCount: 50},
	}

	ranked := r.Rank(items, sales)
	if len(ranked) != 1 {
		t.Fatalf("got %d recommendations, want 1", len(ranked))
	}
	// 0.5*10/10 + 0.3*1 + 0
	if got := ranked[0].Breakdown.Score; math.Abs(got-0.8) > 1e-9 {
		t.Errorf("score = %v, want 0.8", got)
	}
}

func TestRecommendationScorer_SalesMonotonic(t *testing.T) {
	r := newTestRecommendationScorer()
	prev := -1.0
	for sold := int64(0); sold <= 50; sold += 5 {
		items := []*models.Item{
			{ID: 1, SKU: "X", Price: 20, CostPrice: price(10), CreatedAt: daysAgo(10)},
			{ID: 2, SKU: "TOP", Price: 20, CreatedAt: daysAgo(10)},
		}
		sales := map[string]*models.SalesAggregate{
			"X":   {SKU: "X", TotalSold: sold},
			"TOP": {SKU: "TOP", TotalSold: 50},
		}
		var score float64
		for _, rec := range r.Rank(items, sales) {
			if rec.Item.ID == 1 {
				score = rec.Breakdown.Score
			}
		}
		if score < prev {
			t.Errorf("score decreased from %v to %v at sales %d", prev, score, sold)
		}
		prev = score
	}
}

func TestRecommendationScorer_TieBreaks(t *testing.T) {
	r := newTestRecommendationScorer()
	// Items dated in the future have zero age, so their scores tie.
	items := []*models.Item{
		{ID: 5, SKU: "E", CreatedAt: recommendNow.Add(time.Hour)},
		{ID: 3, SKU: "C", CreatedAt: recommendNow.Add(2 * time.Hour)},
		{ID: 4, SKU: "D", CreatedAt: recommendNow.Add(time.Hour)},
	}
	ranked := r.Rank(items, nil)
	want := []int64{3, 4, 5}
	for i, rec := range ranked {
		if rec.Item.ID != want[i] {
			t.Fatalf("rank %d = item %d, want %d", i, rec.Item.ID, want[i])
		}
		if rec.Breakdown.AgeDays != 0 {
			t.Errorf("future item age = %v, want 0", rec.Breakdown.AgeDays)
		}
	}
}

func TestRecommendationScorer_NilSales(t *testing.T) {
	r := newTestRecommendationScorer()
	items := []*models.Item{{ID: 1, SKU: "A", CreatedAt: recommendNow}}
	ranked := r.Rank(items, nil)
	if got := ranked[0].Breakdown.Score; math.Abs(got-0.3) > 1e-9 {
		t.Errorf("score without sales = %v, want 0.3", got)
	}
}

func TestRecommendationScorer_SetConfig(t *testing.T) {
	r := newTestRecommendationScorer()
	r.SetConfig(&RecommendConfig{FreshnessWeight: 1})
	cfg := r.Config()
	if cfg.FreshnessWeight != 1 || cfg.SalesWeight != 0.5 || cfg.MarginCap != 2 {
		t.Errorf("Config = %+v", cfg)
	}
	ranked := r.Rank([]*models.Item{{ID: 1, CreatedAt: recommendNow}}, nil)
	if got := ranked[0].Breakdown.Score; math.Abs(got-1) > 1e-9 {
		t.Errorf("score = %v, want 1", got)
	}
}

func TestMarginRatio(t *testing.T) {
	tests := []struct {
		name string
		item *models.Item
		want float64
	}{
		{"no cost", &models.Item{Price: 10}, 0},
		{"zero cost", &models.Item{Price: 10, CostPrice: price(0)}, 0},
		{"list price", &models.Item{Price: 15, CostPrice: price(10)}, 0.5},
		{"sale price", &models.Item{Price: 15, SalePrice: price(12), CostPrice: price(10)}, 0.2},
		{"loss", &models.Item{Price: 5, CostPrice: price(10)}, -0.5},
	}
	for _, tt := range tests {
		if got := MarginRatio(tt.item); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("%s: MarginRatio = %v, want %v", tt.name, got, tt.want)
		}
	}
}
