package ranking

import "testing"

func TestRankingConfig_ApplyDefaults(t *testing.T) {
	c := &RankingConfig{NameMatchBonus: 12, FuzzyModelBonus: 0.5}
	c.ApplyDefaults()
	d := DefaultRankingConfig()

	if c.NameMatchBonus != 12 {
		t.Errorf("NameMatchBonus = %v, want 12", c.NameMatchBonus)
	}
	if c.FuzzyModelBonus != 0.5 {
		t.Errorf("FuzzyModelBonus = %v, want 0.5", c.FuzzyModelBonus)
	}
	if c.DescriptionMatchBonus != d.DescriptionMatchBonus ||
		c.FullTextItemBonus != d.FullTextItemBonus ||
		c.SynonymNameMultiplier != d.SynonymNameMultiplier ||
		c.FullTextMinTokenLength != d.FullTextMinTokenLength ||
		c.FuzzyScoreDistance != d.FuzzyScoreDistance {
		t.Errorf("defaults not applied: %+v", c)
	}
}

func TestDefaultRankingConfig(t *testing.T) {
	d := DefaultRankingConfig()
	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"name", d.NameMatchBonus, 10},
		{"description", d.DescriptionMatchBonus, 8},
		{"manufacturer", d.ManufacturerMatchBonus, 6},
		{"model", d.ModelMatchBonus, 4},
		{"fulltext item", d.FullTextItemBonus, 5},
		{"fulltext manufacturer", d.FullTextManufacturerBonus, 3},
		{"fulltext model", d.FullTextModelBonus, 2},
		{"synonym name", d.SynonymNameMultiplier, 3},
		{"synonym manufacturer", d.SynonymManufacturerMultiplier, 2},
		{"synonym model", d.SynonymModelMultiplier, 1},
		{"fuzzy name", d.FuzzyNameBonus, 2},
		{"fuzzy manufacturer", d.FuzzyManufacturerBonus, 1},
		{"fuzzy model", d.FuzzyModelBonus, 1},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestRecommendConfig_ApplyDefaults(t *testing.T) {
	c := &RecommendConfig{MarginCap: 3}
	c.ApplyDefaults()
	if c.MarginCap != 3 || c.SalesWeight != 0.5 || c.FreshnessWeight != 0.3 || c.MarginWeight != 0.2 || c.FreshnessHalfDays != 30 {
		t.Errorf("ApplyDefaults = %+v", c)
	}
}
