package ranking

// RankingConfig holds the relevance bonuses. Every value is overridable from
// the ranking section of the config file; zero values take the defaults.
type RankingConfig struct {
	// Literal substring match of an original query token
	NameMatchBonus         float64 `yaml:"name_match_bonus"`         // default: 10
	DescriptionMatchBonus  float64 `yaml:"description_match_bonus"`  // default: 8
	ManufacturerMatchBonus float64 `yaml:"manufacturer_match_bonus"` // default: 6
	ModelMatchBonus        float64 `yaml:"model_match_bonus"`        // default: 4

	// Full-text prefix match of a token
	FullTextMinTokenLength    int     `yaml:"fulltext_min_token_length"`   // default: 3
	FullTextItemBonus         float64 `yaml:"fulltext_item_bonus"`         // default: 5 (name or description)
	FullTextManufacturerBonus float64 `yaml:"fulltext_manufacturer_bonus"` // default: 3
	FullTextModelBonus        float64 `yaml:"fulltext_model_bonus"`        // default: 2

	// Synonym match, multiplied by the edge weight
	SynonymNameMultiplier         float64 `yaml:"synonym_name_multiplier"`         // default: 3
	SynonymManufacturerMultiplier float64 `yaml:"synonym_manufacturer_multiplier"` // default: 2
	SynonymModelMultiplier        float64 `yaml:"synonym_model_multiplier"`        // default: 1

	// Near-duplicate match
	FuzzyScoreDistance     int     `yaml:"fuzzy_score_distance"`     // default: 1
	FuzzyNameBonus         float64 `yaml:"fuzzy_name_bonus"`         // default: 2
	FuzzyManufacturerBonus float64 `yaml:"fuzzy_manufacturer_bonus"` // default: 1
	FuzzyModelBonus        float64 `yaml:"fuzzy_model_bonus"`        // default: 1
}

// DefaultRankingConfig returns the default ranking configuration.
func DefaultRankingConfig() *RankingConfig {
	return &RankingConfig{
		NameMatchBonus:         10,
		DescriptionMatchBonus:  8,
		ManufacturerMatchBonus: 6,
		ModelMatchBonus:        4,

		FullTextMinTokenLength:    3,
		FullTextItemBonus:         5,
		FullTextManufacturerBonus: 3,
		FullTextModelBonus:        2,

		SynonymNameMultiplier:         3,
		SynonymManufacturerMultiplier: 2,
		SynonymModelMultiplier:        1,

		FuzzyScoreDistance:     1,
		FuzzyNameBonus:         2,
		FuzzyManufacturerBonus: 1,
		FuzzyModelBonus:        1,
	}
}

// ApplyDefaults fills in zero values with defaults.
func (c *RankingConfig) ApplyDefaults() {
	defaults := DefaultRankingConfig()

	// Field matches
	if c.NameMatchBonus == 0 {
		c.NameMatchBonus = defaults.NameMatchBonus
	}
	if c.DescriptionMatchBonus == 0 {
		c.DescriptionMatchBonus = defaults.DescriptionMatchBonus
	}
	if c.ManufacturerMatchBonus == 0 {
		c.ManufacturerMatchBonus = defaults.ManufacturerMatchBonus
	}
	if c.ModelMatchBonus == 0 {
		c.ModelMatchBonus = defaults.ModelMatchBonus
	}

	// Full-text
	if c.FullTextMinTokenLength == 0 {
		c.FullTextMinTokenLength = defaults.FullTextMinTokenLength
	}
	if c.FullTextItemBonus == 0 {
		c.FullTextItemBonus = defaults.FullTextItemBonus
	}
	if c.FullTextManufacturerBonus == 0 {
		c.FullTextManufacturerBonus = defaults.FullTextManufacturerBonus
	}
	if c.FullTextModelBonus == 0 {
		c.FullTextModelBonus = defaults.FullTextModelBonus
	}

	// Synonyms
	if c.SynonymNameMultiplier == 0 {
		c.SynonymNameMultiplier = defaults.SynonymNameMultiplier
	}
	if c.SynonymManufacturerMultiplier == 0 {
		c.SynonymManufacturerMultiplier = defaults.SynonymManufacturerMultiplier
	}
	if c.SynonymModelMultiplier == 0 {
		c.SynonymModelMultiplier = defaults.SynonymModelMultiplier
	}

	// Fuzzy
	if c.FuzzyScoreDistance == 0 {
		c.FuzzyScoreDistance = defaults.FuzzyScoreDistance
	}
	if c.FuzzyNameBonus == 0 {
		c.FuzzyNameBonus = defaults.FuzzyNameBonus
	}
	if c.FuzzyManufacturerBonus == 0 {
		c.FuzzyManufacturerBonus = defaults.FuzzyManufacturerBonus
	}
	if c.FuzzyModelBonus == 0 {
		c.FuzzyModelBonus = defaults.FuzzyModelBonus
	}
}

// RecommendConfig holds the recommendation blend.
type RecommendConfig struct {
	SalesWeight       float64 `yaml:"sales_weight"`        // default: 0.5
	FreshnessWeight   float64 `yaml:"freshness_weight"`    // default: 0.3
	MarginWeight      float64 `yaml:"margin_weight"`       // default: 0.2
	FreshnessHalfDays float64 `yaml:"freshness_half_days"` // default: 30
	MarginCap         float64 `yaml:"margin_cap"`          // default: 2.0
}

// DefaultRecommendConfig returns the default recommendation configuration.
func DefaultRecommendConfig() *RecommendConfig {
	return &RecommendConfig{
		SalesWeight:       0.5,
		FreshnessWeight:   0.3,
		MarginWeight:      0.2,
		FreshnessHalfDays: 30,
		MarginCap:         2.0,
	}
}

// ApplyDefaults fills in zero values with defaults.
func (c *RecommendConfig) ApplyDefaults() {
	defaults := DefaultRecommendConfig()

	if c.SalesWeight == 0 {
		c.SalesWeight = defaults.SalesWeight
	}
	if c.FreshnessWeight == 0 {
		c.FreshnessWeight = defaults.FreshnessWeight
	}
	if c.MarginWeight == 0 {
		c.MarginWeight = defaults.MarginWeight
	}
	if c.FreshnessHalfDays == 0 {
		c.FreshnessHalfDays = defaults.FreshnessHalfDays
	}
	if c.MarginCap == 0 {
		c.MarginCap = defaults.MarginCap
	}
}
