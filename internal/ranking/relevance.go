package ranking

import (
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/keyword"
	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/models"
)

// RelevanceScorer computes the composite relevance score of candidate items
// and orders them for a sort mode.
type RelevanceScorer struct {
	mu     sync.RWMutex
	config *RankingConfig
}

// NewRelevanceScorer creates a scorer with the given configuration.
func NewRelevanceScorer(config *RankingConfig) *RelevanceScorer {
	if config == nil {
		config = DefaultRankingConfig()
	}
	config.ApplyDefaults()
	return &RelevanceScorer{config: config}
}

// SetConfig swaps the configuration used by later calls.
func (s *RelevanceScorer) SetConfig(config *RankingConfig) {
	if config == nil {
		config = DefaultRankingConfig()
	}
	config.ApplyDefaults()
	s.mu.Lock()
	s.config = config
	s.mu.Unlock()
}

// Config returns a copy of the current configuration.
func (s *RelevanceScorer) Config() RankingConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return *s.config
}

// fieldTexts are the lowercased texts a document is scored on.
type fieldTexts struct {
	name, description, manufacturer, model string
}

func textsOf(doc *models.ItemDocument) fieldTexts {
	return fieldTexts{
		name:         strings.ToLower(doc.Name),
		description:  strings.ToLower(doc.Description),
		manufacturer: doc.ManufacturerText(),
		model:        doc.ModelText(),
	}
}

// Score computes doc's breakdown for q. ft may be nil when no full-text
// signal is available.
func (s *RelevanceScorer) Score(doc *models.ItemDocument, q *ExpandedQuery, ft *FullTextHits) *ScoreBreakdown {
	cfg := s.Config()
	return score(&cfg, doc, textsOf(doc), q, ft)
}

func score(cfg *RankingConfig, doc *models.ItemDocument, t fieldTexts, q *ExpandedQuery, ft *FullTextHits) *ScoreBreakdown {
	b := &ScoreBreakdown{}
	for _, tok := range q.Tokens {
		// Literal substring matches of the original token.
		if strings.Contains(t.name, tok) {
			b.FieldScore += cfg.NameMatchBonus
		}
		if strings.Contains(t.description, tok) {
			b.FieldScore += cfg.DescriptionMatchBonus
		}
		if strings.Contains(t.manufacturer, tok) {
			b.FieldScore += cfg.ManufacturerMatchBonus
		}
		if strings.Contains(t.model, tok) {
			b.FieldScore += cfg.ModelMatchBonus
		}

		if utf8.RuneCountInString(tok) >= cfg.FullTextMinTokenLength {
			if ft.Has(tok, keyword.FieldGroupItem, doc.ID) {
				b.FullTextScore += cfg.FullTextItemBonus
			}
			if ft.Has(tok, keyword.FieldGroupManufacturer, doc.ID) {
				b.FullTextScore += cfg.FullTextManufacturerBonus
			}
			if ft.Has(tok, keyword.FieldGroupModel, doc.ID) {
				b.FullTextScore += cfg.FullTextModelBonus
			}
		}

		for _, syn := range q.Synonyms[tok] {
			if strings.Contains(t.name, syn.Term) {
				b.SynonymScore += syn.Weight * cfg.SynonymNameMultiplier
			}
			if strings.Contains(t.manufacturer, syn.Term) {
				b.SynonymScore += syn.Weight * cfg.SynonymManufacturerMultiplier
			}
			if strings.Contains(t.model, syn.Term) {
				b.SynonymScore += syn.Weight * cfg.SynonymModelMultiplier
			}
		}

		for _, fm := range q.Fuzzy[tok] {
			if fm.Distance > cfg.FuzzyScoreDistance {
				continue
			}
			if strings.Contains(t.name, fm.Term) {
				b.FuzzyScore += cfg.FuzzyNameBonus
			}
			if strings.Contains(t.manufacturer, fm.Term) {
				b.FuzzyScore += cfg.FuzzyManufacturerBonus
			}
			if strings.Contains(t.model, fm.Term) {
				b.FuzzyScore += cfg.FuzzyModelBonus
			}
		}
	}
	b.FinalScore = b.FieldScore + b.FullTextScore + b.SynonymScore + b.FuzzyScore
	return b
}

// Rank orders docs for mode. Relevance sorts by score descending; the price
// modes sort by effective price. Every mode breaks ties by name, then id.
func (s *RelevanceScorer) Rank(docs []*models.ItemDocument, q *ExpandedQuery, ft *FullTextHits, mode models.SortMode) []*ScoredItem {
	out := make([]*ScoredItem, len(docs))
	switch mode {
	case models.SortPriceAsc, models.SortPriceDesc:
		for i, d := range docs {
			out[i] = &ScoredItem{Doc: d}
		}
		desc := mode == models.SortPriceDesc
		sort.SliceStable(out, func(i, j int) bool {
			pi, pj := out[i].Doc.EffectivePrice(), out[j].Doc.EffectivePrice()
			if pi != pj {
				if desc {
					return pi > pj
				}
				return pi < pj
			}
			return nameLess(out[i].Doc, out[j].Doc)
		})
	default:
		cfg := s.Config()
		if q == nil {
			q = &ExpandedQuery{}
		}
		for i, d := range docs {
			out[i] = &ScoredItem{Doc: d, Breakdown: score(&cfg, d, textsOf(d), q, ft)}
		}
		sort.SliceStable(out, func(i, j int) bool {
			si, sj := out[i].Breakdown.FinalScore, out[j].Breakdown.FinalScore
			if si != sj {
				return si > sj
			}
			return nameLess(out[i].Doc, out[j].Doc)
		})
	}
	return out
}

func nameLess(a, b *models.ItemDocument) bool {
	na, nb := strings.ToLower(a.Name), strings.ToLower(b.Name)
	if na != nb {
		return na < nb
	}
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return a.ID < b.ID
}
