// Package ranking provides query expansion, relevance scoring and
// recommendation scoring for catalog items.
package ranking

import (
	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/keyword"
	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/models"
)

// ScoreBreakdown provides detailed scoring information for debugging.
type ScoreBreakdown struct {
	FieldScore    float64 `json:"field_score"`
	FullTextScore float64 `json:"fulltext_score"`
	SynonymScore  float64 `json:"synonym_score"`
	FuzzyScore    float64 `json:"fuzzy_score"`
	FinalScore    float64 `json:"final_score"`
}

// ScoredItem is a candidate with its relevance breakdown. Breakdown is nil
// when the items were ordered by price.
type ScoredItem struct {
	Doc       *models.ItemDocument
	Breakdown *ScoreBreakdown
}

// Score returns the final relevance score, or zero when unscored.
func (s *ScoredItem) Score() float64 {
	if s.Breakdown == nil {
		return 0
	}
	return s.Breakdown.FinalScore
}

// FullTextHits records which candidates matched a token's full-text prefix
// query, per field group.
type FullTextHits struct {
	hits map[string]map[keyword.FieldGroup]map[int64]struct{}
}

// NewFullTextHits creates an empty hit set.
func NewFullTextHits() *FullTextHits {
	return &FullTextHits{hits: make(map[string]map[keyword.FieldGroup]map[int64]struct{})}
}

// Add records ids as matching token in group.
func (f *FullTextHits) Add(token string, group keyword.FieldGroup, ids map[int64]struct{}) {
	groups, ok := f.hits[token]
	if !ok {
		groups = make(map[keyword.FieldGroup]map[int64]struct{})
		f.hits[token] = groups
	}
	groups[group] = ids
}

// Has reports whether id matched token in group. A nil receiver has no hits.
func (f *FullTextHits) Has(token string, group keyword.FieldGroup, id int64) bool {
	if f == nil {
		return false
	}
	_, ok := f.hits[token][group][id]
	return ok
}
