package ranking

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/keyword"
	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/models"
	"go.uber.org/zap"
)

// Expansion defaults.
const (
	DefaultSynonymMinWeight = 0.8
	DefaultFuzzyMaxDistance = 2
	// Tokens longer than this many runes get a stem.
	stemMinRunes = 4
)

// SynonymSource looks up weighted synonyms. catalog.SynonymTable implements it.
type SynonymSource interface {
	SynonymsOf(ctx context.Context, term string, minWeight float64) []models.WeightedTerm
}

// FuzzySource finds near-duplicates in a vocabulary snapshot. keyword.FuzzyMatcher implements it.
type FuzzySource interface {
	Snapshot(ctx context.Context) (*keyword.VocabularySnapshot, error)
	Match(snap *keyword.VocabularySnapshot, term string, maxDistance int) []keyword.FuzzyMatch
}

// ExpandedQuery is a tokenized query plus the terms it was broadened with.
// Only Tokens decide which items are candidates; the rest only add ranking weight.
type ExpandedQuery struct {
	Raw          string
	Tokens       []string
	Synonyms     map[string][]models.WeightedTerm
	Fuzzy        map[string][]keyword.FuzzyMatch
	Stems        map[string]string
	FuzzySkipped bool
}

// Terms returns the de-duplicated union of tokens, synonyms, near-duplicates and stems.
func (q *ExpandedQuery) Terms() []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, len(q.Tokens))
	add := func(t string) {
		if _, ok := seen[t]; ok {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	for _, tok := range q.Tokens {
		add(tok)
		for _, s := range q.Synonyms[tok] {
			add(s.Term)
		}
		for _, f := range q.Fuzzy[tok] {
			add(f.Term)
		}
		if stem, ok := q.Stems[tok]; ok {
			add(stem)
		}
	}
	return out
}

// FullTextTerm returns the term used for tok's full-text prefix query: its stem when it has one.
func (q *ExpandedQuery) FullTextTerm(tok string) string {
	if stem, ok := q.Stems[tok]; ok {
		return stem
	}
	return tok
}

// Tokenize splits raw on whitespace into lowercase tokens, dropping duplicates.
func Tokenize(raw string) []string {
	words := strings.Fields(strings.ToLower(raw))
	tokens := make([]string, 0, len(words))
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		tokens = append(tokens, w)
	}
	return tokens
}

// Stem drops the last rune of tokens longer than four runes. ok is false otherwise.
func Stem(token string) (string, bool) {
	if utf8.RuneCountInString(token) <= stemMinRunes {
		return "", false
	}
	_, size := utf8.DecodeLastRuneInString(token)
	return token[:len(token)-size], true
}

// QueryExpander broadens a query with synonyms, near-duplicates and stems.
type QueryExpander struct {
	synonyms         SynonymSource
	fuzzy            FuzzySource
	synonymMinWeight float64
	fuzzyMaxDistance int
	logger           *zap.Logger
}

// ExpanderOption is a functional option for configuring QueryExpander.
type ExpanderOption func(*QueryExpander)

// WithSynonymMinWeight sets the lowest synonym edge weight admitted.
func WithSynonymMinWeight(w float64) ExpanderOption {
	return func(e *QueryExpander) {
		if w > 0 {
			e.synonymMinWeight = w
		}
	}
}

// WithFuzzyMaxDistance sets the largest edit distance of an admitted near-duplicate.
func WithFuzzyMaxDistance(d int) ExpanderOption {
	return func(e *QueryExpander) {
		if d > 0 {
			e.fuzzyMaxDistance = d
		}
	}
}

// WithExpanderLogger sets the logger.
func WithExpanderLogger(l *zap.Logger) ExpanderOption {
	return func(e *QueryExpander) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewQueryExpander creates an expander. Either source may be nil to disable that tier.
func NewQueryExpander(synonyms SynonymSource, fuzzy FuzzySource, opts ...ExpanderOption) *QueryExpander {
	e := &QueryExpander{
		synonyms:         synonyms,
		fuzzy:            fuzzy,
		synonymMinWeight: DefaultSynonymMinWeight,
		fuzzyMaxDistance: DefaultFuzzyMaxDistance,
		logger:           zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Expand tokenizes raw and collects each token's synonyms, near-duplicates
// and stem. A vocabulary read failure skips near-duplicates for the whole
// query and sets FuzzySkipped.
func (e *QueryExpander) Expand(ctx context.Context, raw string) *ExpandedQuery {
	q := &ExpandedQuery{
		Raw:      raw,
		Tokens:   Tokenize(raw),
		Synonyms: make(map[string][]models.WeightedTerm),
		Fuzzy:    make(map[string][]keyword.FuzzyMatch),
		Stems:    make(map[string]string),
	}
	if len(q.Tokens) == 0 {
		return q
	}

	if e.synonyms != nil {
		for _, tok := range q.Tokens {
			if syns := e.synonyms.SynonymsOf(ctx, tok, e.synonymMinWeight); len(syns) > 0 {
				q.Synonyms[tok] = syns
			}
		}
	}

	if e.fuzzy != nil && hasFuzzyCandidate(q.Tokens) {
		snap, err := e.fuzzy.Snapshot(ctx)
		if err != nil {
			q.FuzzySkipped = true
			e.logger.Debug("Skipping fuzzy expansion", zap.String("query", raw), zap.Error(err))
		} else {
			for _, tok := range q.Tokens {
				if matches := e.fuzzy.Match(snap, tok, e.fuzzyMaxDistance); len(matches) > 0 {
					q.Fuzzy[tok] = matches
				}
			}
		}
	}

	for _, tok := range q.Tokens {
		if stem, ok := Stem(tok); ok {
			q.Stems[tok] = stem
		}
	}
	return q
}

func hasFuzzyCandidate(tokens []string) bool {
	for _, tok := range tokens {
		if utf8.RuneCountInString(tok) >= keyword.MinTermLength {
			return true
		}
	}
	return false
}
