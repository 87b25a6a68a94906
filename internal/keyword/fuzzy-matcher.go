package keyword

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"
)

// FuzzyMatch is a vocabulary word close to a looked-up term.
type FuzzyMatch struct {
	Term     string // The vocabulary word
	Distance int    // Edit distance from the looked-up term
	Phonetic bool   // Soundex codes are equal
}

// SnapshotSource supplies vocabulary snapshots. VocabularyProvider implements it.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (*VocabularySnapshot, error)
}

// FuzzyMatcher finds typo-tolerant near-duplicates of a term in a vocabulary snapshot.
type FuzzyMatcher struct {
	source         SnapshotSource
	maxSuggestions int
	maxLengthDiff  int
}

// FuzzyMatcherOption is a functional option for configuring FuzzyMatcher.
type FuzzyMatcherOption func(*FuzzyMatcher)

// WithMaxSuggestions sets the maximum number of matches returned per term.
func WithMaxSuggestions(n int) FuzzyMatcherOption {
	return func(m *FuzzyMatcher) {
		if n > 0 {
			m.maxSuggestions = n
		}
	}
}

// WithMaxLengthDifference sets how far apart in length a phonetic-only match may be.
func WithMaxLengthDifference(n int) FuzzyMatcherOption {
	return func(m *FuzzyMatcher) {
		if n >= 0 {
			m.maxLengthDiff = n
		}
	}
}

// NewFuzzyMatcher creates a FuzzyMatcher over source.
func NewFuzzyMatcher(source SnapshotSource, opts ...FuzzyMatcherOption) *FuzzyMatcher {
	m := &FuzzyMatcher{
		source:         source,
		maxSuggestions: 5,
		maxLengthDiff:  2,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Snapshot returns the snapshot the matcher would search now.
func (m *FuzzyMatcher) Snapshot(ctx context.Context) (*VocabularySnapshot, error) {
	return m.source.Snapshot(ctx)
}

// FindSimilar looks term up in a fresh snapshot. A snapshot read error is
// returned unchanged; callers skip fuzzy enrichment on error.
func (m *FuzzyMatcher) FindSimilar(ctx context.Context, term string, maxDistance int) ([]FuzzyMatch, error) {
	if utf8.RuneCountInString(strings.TrimSpace(term)) < MinTermLength {
		return nil, nil
	}
	snap, err := m.source.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return m.Match(snap, term, maxDistance), nil
}

// Match returns the near-duplicates of term in snap. A word matches when it
// is within maxDistance edits, or when its Soundex code equals the term's
// and the lengths differ by at most the configured amount. Terms shorter
// than MinTermLength and the term itself never match. Results are ordered
// by distance, phonetic matches first, shorter words first, then word.
func (m *FuzzyMatcher) Match(snap *VocabularySnapshot, term string, maxDistance int) []FuzzyMatch {
	term = strings.ToLower(strings.TrimSpace(term))
	termLen := utf8.RuneCountInString(term)
	if snap == nil || termLen < MinTermLength {
		return nil
	}
	code := Soundex(term)

	type candidate struct {
		FuzzyMatch
		length int
	}
	candidates := make([]candidate, 0)

	for _, vt := range snap.terms {
		if vt.Term == term {
			continue
		}
		lenDiff := vt.Length - termLen
		if lenDiff < 0 {
			lenDiff = -lenDiff
		}

		phonetic := code != "" && vt.Code == code && lenDiff <= m.maxLengthDiff
		var distance int
		if phonetic {
			distance = LevenshteinDistance(term, vt.Term)
		} else {
			d, ok := LevenshteinWithin(term, vt.Term, maxDistance)
			if !ok {
				continue
			}
			distance = d
		}
		candidates = append(candidates, candidate{
			FuzzyMatch: FuzzyMatch{Term: vt.Term, Distance: distance, Phonetic: phonetic},
			length:     vt.Length,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Distance != b.Distance {
			return a.Distance < b.Distance
		}
		if a.Phonetic != b.Phonetic {
			return a.Phonetic
		}
		if a.length != b.length {
			return a.length < b.length
		}
		return a.Term < b.Term
	})

	if len(candidates) > m.maxSuggestions {
		candidates = candidates[:m.maxSuggestions]
	}
	out := make([]FuzzyMatch, len(candidates))
	for i, c := range candidates {
		out[i] = c.FuzzyMatch
	}
	return out
}
