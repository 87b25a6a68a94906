package keyword

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/metrics"
	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/models"
	"go.uber.org/zap"
)

// MinTermLength is the shortest word kept in a vocabulary and the shortest
// term the fuzzy matcher will look up.
const MinTermLength = 3

// DefaultVocabularyLimit caps the names read from each source.
const DefaultVocabularyLimit = 500

// VocabularyTerm is one word of a snapshot with its precomputed phonetic code.
type VocabularyTerm struct {
	Term   string
	Code   string
	Length int
}

// VocabularySnapshot is an immutable, point-in-time word list drawn from catalog names.
type VocabularySnapshot struct {
	terms   []VocabularyTerm
	index   map[string]struct{}
	counts  map[models.VocabularySource]int
	takenAt time.Time
}

// NewVocabularySnapshot splits names into lowercase words, keeps words of at
// least MinTermLength runes, and de-duplicates them across sources.
func NewVocabularySnapshot(names map[models.VocabularySource][]string, takenAt time.Time) *VocabularySnapshot {
	s := &VocabularySnapshot{
		index:   make(map[string]struct{}),
		counts:  make(map[models.VocabularySource]int, len(names)),
		takenAt: takenAt,
	}
	for _, src := range models.VocabularySources {
		for _, name := range names[src] {
			for _, word := range splitWords(name) {
				if _, ok := s.index[word]; ok {
					continue
				}
				s.index[word] = struct{}{}
				s.terms = append(s.terms, VocabularyTerm{
					Term:   word,
					Code:   Soundex(word),
					Length: utf8.RuneCountInString(word),
				})
				s.counts[src]++
			}
		}
	}
	sort.Slice(s.terms, func(i, j int) bool { return s.terms[i].Term < s.terms[j].Term })
	return s
}

// Len returns the number of distinct words.
func (s *VocabularySnapshot) Len() int { return len(s.terms) }

// TakenAt returns when the underlying names were read.
func (s *VocabularySnapshot) TakenAt() time.Time { return s.takenAt }

// SourceCount returns how many distinct words src contributed first.
func (s *VocabularySnapshot) SourceCount(src models.VocabularySource) int { return s.counts[src] }

// Contains reports whether term (lowercase) is in the snapshot.
func (s *VocabularySnapshot) Contains(term string) bool {
	_, ok := s.index[term]
	return ok
}

// Terms returns a copy of the words in ascending order.
func (s *VocabularySnapshot) Terms() []VocabularyTerm {
	out := make([]VocabularyTerm, len(s.terms))
	copy(out, s.terms)
	return out
}

func splitWords(name string) []string {
	fields := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	words := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= MinTermLength {
			words = append(words, f)
		}
	}
	return words
}

// VocabularyReader reads a size-capped list of names from one catalog source.
type VocabularyReader interface {
	VocabularyNames(ctx context.Context, source models.VocabularySource, limit int) ([]string, error)
}

// VocabularyProvider builds vocabulary snapshots on demand and reuses the
// latest one while it is younger than the configured TTL.
type VocabularyProvider struct {
	reader VocabularyReader
	limit  int
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time

	mu      sync.Mutex
	current *VocabularySnapshot
}

// VocabularyOption is a functional option for configuring VocabularyProvider.
type VocabularyOption func(*VocabularyProvider)

// WithVocabularyLimit sets the per-source cap on names read.
func WithVocabularyLimit(n int) VocabularyOption {
	return func(p *VocabularyProvider) {
		if n > 0 {
			p.limit = n
		}
	}
}

// WithVocabularyTTL sets how long a snapshot is reused. Zero rebuilds on every call.
func WithVocabularyTTL(d time.Duration) VocabularyOption {
	return func(p *VocabularyProvider) {
		if d >= 0 {
			p.ttl = d
		}
	}
}

// WithVocabularyLogger sets the logger used for degraded reads.
func WithVocabularyLogger(l *zap.Logger) VocabularyOption {
	return func(p *VocabularyProvider) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewVocabularyProvider creates a provider reading from reader.
func NewVocabularyProvider(reader VocabularyReader, opts ...VocabularyOption) *VocabularyProvider {
	p := &VocabularyProvider{
		reader: reader,
		limit:  DefaultVocabularyLimit,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Snapshot returns a snapshot no older than the TTL, reading every source
// again when needed. A failed read of any source returns an error and keeps
// the previous snapshot for later calls.
func (p *VocabularyProvider) Snapshot(ctx context.Context) (*VocabularySnapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if p.current != nil && p.ttl > 0 && now.Sub(p.current.takenAt) < p.ttl {
		return p.current, nil
	}

	names := make(map[models.VocabularySource][]string, len(models.VocabularySources))
	for _, src := range models.VocabularySources {
		list, err := p.reader.VocabularyNames(ctx, src, p.limit)
		if err != nil {
			p.logger.Warn("Vocabulary read failed, skipping fuzzy matching",
				zap.String("source", string(src)), zap.Error(err))
			metrics.RecordDegraded(metrics.FeatureVocabulary)
			metrics.RecordCacheBuild(metrics.CacheVocabulary, 0, err)
			return nil, fmt.Errorf("read %s vocabulary: %w", src, err)
		}
		names[src] = list
	}

	snap := NewVocabularySnapshot(names, now)
	metrics.RecordCacheBuild(metrics.CacheVocabulary, snap.Len(), nil)
	p.current = snap
	return snap, nil
}

// Current returns the latest snapshot without reading, or nil.
func (p *VocabularyProvider) Current() *VocabularySnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Invalidate discards the held snapshot so the next call reads again.
func (p *VocabularyProvider) Invalidate() {
	p.mu.Lock()
	p.current = nil
	p.mu.Unlock()
}

// BuiltAt returns when the held snapshot was taken, or the zero time.
func (p *VocabularyProvider) BuiltAt() time.Time {
	if snap := p.Current(); snap != nil {
		return snap.TakenAt()
	}
	return time.Time{}
}
