package catalog

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/metrics"
	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/models"
)

// SynonymReader reads every synonym edge.
type SynonymReader interface {
	ListSynonyms(ctx context.Context) ([]*models.SynonymEdge, error)
}

// SynonymTable is a cached, bidirectional, weighted term association table.
type SynonymTable struct {
	cache *snapshotCache[map[string][]models.WeightedTerm]
}

// NewSynonymTable creates a table over reader. Nothing is read until first use.
func NewSynonymTable(reader SynonymReader, opts ...Option) *SynonymTable {
	load := func(ctx context.Context) (map[string][]models.WeightedTerm, int, error) {
		edges, err := reader.ListSynonyms(ctx)
		if err != nil {
			return nil, 0, err
		}
		table := BuildSynonymMap(edges)
		return table, len(table), nil
	}
	return &SynonymTable{
		cache: newSnapshotCache(metrics.CacheSynonyms, load, newOptions(opts)),
	}
}

// SynonymsOf returns the synonyms of term with weight >= minWeight, highest
// weight first. It returns nothing while the table is unreadable.
func (t *SynonymTable) SynonymsOf(ctx context.Context, term string, minWeight float64) []models.WeightedTerm {
	table, _ := t.cache.get(ctx)
	all := table[normalizeTerm(term)]
	out := make([]models.WeightedTerm, 0, len(all))
	for _, wt := range all {
		if wt.Weight >= minWeight {
			out = append(out, wt)
		}
	}
	return out
}

// Invalidate drops the loaded table; the next lookup reads it again.
func (t *SynonymTable) Invalidate() { t.cache.invalidate() }

// Rebuild reads the edges now and replaces the table.
func (t *SynonymTable) Rebuild(ctx context.Context) error { return t.cache.rebuild(ctx) }

// BuiltAt returns when the current table was loaded, or the zero time.
func (t *SynonymTable) BuiltAt() time.Time { return t.cache.built() }

// BuildSynonymMap loads each edge in both directions. Terms are trimmed and
// lowercased, self edges are dropped, and a repeated pair keeps its highest weight.
func BuildSynonymMap(edges []*models.SynonymEdge) map[string][]models.WeightedTerm {
	weights := make(map[string]map[string]float64)
	add := func(from, to string, w float64) {
		m, ok := weights[from]
		if !ok {
			m = make(map[string]float64)
			weights[from] = m
		}
		if cur, ok := m[to]; !ok || w > cur {
			m[to] = w
		}
	}
	for _, e := range edges {
		term, syn := normalizeTerm(e.Term), normalizeTerm(e.Synonym)
		if term == "" || syn == "" || term == syn {
			continue
		}
		add(term, syn, e.Weight)
		add(syn, term, e.Weight)
	}

	table := make(map[string][]models.WeightedTerm, len(weights))
	for term, m := range weights {
		list := make([]models.WeightedTerm, 0, len(m))
		for syn, w := range m {
			list = append(list, models.WeightedTerm{Term: syn, Weight: w})
		}
		sort.Slice(list, func(i, j int) bool {
			if list[i].Weight != list[j].Weight {
				return list[i].Weight > list[j].Weight
			}
			return list[i].Term < list[j].Term
		})
		table[term] = list
	}
	return table
}

func normalizeTerm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
