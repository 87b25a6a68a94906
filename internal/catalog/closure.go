package catalog

import (
	"context"
	"sort"
	"time"

	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/metrics"
	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/models"
)

// CategoryReader reads the whole category table.
type CategoryReader interface {
	ListCategories(ctx context.Context) ([]*models.Category, error)
}

// CategoryClosureIndex maps every category to itself plus all of its
// recursive descendants. It is built from one read of the category table
// on first use and served until invalidated or older than its max age.
// While the table cannot be read, every lookup degrades to the exact id.
type CategoryClosureIndex struct {
	cache *snapshotCache[map[int64][]int64]
}

// NewCategoryClosureIndex creates an index over reader. Nothing is read until first use.
func NewCategoryClosureIndex(reader CategoryReader, opts ...Option) *CategoryClosureIndex {
	load := func(ctx context.Context) (map[int64][]int64, int, error) {
		categories, err := reader.ListCategories(ctx)
		if err != nil {
			return nil, 0, err
		}
		closure := BuildClosure(categories)
		return closure, len(closure), nil
	}
	return &CategoryClosureIndex{
		cache: newSnapshotCache(metrics.CacheCategoryClosure, load, newOptions(opts)),
	}
}

// DescendantsOf returns categoryID followed by its descendants. Unknown ids,
// and every id while the table is unreadable, yield just {categoryID}.
func (c *CategoryClosureIndex) DescendantsOf(ctx context.Context, categoryID int64) []int64 {
	closure, _ := c.cache.get(ctx)
	ids, ok := closure[categoryID]
	if !ok {
		return []int64{categoryID}
	}
	out := make([]int64, len(ids))
	copy(out, ids)
	return out
}

// Invalidate drops the built closure; the next lookup reads the table again.
func (c *CategoryClosureIndex) Invalidate() { c.cache.invalidate() }

// Rebuild reads the table now and replaces the closure.
func (c *CategoryClosureIndex) Rebuild(ctx context.Context) error { return c.cache.rebuild(ctx) }

// BuiltAt returns when the current closure was built, or the zero time.
func (c *CategoryClosureIndex) BuiltAt() time.Time { return c.cache.built() }

// BuildClosure computes the descendant closure of every category. Each list
// starts with the category itself; children follow in depth-first, id order.
// A visited set per category stops traversal on cycles.
func BuildClosure(categories []*models.Category) map[int64][]int64 {
	children := make(map[int64][]int64)
	for _, cat := range categories {
		if cat.ParentID != nil {
			children[*cat.ParentID] = append(children[*cat.ParentID], cat.ID)
		}
	}
	for _, ids := range children {
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}

	closure := make(map[int64][]int64, len(categories))
	for _, cat := range categories {
		if _, done := closure[cat.ID]; done {
			continue
		}
		visited := map[int64]struct{}{cat.ID: {}}
		ids := []int64{cat.ID}
		ids = collectDescendants(cat.ID, children, visited, ids)
		closure[cat.ID] = ids
	}
	return closure
}

func collectDescendants(id int64, children map[int64][]int64, visited map[int64]struct{}, out []int64) []int64 {
	for _, child := range children[id] {
		if _, seen := visited[child]; seen {
			continue
		}
		visited[child] = struct{}{}
		out = append(out, child)
		out = collectDescendants(child, children, visited, out)
	}
	return out
}
