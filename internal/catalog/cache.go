// Package catalog holds the process-local caches derived from catalog tables:
// the category descendant closure and the synonym table.
package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/metrics"
	"go.uber.org/zap"
)

// Option configures a catalog cache.
type Option func(*options)

type options struct {
	logger *zap.Logger
	maxAge time.Duration
	now    func() time.Time
}

// WithLogger sets the logger used for failed builds.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMaxAge bounds how long a built cache is served before it is rebuilt.
// Zero keeps it for the life of the process or until Invalidate.
func WithMaxAge(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.maxAge = d
		}
	}
}

func newOptions(opts []Option) options {
	o := options{logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// snapshotCache lazily builds a value with load and holds it until it is
// invalidated or older than maxAge. Failed builds are not kept.
type snapshotCache[T any] struct {
	name string
	load func(ctx context.Context) (T, int, error)
	options

	mu      sync.Mutex
	value   T
	builtAt time.Time
	valid   bool
}

func newSnapshotCache[T any](name string, load func(ctx context.Context) (T, int, error), o options) *snapshotCache[T] {
	return &snapshotCache[T]{name: name, load: load, options: o}
}

// get returns the cached value, building it first when needed. ok is false
// when the build failed; the zero value is returned in that case.
func (c *snapshotCache[T]) get(ctx context.Context) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.valid && (c.maxAge == 0 || c.now().Sub(c.builtAt) < c.maxAge) {
		return c.value, true
	}
	if err := c.buildLocked(ctx); err != nil {
		var zero T
		return zero, false
	}
	return c.value, true
}

func (c *snapshotCache[T]) buildLocked(ctx context.Context) error {
	value, entries, err := c.load(ctx)
	metrics.RecordCacheBuild(c.name, entries, err)
	if err != nil {
		c.logger.Warn("Catalog cache build failed", zap.String("cache", c.name), zap.Error(err))
		return err
	}
	c.value = value
	c.builtAt = c.now()
	c.valid = true
	c.logger.Debug("Catalog cache built", zap.String("cache", c.name), zap.Int("entries", entries))
	return nil
}

func (c *snapshotCache[T]) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	c.value = zero
	c.valid = false
	c.builtAt = time.Time{}
}

// rebuild builds eagerly. On failure the previous value is discarded.
func (c *snapshotCache[T]) rebuild(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = false
	return c.buildLocked(ctx)
}

func (c *snapshotCache[T]) built() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.builtAt
}
