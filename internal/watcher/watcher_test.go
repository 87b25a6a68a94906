package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/config"
	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/ranking"
)

type countingCache struct {
	mu sync.Mutex
	n  int
}

func (c *countingCache) Invalidate() {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

func (c *countingCache) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestWatcher_DebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("debug: false\n"), 0600); err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var calls []string
	w := NewWatcher(path, func(p string) {
		mu.Lock()
		calls = append(calls, p)
		mu.Unlock()
	}, WithDebounce(100*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	for i := 0; i < 3; i++ {
		if err := os.WriteFile(path, []byte("debug: true\n"), 0600); err != nil {
			t.Fatal(err)
		}
	}
	// Other files in the directory are ignored.
	if err := os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1\n"), 0600); err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(calls) > 0
	})
	time.Sleep(300 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(calls) != 1 {
		t.Errorf("onChange calls = %d, want 1 after debounced writes", len(calls))
	}
	if calls[0] != w.Path() {
		t.Errorf("onChange path = %s, want %s", calls[0], w.Path())
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	w := NewWatcher(path, nil)
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	w.Stop()
	w.Stop()
}

func TestWatcher_StartFailsForMissingDirectory(t *testing.T) {
	w := NewWatcher(filepath.Join(t.TempDir(), "missing", "config.yaml"), nil)
	if err := w.Start(context.Background()); err == nil {
		w.Stop()
		t.Error("expected error when the parent directory does not exist")
	}
}

func TestConfigReloader_Apply(t *testing.T) {
	relevance := ranking.NewRelevanceScorer(nil)
	recommend := ranking.NewRecommendationScorer(nil)
	cache := &countingCache{}
	r := NewConfigReloader(relevance, recommend, []Invalidator{cache}, nil)

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Ranking.NameMatchBonus = 20
	cfg.Recommend.SalesWeight = 0.7
	r.Apply(cfg)

	if got := relevance.Config().NameMatchBonus; got != 20 {
		t.Errorf("name bonus = %v, want 20", got)
	}
	if got := recommend.Config().SalesWeight; got != 0.7 {
		t.Errorf("sales weight = %v, want 0.7", got)
	}
	if cache.count() != 1 {
		t.Errorf("cache invalidations = %d, want 1", cache.count())
	}

	cfg.Ranking.NameMatchBonus = 30
	if got := relevance.Config().NameMatchBonus; got != 20 {
		t.Errorf("scorer shares the caller's config: name bonus = %v", got)
	}
}

func TestConfigReloader_ReloadKeepsSettingsOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("ranking:\n  name_match_bonus: 15\n"), 0600); err != nil {
		t.Fatal(err)
	}
	relevance := ranking.NewRelevanceScorer(nil)
	cache := &countingCache{}
	r := NewConfigReloader(relevance, nil, []Invalidator{cache}, nil)

	if err := r.Reload(path); err != nil {
		t.Fatal(err)
	}
	if got := relevance.Config().NameMatchBonus; got != 15 {
		t.Errorf("name bonus = %v, want 15", got)
	}

	if err := os.WriteFile(path, []byte("ranking: [broken"), 0600); err != nil {
		t.Fatal(err)
	}
	r.OnChange()(path)
	if got := relevance.Config().NameMatchBonus; got != 15 {
		t.Errorf("failed reload changed name bonus to %v", got)
	}
	if cache.count() != 1 {
		t.Errorf("failed reload invalidated caches: %d", cache.count())
	}
}

func TestWatcher_ReloadsConfigEndToEnd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("watch:\n  config: true\n"), 0600); err != nil {
		t.Fatal(err)
	}
	relevance := ranking.NewRelevanceScorer(nil)
	cache := &countingCache{}
	r := NewConfigReloader(relevance, nil, []Invalidator{cache}, nil)
	w := NewWatcher(path, r.OnChange(), WithDebounce(50*time.Millisecond))
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, []byte("ranking:\n  model_match_bonus: 9\n"), 0600); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return relevance.Config().ModelMatchBonus == 9 })
	if cache.count() == 0 {
		t.Error("caches not invalidated on reload")
	}
}
