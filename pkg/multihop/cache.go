package multihop

import (
	"fmt"
	"sync"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/orneryd/graphscout/pkg/model"
)

// PathCache memoizes per-pair path analyses for the duration of one
// discovery run. Entries are keyed by the graph's input signature plus the
// entity pair, and the whole cache is dropped whenever the signature
// changes, so results never leak across different input sets.
//
// The cache is explicitly clearable and process-local.
type PathCache struct {
	cache *ristretto.Cache[string, []model.PathAnalysis]

	mu        sync.RWMutex
	signature string
}

// NewPathCache creates a cache bounded to roughly maxEntries analyses.
func NewPathCache(maxEntries int64) (*PathCache, error) {
	if maxEntries <= 0 {
		maxEntries = 10_000
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, []model.PathAnalysis]{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("multihop: create path cache: %w", err)
	}
	return &PathCache{cache: c}, nil
}

// Rebind points the cache at a new input signature. If the signature
// differs from the previous one, all cached entries are invalidated.
func (pc *PathCache) Rebind(signature string) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if pc.signature != signature {
		pc.cache.Clear()
		pc.signature = signature
	}
}

// Get returns the cached analyses for a pair under the current signature.
func (pc *PathCache) Get(src, dst string) ([]model.PathAnalysis, bool) {
	return pc.cache.Get(pc.key(src, dst))
}

// Put stores analyses for a pair. Cost is the number of analyses so the
// cache bound tracks memory roughly.
func (pc *PathCache) Put(src, dst string, analyses []model.PathAnalysis) {
	cost := int64(len(analyses))
	if cost == 0 {
		cost = 1
	}
	pc.cache.Set(pc.key(src, dst), analyses, cost)
}

// Clear drops every entry.
func (pc *PathCache) Clear() {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.cache.Clear()
	pc.signature = ""
}

// Wait blocks until pending writes are visible. Tests use this; production
// code tolerates the cache's eventual visibility.
func (pc *PathCache) Wait() {
	pc.cache.Wait()
}

func (pc *PathCache) key(src, dst string) string {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return pc.signature + "|" + src + "|" + dst
}
