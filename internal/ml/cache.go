package ml

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/google/uuid"
	cache "github.com/patrickmn/go-cache"

	"github.com/yourusername/keiba-predictor/internal/metrics"
)

// CacheKey identifies a ranked race produced by one fitted model.
type CacheKey struct {
	ModelID uuid.UUID
	RaceID  string
}

// String returns string representation of cache key
func (k CacheKey) String() string {
	return fmt.Sprintf("%s:%s", k.ModelID, k.RaceID)
}

// PredictionCache keeps ranked race tables in memory so repeated requests for
// the same race and model skip inference.
type PredictionCache struct {
	cache     *cache.Cache
	ttl       time.Duration
	maxSize   int
	mu        sync.Mutex
	hitCount  uint64
	missCount uint64
}

// NewPredictionCache creates a new prediction cache
func NewPredictionCache(ttl time.Duration, maxSize int) *PredictionCache {
	return &PredictionCache{
		cache:   cache.New(ttl, ttl*2),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

// Get returns a cached ranked race.
func (pc *PredictionCache) Get(key CacheKey) (dataframe.DataFrame, bool) {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if result, found := pc.cache.Get(key.String()); found {
		if df, ok := result.(dataframe.DataFrame); ok {
			pc.hitCount++
			pc.updateMetrics()
			return df, true
		}
	}

	pc.missCount++
	pc.updateMetrics()
	return dataframe.DataFrame{}, false
}

// Set stores a ranked race. When the cache is full, expired entries are
// dropped first; if it is still full the entry is not stored.
func (pc *PredictionCache) Set(key CacheKey, df dataframe.DataFrame) {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if pc.maxSize > 0 && pc.cache.ItemCount() >= pc.maxSize {
		pc.cache.DeleteExpired()
		if pc.cache.ItemCount() >= pc.maxSize {
			return
		}
	}

	pc.cache.Set(key.String(), df, pc.ttl)
}

// Invalidate removes every entry produced by the given model.
func (pc *PredictionCache) Invalidate(modelID uuid.UUID) {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	prefix := modelID.String() + ":"
	for k := range pc.cache.Items() {
		if strings.HasPrefix(k, prefix) {
			pc.cache.Delete(k)
		}
	}
}

// Clear flushes the entire cache
func (pc *PredictionCache) Clear() {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	pc.cache.Flush()
	pc.hitCount = 0
	pc.missCount = 0
}

// Stats returns cache statistics
func (pc *PredictionCache) Stats() (hits, misses uint64, ratio float64) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.stats()
}

func (pc *PredictionCache) stats() (hits, misses uint64, ratio float64) {
	hits = pc.hitCount
	misses = pc.missCount
	if total := hits + misses; total > 0 {
		ratio = float64(hits) / float64(total)
	}
	return
}

// updateMetrics must be called with mu held.
func (pc *PredictionCache) updateMetrics() {
	_, _, ratio := pc.stats()
	metrics.UpdatePredictionCacheHitRatio(ratio)
}

// ItemCount returns the number of items in cache
func (pc *PredictionCache) ItemCount() int {
	return pc.cache.ItemCount()
}
