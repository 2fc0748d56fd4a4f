package ml

import (
	"testing"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rankedRace(names ...string) dataframe.DataFrame {
	return dataframe.New(series.New(names, series.String, "horse_name"))
}

func TestCacheKeyString(t *testing.T) {
	key := CacheKey{
		ModelID: uuid.MustParse("12345678-1234-5678-1234-567812345678"),
		RaceID:  "202405050811",
	}

	assert.Equal(t, "12345678-1234-5678-1234-567812345678:202405050811", key.String())
}

func TestPredictionCacheGetSet(t *testing.T) {
	cache := NewPredictionCache(time.Hour, 100)
	defer cache.Clear()

	key := CacheKey{ModelID: uuid.New(), RaceID: "20240001"}

	_, found := cache.Get(key)
	assert.False(t, found)

	cache.Set(key, rankedRace("a", "b"))

	df, found := cache.Get(key)
	require.True(t, found)
	assert.Equal(t, 2, df.Nrow())
}

func TestPredictionCacheExpiration(t *testing.T) {
	cache := NewPredictionCache(100*time.Millisecond, 100)
	defer cache.Clear()

	key := CacheKey{ModelID: uuid.New(), RaceID: "20240001"}
	cache.Set(key, rankedRace("a"))

	_, found := cache.Get(key)
	require.True(t, found)

	time.Sleep(150 * time.Millisecond)

	_, found = cache.Get(key)
	assert.False(t, found)
}

func TestPredictionCacheInvalidate(t *testing.T) {
	cache := NewPredictionCache(time.Hour, 100)
	defer cache.Clear()

	oldModel := uuid.New()
	newModel := uuid.New()
	key1 := CacheKey{ModelID: oldModel, RaceID: "20240001"}
	key2 := CacheKey{ModelID: oldModel, RaceID: "20240002"}
	key3 := CacheKey{ModelID: newModel, RaceID: "20240001"}

	for _, k := range []CacheKey{key1, key2, key3} {
		cache.Set(k, rankedRace("a"))
	}

	cache.Invalidate(oldModel)

	_, found := cache.Get(key1)
	assert.False(t, found)
	_, found = cache.Get(key2)
	assert.False(t, found)
	_, found = cache.Get(key3)
	assert.True(t, found)
}

func TestPredictionCacheStats(t *testing.T) {
	cache := NewPredictionCache(time.Hour, 100)
	defer cache.Clear()

	key := CacheKey{ModelID: uuid.New(), RaceID: "20240001"}

	hits, misses, ratio := cache.Stats()
	assert.Equal(t, uint64(0), hits)
	assert.Equal(t, uint64(0), misses)
	assert.Equal(t, 0.0, ratio)

	_, _ = cache.Get(key)
	cache.Set(key, rankedRace("a"))
	_, _ = cache.Get(key)

	hits, misses, ratio = cache.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
	assert.Equal(t, 0.5, ratio)
}

func TestPredictionCacheMaxSize(t *testing.T) {
	maxSize := 5
	cache := NewPredictionCache(time.Hour, maxSize)
	defer cache.Clear()

	model := uuid.New()
	for i := 0; i < maxSize+5; i++ {
		cache.Set(CacheKey{ModelID: model, RaceID: uuid.NewString()}, rankedRace("a"))
	}

	assert.Equal(t, maxSize, cache.ItemCount())
}
