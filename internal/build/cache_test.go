package build

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildCacheLRU(t *testing.T) {
	t.Run("eviction order", func(t *testing.T) {
		cache := NewBuildCache(30, time.Hour)
		for i := 1; i <= 5; i++ {
			cache.Set(fmt.Sprintf("key%d", i), []byte(fmt.Sprintf("value%d", i)))
		}

		for i := 1; i <= 5; i++ {
			_, found := cache.Get(fmt.Sprintf("key%d", i))
			assert.True(t, found, "key%d should be present", i)
		}

		cache.Set("key6", []byte("value6"))

		_, found := cache.Get("key1")
		assert.False(t, found, "key1 should be evicted as LRU")
		for i := 2; i <= 6; i++ {
			_, found := cache.Get(fmt.Sprintf("key%d", i))
			assert.True(t, found, "key%d should still be present", i)
		}
		assert.Equal(t, int64(1), cache.Stats().Evictions)
	})

	t.Run("access updates recency", func(t *testing.T) {
		cache := NewBuildCache(24, time.Hour)
		for i := 1; i <= 4; i++ {
			cache.Set(fmt.Sprintf("key%d", i), []byte("value0"))
		}

		cache.Get("key1")
		cache.Set("key5", []byte("value5"))

		_, found := cache.Get("key1")
		assert.True(t, found)
		_, found = cache.Get("key2")
		assert.False(t, found)
	})
}

func TestBuildCacheReplace(t *testing.T) {
	cache := NewBuildCache(100, time.Hour)
	cache.Set("a", []byte("12345"))
	cache.Set("a", []byte("12"))

	stats := cache.Stats()
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, int64(2), stats.Size)
	assert.Equal(t, int64(100), stats.MaxSize)

	value, ok := cache.Get("a")
	require.True(t, ok)
	assert.Equal(t, []byte("12"), value)
}

func TestBuildCacheTTL(t *testing.T) {
	cache := NewBuildCache(100, 10*time.Millisecond)
	cache.Set("a", []byte("x"))

	_, ok := cache.Get("a")
	assert.True(t, ok)

	time.Sleep(20 * time.Millisecond)
	_, ok = cache.Get("a")
	assert.False(t, ok)

	stats := cache.Stats()
	assert.Zero(t, stats.Entries)
	assert.Zero(t, stats.Size)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestBuildCacheZeroTTLNeverExpires(t *testing.T) {
	cache := NewBuildCache(100, 0)
	cache.Set("a", []byte("x"))
	time.Sleep(5 * time.Millisecond)
	_, ok := cache.Get("a")
	assert.True(t, ok)
}

func TestBuildCacheDisabledAndOversized(t *testing.T) {
	disabled := NewBuildCache(0, time.Hour)
	disabled.Set("a", []byte("x"))
	_, ok := disabled.Get("a")
	assert.False(t, ok)

	small := NewBuildCache(4, time.Hour)
	small.Set("a", []byte("ab"))
	small.Set("big", []byte("too large"))
	_, ok = small.Get("a")
	assert.True(t, ok, "oversized values must not evict everything")
	_, ok = small.Get("big")
	assert.False(t, ok)
}

func TestBuildCacheStatsAndClear(t *testing.T) {
	cache := NewBuildCache(100, time.Hour)
	cache.Set("a", []byte("x"))
	cache.Get("a")
	cache.Get("b")

	stats := cache.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 0.5, stats.HitRate(), 0.0001)

	assert.True(t, cache.Invalidate("a"))
	assert.False(t, cache.Invalidate("a"))

	cache.Set("c", []byte("y"))
	cache.Clear()
	assert.Equal(t, CacheStats{MaxSize: 100}, cache.Stats())
	assert.Equal(t, 0.0, cache.Stats().HitRate())
}

func TestBuildCacheConcurrent(t *testing.T) {
	cache := NewBuildCache(1024, time.Hour)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d", (g*7+i)%50)
				cache.Set(key, []byte("0123456789"))
				cache.Get(key)
				if i%10 == 0 {
					cache.Invalidate(key)
				}
			}
		}(g)
	}
	wg.Wait()

	stats := cache.Stats()
	assert.LessOrEqual(t, stats.Size, stats.MaxSize)
	assert.Equal(t, int64(stats.Entries*10), stats.Size)
}
