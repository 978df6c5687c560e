package build

import (
	"container/list"
	"sync"
	"time"
)

// BuildCache holds generated output keyed by source hash and compiler
// fingerprint. It evicts least recently used entries once the total output
// size would exceed maxSize, and drops entries older than ttl on lookup.
// A zero maxSize disables caching and a zero ttl never expires entries.
type BuildCache struct {
	mu      sync.Mutex
	maxSize int64
	ttl     time.Duration
	size    int64
	lru     *list.List // front is most recently used
	index   map[string]*list.Element

	hits, misses, evictions int64
}

type cacheEntry struct {
	key     string
	output  []byte
	created time.Time
}

// CacheStats describes the cache at one point in time.
type CacheStats struct {
	Entries   int   `json:"entries" yaml:"entries"`
	Size      int64 `json:"size_bytes" yaml:"size_bytes"`
	MaxSize   int64 `json:"max_size" yaml:"max_size"`
	Hits      int64 `json:"hits" yaml:"hits"`
	Misses    int64 `json:"misses" yaml:"misses"`
	Evictions int64 `json:"evictions" yaml:"evictions"`
}

// HitRate is the fraction of lookups that found an entry, from 0 to 1.
func (s CacheStats) HitRate() float64 {
	if s.Hits+s.Misses == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Hits+s.Misses)
}

// NewBuildCache creates a cache bounded by maxSize bytes of output.
func NewBuildCache(maxSize int64, ttl time.Duration) *BuildCache {
	return &BuildCache{
		maxSize: maxSize,
		ttl:     ttl,
		lru:     list.New(),
		index:   make(map[string]*list.Element),
	}
}

// Get returns the output stored under key.
func (bc *BuildCache) Get(key string) ([]byte, bool) {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	el, ok := bc.index[key]
	if ok && bc.ttl > 0 && time.Since(el.Value.(*cacheEntry).created) > bc.ttl {
		bc.drop(el)
		ok = false
	}
	if !ok {
		bc.misses++
		return nil, false
	}

	bc.lru.MoveToFront(el)
	bc.hits++
	return el.Value.(*cacheEntry).output, true
}

// Set stores output under key, replacing any previous entry. Output larger
// than the whole cache is not stored.
func (bc *BuildCache) Set(key string, output []byte) {
	size := int64(len(output))
	if bc.maxSize <= 0 || size > bc.maxSize {
		return
	}

	bc.mu.Lock()
	defer bc.mu.Unlock()

	if el, ok := bc.index[key]; ok {
		bc.drop(el)
	}
	for bc.size+size > bc.maxSize {
		oldest := bc.lru.Back()
		if oldest == nil {
			break
		}
		bc.drop(oldest)
		bc.evictions++
	}

	bc.index[key] = bc.lru.PushFront(&cacheEntry{key: key, output: output, created: time.Now()})
	bc.size += size
}

// Invalidate removes key and reports whether it was present.
func (bc *BuildCache) Invalidate(key string) bool {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	el, ok := bc.index[key]
	if ok {
		bc.drop(el)
	}
	return ok
}

// Clear removes every entry and resets the counters.
func (bc *BuildCache) Clear() {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	bc.lru.Init()
	bc.index = make(map[string]*list.Element)
	bc.size = 0
	bc.hits, bc.misses, bc.evictions = 0, 0, 0
}

// Stats returns the current counters.
func (bc *BuildCache) Stats() CacheStats {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	return CacheStats{
		Entries:   bc.lru.Len(),
		Size:      bc.size,
		MaxSize:   bc.maxSize,
		Hits:      bc.hits,
		Misses:    bc.misses,
		Evictions: bc.evictions,
	}
}

func (bc *BuildCache) drop(el *list.Element) {
	entry := bc.lru.Remove(el).(*cacheEntry)
	delete(bc.index, entry.key)
	bc.size -= int64(len(entry.output))
}
