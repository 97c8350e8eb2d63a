package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"sync/atomic"
	"time"
)

// Parse cache defaults.
const (
	DefaultMaxParseEntries = 400
	DefaultParseTTL        = 2 * time.Hour
	DefaultCleanupInterval = 10 * time.Minute
)

// ParseEntry is one cached AST parse keyed by file content hash.
type ParseEntry struct {
	Data        interface{}
	CachedAt    int64 // Unix nano, atomic compare
	AccessCount int64 // atomic counter
}

// ParseCache is a lock-free content-hash-keyed cache of AST layer parse
// results (Nodes/Relationships), so reprocessing the same unchanged file
// across successive findDefinition/findReferences escalations within a
// process lifetime skips tree-sitter entirely.
type ParseCache struct {
	entries sync.Map // map[string]*ParseEntry

	maxEntries int
	ttlNanos   int64

	hits          int64
	misses        int64
	evictions     int64
	totalRequests int64
	count         int64

	createdAt   time.Time
	lastCleanup int64
}

// NewParseCache builds a ParseCache and starts its background cleanup
// loop if cleanupInterval > 0.
func NewParseCache(maxEntries int, ttl time.Duration, cleanupInterval time.Duration) *ParseCache {
	pc := &ParseCache{
		maxEntries:  maxEntries,
		ttlNanos:    ttl.Nanoseconds(),
		createdAt:   time.Now(),
		lastCleanup: time.Now().UnixNano(),
	}
	if cleanupInterval > 0 {
		go pc.startAutoCleanup(cleanupInterval)
	}
	return pc
}

func parseKey(language string, content []byte) string {
	hash := sha256.Sum256(content)
	return language + ":" + hex.EncodeToString(hash[:16])
}

// Get returns the cached parse result for (language, content), or nil
// on a miss or expiry.
func (pc *ParseCache) Get(language string, content []byte) interface{} {
	atomic.AddInt64(&pc.totalRequests, 1)
	key := parseKey(language, content)

	val, ok := pc.entries.Load(key)
	if !ok {
		atomic.AddInt64(&pc.misses, 1)
		return nil
	}
	entry := val.(*ParseEntry)
	if time.Now().UnixNano()-atomic.LoadInt64(&entry.CachedAt) > pc.ttlNanos {
		pc.entries.Delete(key)
		atomic.AddInt64(&pc.misses, 1)
		return nil
	}
	atomic.AddInt64(&entry.AccessCount, 1)
	atomic.AddInt64(&pc.hits, 1)
	return entry.Data
}

// Put stores a parse result for (language, content), evicting the
// oldest entry first if the cache is at capacity.
func (pc *ParseCache) Put(language string, content []byte, data interface{}) {
	key := parseKey(language, content)
	entry := &ParseEntry{Data: data, CachedAt: time.Now().UnixNano(), AccessCount: 1}
	if _, loaded := pc.entries.LoadOrStore(key, entry); !loaded {
		if count := atomic.AddInt64(&pc.count, 1); pc.maxEntries > 0 && count > int64(pc.maxEntries) {
			pc.evictOldest()
		}
	}
}

func (pc *ParseCache) evictOldest() {
	var oldestKey interface{}
	oldestTime := time.Now().UnixNano()
	pc.entries.Range(func(key, value interface{}) bool {
		entry := value.(*ParseEntry)
		if t := atomic.LoadInt64(&entry.CachedAt); t < oldestTime {
			oldestTime = t
			oldestKey = key
		}
		return true
	})
	if oldestKey != nil {
		pc.entries.Delete(oldestKey)
		atomic.AddInt64(&pc.count, -1)
		atomic.AddInt64(&pc.evictions, 1)
	}
}

// CleanExpired removes every entry past its TTL and returns the count
// removed.
func (pc *ParseCache) CleanExpired() int {
	now := time.Now().UnixNano()
	var cleaned, remaining int64
	pc.entries.Range(func(key, value interface{}) bool {
		entry := value.(*ParseEntry)
		if now-atomic.LoadInt64(&entry.CachedAt) > pc.ttlNanos {
			pc.entries.Delete(key)
			cleaned++
		} else {
			remaining++
		}
		return true
	})
	atomic.StoreInt64(&pc.count, remaining)
	atomic.AddInt64(&pc.evictions, cleaned)
	atomic.StoreInt64(&pc.lastCleanup, now)
	return int(cleaned)
}

func (pc *ParseCache) startAutoCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		pc.CleanExpired()
	}
}

// Stats reports hit/miss counters for the metrics endpoint.
func (pc *ParseCache) Stats() ParseCacheStats {
	hits := atomic.LoadInt64(&pc.hits)
	total := atomic.LoadInt64(&pc.totalRequests)
	hitRate := float64(0)
	if total > 0 {
		hitRate = float64(hits) / float64(total)
	}
	return ParseCacheStats{
		Hits:          hits,
		Misses:        atomic.LoadInt64(&pc.misses),
		Evictions:     atomic.LoadInt64(&pc.evictions),
		TotalRequests: total,
		HitRate:       hitRate,
		Entries:       int(atomic.LoadInt64(&pc.count)),
		Uptime:        time.Since(pc.createdAt),
	}
}

// ParseCacheStats holds ParseCache counters for diagnostics.
type ParseCacheStats struct {
	Hits          int64
	Misses        int64
	Evictions     int64
	TotalRequests int64
	HitRate       float64
	Entries       int
	Uptime        time.Duration
}
