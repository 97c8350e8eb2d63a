// Package cache implements the result cache shared across requests.
// It is a lock-free sync.Map-backed cache keyed by a stable xxhash
// fingerprint of the canonical request, with a quality-derived TTL
// and invalidation by file path through a path-to-keys index.
package cache

import (
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/lightningralf/ontology-engine/internal/types"
)

const (
	// DefaultMaxEntries bounds the cache so a long-lived engine process
	// doesn't grow unbounded over many distinct requests.
	DefaultMaxEntries = 2000

	minTTL = 30 * time.Second
	maxTTL = 3600 * time.Second
)

// entry is one cached envelope plus the bookkeeping CleanExpired and
// eviction need.
type entry struct {
	value     any
	expiresAt int64 // unix nano
	cachedAt  int64 // unix nano
	key       string
}

// ResultCache caches Result[T] envelopes for findDefinition,
// findReferences, exploreCodebase and buildSymbolMap.
type ResultCache struct {
	store sync.Map // map[string]*entry

	maxEntries int
	count      int64

	hits   int64
	misses int64

	mu           sync.Mutex // guards reverseIndex and serializes InvalidateMatching passes
	reverseIndex map[string][]uint64
}

// NewResultCache builds a cache bounded to maxEntries entries. A
// maxEntries of 0 uses DefaultMaxEntries.
func NewResultCache(maxEntries int) *ResultCache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &ResultCache{maxEntries: maxEntries}
}

// Fingerprint computes the deterministic cache key for a request. The
// caller is responsible for normalizing the request first so that
// equal requests hash identically. Fields are written into the digest
// in a fixed, explicit order as key/value pairs rather than through a
// generic encoding of the struct.
func Fingerprint(operation string, req types.QueryRequest) uint64 {
	h := xxhash.New()
	writeField(h, "op", operation)
	writeField(h, "identifier", req.Identifier)
	writeField(h, "uri", string(req.URI))
	writeField(h, "line", itoa(req.Position.Line))
	writeField(h, "char", itoa(req.Position.Character))
	writeField(h, "maxResults", itoa(req.MaxResults))
	writeField(h, "includeDeclaration", boolStr(req.IncludeDeclaration))
	writeField(h, "precise", boolStr(req.Precise))
	writeField(h, "astOnly", boolStr(req.ASTOnly))
	writeField(h, "conceptual", boolStr(req.Conceptual))
	writeField(h, "newName", req.NewName)
	return h.Sum64()
}

func writeField(h *xxhash.Digest, key, value string) {
	_, _ = h.WriteString(key)
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(value)
	_, _ = h.Write([]byte{0})
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func boolStr(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// Get returns the cached value for key if present and unexpired.
func (c *ResultCache) Get(key uint64) (any, bool) {
	k := keyString(key)
	v, ok := c.store.Load(k)
	if !ok {
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}
	e := v.(*entry)
	if time.Now().UnixNano() > e.expiresAt {
		c.store.Delete(k)
		atomic.AddInt64(&c.count, -1)
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}
	atomic.AddInt64(&c.hits, 1)
	return e.value, true
}

// Put stores value under key with a TTL derived from ResultQuality's
// base/multiplier/clamp policy.
func (c *ResultCache) Put(key uint64, value any, quality ResultQuality) {
	now := time.Now()
	ttl := quality.TTL()
	k := keyString(key)
	e := &entry{
		value:     value,
		cachedAt:  now.UnixNano(),
		expiresAt: now.Add(ttl).UnixNano(),
		key:       k,
	}
	if _, loaded := c.store.LoadOrStore(k, e); !loaded {
		if n := atomic.AddInt64(&c.count, 1); n > int64(c.maxEntries) {
			c.evictOldest()
		}
	} else {
		c.store.Store(k, e)
	}
}

func (c *ResultCache) evictOldest() {
	var oldestKey any
	oldestTime := time.Now().UnixNano()
	c.store.Range(func(k, v any) bool {
		e := v.(*entry)
		if e.cachedAt < oldestTime {
			oldestTime = e.cachedAt
			oldestKey = k
		}
		return true
	})
	if oldestKey != nil {
		c.store.Delete(oldestKey)
		atomic.AddInt64(&c.count, -1)
	}
}

// InvalidateByKeys drops every cached entry under the given keys and
// returns how many were present. It is idempotent and concurrency-safe
// since it only ever deletes keys, never mutates entries in place. The
// cache indexes entries by hash rather than by URI, so InvalidateFile
// resolves a changed file to its keys through the path-to-keys index
// (RegisterKeyURI) and then calls this primitive.
func (c *ResultCache) InvalidateByKeys(keys []uint64) int {
	removed := 0
	for _, k := range keys {
		if _, ok := c.store.LoadAndDelete(keyString(k)); ok {
			atomic.AddInt64(&c.count, -1)
			removed++
		}
	}
	return removed
}

// InvalidateMatching removes every entry whose recorded key string
// matches re. Used by URI-pattern invalidation when the caller tracks
// key->uri associations out of band (e.g. a reverse index maintained
// by the orchestrator) and passes the resulting regex over raw keys.
func (c *ResultCache) InvalidateMatching(re *regexp.Regexp) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	c.store.Range(func(k, v any) bool {
		ks := k.(string)
		if re.MatchString(ks) {
			c.store.Delete(k)
			atomic.AddInt64(&c.count, -1)
			removed++
		}
		return true
	})
	return removed
}

// Stats reports coarse hit/miss/size counters for the metrics layer.
type Stats struct {
	Hits    int64
	Misses  int64
	Entries int64
}

func (c *ResultCache) Stats() Stats {
	return Stats{
		Hits:    atomic.LoadInt64(&c.hits),
		Misses:  atomic.LoadInt64(&c.misses),
		Entries: atomic.LoadInt64(&c.count),
	}
}

// Clear empties the cache. Used in tests and by explicit cache-bust
// operations.
func (c *ResultCache) Clear() {
	c.store.Range(func(k, _ any) bool {
		c.store.Delete(k)
		return true
	})
	atomic.StoreInt64(&c.count, 0)
}

func keyString(key uint64) string {
	const hexDigits = "0123456789abcdef"
	var buf [16]byte
	for i := 15; i >= 0; i-- {
		buf[i] = hexDigits[key&0xf]
		key >>= 4
	}
	return string(buf[:])
}
