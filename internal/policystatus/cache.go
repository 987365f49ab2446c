package policystatus

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Cache is the memoization capability the counter can be given. The counter
// treats it as a pure cache: results must be identical whether the cache is
// present, bypassed, or cold, and a cached value is only ever the final
// fully-assembled response for the literal argument set encoded in the key.
type Cache interface {
	Get(key string) (*PlaceObsList, bool)
	Put(key string, val *PlaceObsList)
}

// MemoryCache is a TTL'd in-process Cache. Safe for concurrent use.
type MemoryCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]memoryEntry
}

type memoryEntry struct {
	val     *PlaceObsList
	expires time.Time
}

// NewMemoryCache returns a MemoryCache whose entries expire after ttl.
// A zero ttl means entries never expire (flush explicitly instead).
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{ttl: ttl, entries: make(map[string]memoryEntry)}
}

func (c *MemoryCache) Get(key string) (*PlaceObsList, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !e.expires.IsZero() && time.Now().After(e.expires) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return e.val, true
}

func (c *MemoryCache) Put(key string, val *PlaceObsList) {
	var expires time.Time
	if c.ttl > 0 {
		expires = time.Now().Add(c.ttl)
	}
	c.mu.Lock()
	c.entries[key] = memoryEntry{val: val, expires: expires}
	c.mu.Unlock()
}

// Flush drops every cached entry.
func (c *MemoryCache) Flush() {
	c.mu.Lock()
	c.entries = make(map[string]memoryEntry)
	c.mu.Unlock()
}

// Len reports the number of live entries, counting expired ones not yet
// evicted.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// cacheKey encodes the literal argument set of a count call. Filter fields
// are sorted so logically equal maps produce equal keys.
func cacheKey(geoRes GeoRes, f Filters, opt CountOptions) string {
	var b strings.Builder
	b.WriteString(string(geoRes))
	fields := make([]string, 0, len(f))
	for field := range f {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		b.WriteString("|")
		b.WriteString(field)
		b.WriteString("=")
		b.WriteString(strings.Join(f[field], ","))
	}
	b.WriteString("|opts=")
	for _, flag := range []bool{
		opt.ByGroupNumber, opt.FilterBySubgeo, opt.IncludeZeros,
		opt.IncludeMinMax, opt.CountMinMaxByCat, opt.One,
	} {
		b.WriteString(strconv.FormatBool(flag))
		b.WriteString(",")
	}
	for _, g := range opt.CountedParentGeos {
		b.WriteString(string(g))
		b.WriteString(",")
	}
	return b.String()
}
