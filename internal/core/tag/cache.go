package tag

import "github.com/cespare/xxhash/v2"

type cacheEntry struct {
	query string
	spec  Spec
}

// Cache memoizes parsed specs. Hosts tend to re-issue the same query string
// every frame, so parsing once per distinct string pays off. Keyed by xxhash
// with the raw string kept for collision checks. Not safe for concurrent use.
type Cache struct {
	entries map[uint64]cacheEntry
}

func NewCache() *Cache {
	return &Cache{entries: make(map[uint64]cacheEntry, 64)}
}

// Parse returns the cached spec for q, parsing and storing it on first sight.
func (c *Cache) Parse(q string) Spec {
	if q == "" {
		return Spec{}
	}
	h := xxhash.Sum64String(q)
	if e, ok := c.entries[h]; ok && e.query == q {
		return e.spec
	}
	s := Parse(q)
	c.entries[h] = cacheEntry{query: q, spec: s}
	return s
}

// Len returns the number of cached specs.
func (c *Cache) Len() int { return len(c.entries) }
