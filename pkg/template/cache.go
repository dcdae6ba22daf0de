package template

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of compiled templates a Cache keeps when no
// size is given.
const DefaultCacheSize = 256

// Cache memoizes Compile results keyed by source text. It is safe for
// concurrent use.
type Cache struct {
	entries *lru.Cache[string, string]
	opts    []Option
	hits    atomic.Uint64
	misses  atomic.Uint64
}

// CacheStats is a snapshot of cache effectiveness.
type CacheStats struct {
	Hits    uint64
	Misses  uint64
	Entries int
}

// NewCache creates a compile cache holding up to size templates. Every
// compilation through the cache uses opts.
func NewCache(size int, opts ...Option) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	entries, err := lru.New[string, string](size)
	if err != nil {
		return nil, err
	}
	return &Cache{entries: entries, opts: opts}, nil
}

// Compile returns the compiled form of src, compiling at most once per
// distinct source while it stays cached.
func (c *Cache) Compile(src string) string {
	if out, ok := c.entries.Get(src); ok {
		c.hits.Add(1)
		return out
	}
	c.misses.Add(1)
	out := Compile(src, c.opts...)
	c.entries.Add(src, out)
	return out
}

// Purge drops every cached template.
func (c *Cache) Purge() {
	c.entries.Purge()
}

// Stats reports hit and miss counters.
func (c *Cache) Stats() CacheStats {
	return CacheStats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: c.entries.Len(),
	}
}
