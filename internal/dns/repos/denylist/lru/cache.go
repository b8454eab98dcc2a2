// Package lru caches denylist decisions.
package lru

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/haukened/rr-relay/internal/dns/domain"
	"github.com/haukened/rr-relay/internal/dns/repos/denylist"
)

// decisionCache is an LRU-backed denylist.DecisionCache with hit, miss and
// eviction counters.
type decisionCache struct {
	lru       *lru.Cache[string, domain.DenyDecision]
	capacity  int
	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// disabledCache always misses.
type disabledCache struct{}

// New creates a DecisionCache with the given capacity. A size <= 0 returns a
// cache that stores nothing.
func New(size int) (denylist.DecisionCache, error) {
	if size <= 0 {
		return disabledCache{}, nil
	}

	dc := &decisionCache{capacity: size}
	// Purge-induced evictions are counted too.
	cache, err := lru.NewWithEvict(size, func(_ string, _ domain.DenyDecision) {
		dc.evictions.Add(1)
	})
	if err != nil {
		return nil, err
	}
	dc.lru = cache
	return dc, nil
}

func (c *decisionCache) Get(name string) (domain.DenyDecision, bool) {
	if val, ok := c.lru.Get(name); ok {
		c.hits.Add(1)
		return val, true
	}
	c.misses.Add(1)
	return domain.DenyDecision{}, false
}

func (c *decisionCache) Put(name string, d domain.DenyDecision) {
	c.lru.Add(name, d)
}

func (c *decisionCache) Len() int { return c.lru.Len() }

func (c *decisionCache) Purge() { c.lru.Purge() }

func (c *decisionCache) Stats() denylist.CacheStats {
	return denylist.CacheStats{
		Capacity:  c.capacity,
		Size:      c.lru.Len(),
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}

func (disabledCache) Get(string) (domain.DenyDecision, bool) { return domain.DenyDecision{}, false }
func (disabledCache) Put(string, domain.DenyDecision)        {}
func (disabledCache) Len() int                               { return 0 }
func (disabledCache) Purge()                                 {}
func (disabledCache) Stats() denylist.CacheStats             { return denylist.CacheStats{} }
