// Package denylist decides whether a name may be resolved. Rules live in a
// persistent store; a Bloom filter answers most allows without touching it
// and an LRU remembers recent decisions.
package denylist

import "github.com/haukened/rr-relay/internal/dns/domain"

// BloomFilter is the minimal interface the repository needs from Bloom filters.
type BloomFilter interface {
	Add(key []byte)
	MightContain(key []byte) bool
}

// BloomFactory builds filters sized for a dataset.
type BloomFactory interface {
	New(capacity uint64, fpRate float64) BloomFilter
}

// DecisionCache caches decisions by canonical name with basic metrics.
type DecisionCache interface {
	Get(name string) (domain.DenyDecision, bool)
	Put(name string, d domain.DenyDecision)
	Len() int
	Purge()
	Stats() CacheStats
}

// Store is the persistent rule index.
type Store interface {
	// Rebuild replaces every rule and the snapshot metadata in one transaction.
	Rebuild(rules []domain.DenyRule, version uint64, updatedUnix int64) error
	// FirstMatch returns the rule that denies name: an exact rule first, then
	// the most specific suffix rule.
	FirstMatch(name string) (domain.DenyRule, bool, error)
	Stats() StoreStats
	Close() error
}

// CacheStats reports decision cache metrics.
type CacheStats struct {
	Capacity  int    `json:"capacity"`
	Size      int    `json:"size"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
}

// StoreStats reports store counts and metadata.
type StoreStats struct {
	Version     uint64 `json:"version"`
	UpdatedUnix int64  `json:"updated_unix"`
	ExactKeys   uint64 `json:"exact_keys"`
	SuffixKeys  uint64 `json:"suffix_keys"`
}

// Stats combines cache and store metrics.
type Stats struct {
	Cache CacheStats `json:"cache"`
	Store StoreStats `json:"store"`
}
