package denylist

import (
	"sync"

	"github.com/haukened/rr-relay/internal/dns/common/log"
	"github.com/haukened/rr-relay/internal/dns/common/utils"
	"github.com/haukened/rr-relay/internal/dns/domain"
)

// Repository composes a Store, a Bloom filter and a DecisionCache. Reads go
// bloom, then cache, then store; Rebuild swaps everything at once.
type Repository struct {
	mu      sync.RWMutex
	store   Store
	cache   DecisionCache
	bloom   BloomFilter
	factory BloomFactory
	fpRate  float64
	logger  log.Logger
}

type Options struct {
	Store   Store
	Cache   DecisionCache
	Factory BloomFactory
	FPRate  float64
	Logger  log.Logger
}

func NewRepository(opts Options) *Repository {
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	return &Repository{
		store:   opts.Store,
		cache:   opts.Cache,
		factory: opts.Factory,
		fpRate:  opts.FPRate,
		logger:  opts.Logger,
	}
}

// Decide returns the decision for name. Matching ignores case and trailing
// dots. Store errors allow the name.
func (r *Repository) Decide(name string) domain.DenyDecision {
	cn := utils.CanonicalDNSName(name)
	if cn == "" {
		return domain.Allow()
	}
	if !r.checkBloom(cn) {
		return domain.Allow()
	}
	if d, ok := r.cache.Get(cn); ok {
		return d
	}
	dec := r.checkStore(cn)
	r.cache.Put(cn, dec)
	return dec
}

// Rebuild writes rules to the store, then swaps in a fresh Bloom filter and
// purges cached decisions.
func (r *Repository) Rebuild(rules []domain.DenyRule, version uint64, updatedUnix int64) error {
	if err := r.store.Rebuild(rules, version, updatedUnix); err != nil {
		return err
	}

	bf := r.factory.New(uint64(len(rules)), r.fpRate)
	for _, ru := range rules {
		switch ru.Kind {
		case domain.DenyExact:
			bf.Add(exactKey(ru.Name))
		case domain.DenySuffix:
			bf.Add(suffixKey(ru.Name))
		}
	}

	r.mu.Lock()
	r.bloom = bf
	r.cache.Purge()
	r.mu.Unlock()

	r.logger.Info(map[string]any{"rules": len(rules), "version": version}, "Denylist rebuilt")
	return nil
}

// Stats returns cache and store metrics.
func (r *Repository) Stats() Stats {
	return Stats{Cache: r.cache.Stats(), Store: r.store.Stats()}
}

// Close releases the store.
func (r *Repository) Close() error {
	return r.store.Close()
}

// Exact and suffix keys share one filter, so they are namespaced.
func exactKey(name string) []byte  { return []byte("=" + name) }
func suffixKey(name string) []byte { return []byte("~" + name) }

// checkBloom reports whether the store may hold a match. Without a filter
// every name is a candidate.
func (r *Repository) checkBloom(cn string) bool {
	r.mu.RLock()
	bf := r.bloom
	r.mu.RUnlock()
	if bf == nil {
		return true
	}
	if bf.MightContain(exactKey(cn)) {
		return true
	}
	for _, a := range utils.Anchors(cn) {
		if bf.MightContain(suffixKey(a)) {
			return true
		}
	}
	return false
}

func (r *Repository) checkStore(cn string) domain.DenyDecision {
	rule, ok, err := r.store.FirstMatch(cn)
	if err != nil {
		r.logger.Warn(map[string]any{"name": cn, "error": err.Error()}, "Denylist store lookup failed")
		return domain.Allow()
	}
	if !ok {
		return domain.Allow()
	}
	return domain.DenyDecision{Denied: true, MatchedRule: rule.Name, Kind: rule.Kind}
}
