// Package dnscache holds answered messages for reuse until the TTL of their
// first answer runs out. It is deliberately small: a fixed number of slots,
// scanned in insertion order, with a fixed replacement policy.
package dnscache

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/haukened/rr-relay/internal/dns/common/clock"
	"github.com/haukened/rr-relay/internal/dns/domain"
)

// DefaultCapacity is used when Options.Capacity is zero.
const DefaultCapacity = 5

var (
	ErrInvalidCapacity = errors.New("cache capacity must be at least 1")
	ErrNoAnswers       = errors.New("message has no answers to cache")
)

// EvictionRecorder is told whenever an insert displaces an existing entry.
type EvictionRecorder interface {
	Replaced(evicted, inserted string)
}

// Options configures a Cache.
type Options struct {
	Capacity int
	Clock    clock.Clock
	Events   EvictionRecorder
}

// EntryInfo describes a cached entry without exposing the message.
type EntryInfo struct {
	Domain    string
	Type      domain.RRType
	ExpiresAt time.Time
}

// Stats is a point-in-time view of cache activity.
type Stats struct {
	Entries   int    `json:"entries"`
	Capacity  int    `json:"capacity"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Inserts   uint64 `json:"inserts"`
	Evictions uint64 `json:"evictions"`
}

type entry struct {
	msg    *domain.Message
	expiry time.Time
}

// Cache is safe for concurrent use. Entries keep their slot index when
// replaced, so insertion order only changes through head eviction.
type Cache struct {
	mu       sync.Mutex
	entries  []entry
	capacity int
	clock    clock.Clock
	events   EvictionRecorder
	closed   bool

	hits, misses, inserts, evictions uint64
}

// New returns an empty cache.
func New(opts Options) (*Cache, error) {
	if opts.Capacity == 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.Capacity < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCapacity, opts.Capacity)
	}
	if opts.Clock == nil {
		opts.Clock = &clock.RealClock{}
	}
	return &Cache{
		entries:  make([]entry, 0, opts.Capacity),
		capacity: opts.Capacity,
		clock:    opts.Clock,
		events:   opts.Events,
	}, nil
}

// expired compares whole seconds, so an entry is still live during the
// second in which it expires.
func expired(expiry, now time.Time) bool {
	return now.Unix() > expiry.Unix()
}

// Lookup returns a copy of the first live entry whose question equals q,
// along with that entry's expiry. The stored first answer's TTL is rewritten
// to the remaining lifetime before the copy is taken.
func (c *Cache) Lookup(q domain.Question) (*domain.Message, time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		c.misses++
		return nil, time.Time{}, false
	}

	now := c.clock.Now()
	for i := range c.entries {
		e := &c.entries[i]
		if expired(e.expiry, now) || !e.msg.Question.Equal(q) {
			continue
		}
		remaining := e.expiry.Unix() - now.Unix()
		e.msg.Answers[0].TTL = uint32(remaining) //gosec:disable G115 -- remaining is never negative for a live entry
		c.hits++
		return e.msg.Clone(), e.expiry, true
	}
	c.misses++
	return nil, time.Time{}, false
}

// Insert stores a copy of msg, expiring after the TTL of its first answer.
//
// The slot is chosen in this order: an empty cache takes the message as its
// only entry; an expired head is replaced; otherwise the first expired entry
// after the head is replaced in place; otherwise, when full, the head is
// evicted and the message appended, and when not full it is simply appended.
func (c *Cache) Insert(msg *domain.Message) error {
	first, ok := msg.FirstAnswer()
	if !ok {
		return ErrNoAnswers
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	now := c.clock.Now()
	e := entry{
		msg:    msg.Clone(),
		expiry: now.Add(time.Duration(first.TTL) * time.Second),
	}
	c.inserts++

	switch {
	case len(c.entries) == 0:
		c.entries = append(c.entries, e)
		return nil
	case expired(c.entries[0].expiry, now):
		c.replace(0, e)
		return nil
	}

	for i := 1; i < len(c.entries); i++ {
		if expired(c.entries[i].expiry, now) {
			c.replace(i, e)
			return nil
		}
	}

	if len(c.entries) >= c.capacity {
		c.record(c.entries[0], e)
		copy(c.entries, c.entries[1:])
		c.entries[len(c.entries)-1] = e
		return nil
	}
	c.entries = append(c.entries, e)
	return nil
}

func (c *Cache) replace(i int, e entry) {
	c.record(c.entries[i], e)
	c.entries[i] = e
}

func (c *Cache) record(old, next entry) {
	c.evictions++
	if c.events != nil {
		c.events.Replaced(old.msg.Domain(), next.msg.Domain())
	}
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Capacity returns the maximum number of entries.
func (c *Cache) Capacity() int { return c.capacity }

// Snapshot lists the stored entries in slot order.
func (c *Cache) Snapshot() []EntryInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]EntryInfo, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, EntryInfo{
			Domain:    e.msg.Domain(),
			Type:      e.msg.Question.Type,
			ExpiresAt: e.expiry,
		})
	}
	return out
}

// Stats returns the current counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Entries:   len(c.entries),
		Capacity:  c.capacity,
		Hits:      c.hits,
		Misses:    c.misses,
		Inserts:   c.inserts,
		Evictions: c.evictions,
	}
}

// Close drops every entry. After Close, inserts are ignored and lookups miss.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = nil
	c.closed = true
}
