package relay

import (
	"context"
	"net/netip"
	"time"

	"github.com/haukened/rr-relay/internal/dns/domain"
)

// Cache stores answered messages keyed by their question.
type Cache interface {
	Lookup(q domain.Question) (*domain.Message, time.Time, bool)
	Insert(msg *domain.Message) error
}

// Forwarder sends a message to the upstream resolver and returns its reply.
// Each call uses its own connection.
type Forwarder interface {
	Forward(ctx context.Context, msg *domain.Message) (*domain.Message, error)
}

// Denylist decides whether a name may be resolved at all.
type Denylist interface {
	Decide(name string) domain.DenyDecision
}

// EventSink receives the per-request audit trail.
type EventSink interface {
	Requested(name string)
	Resolved(name string, addr netip.Addr)
	CacheHit(name string, expiry time.Time)
	Unimplemented()
	Denied(name string, rule string)
}

type nopEvents struct{}

func (nopEvents) Requested(string)            {}
func (nopEvents) Resolved(string, netip.Addr) {}
func (nopEvents) CacheHit(string, time.Time)  {}
func (nopEvents) Unimplemented()              {}
func (nopEvents) Denied(string, string)       {}
