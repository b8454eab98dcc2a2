// Package relay answers one DNS exchange per client connection: it rejects
// what it does not support, serves from the cache when it can, and otherwise
// forwards to the upstream resolver.
package relay

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"

	"github.com/haukened/rr-relay/internal/dns/common/log"
	"github.com/haukened/rr-relay/internal/dns/domain"
	"github.com/haukened/rr-relay/internal/dns/gateways/wire"
)

type Relay struct {
	cache    Cache
	codec    wire.Codec
	denylist Denylist
	events   EventSink
	logger   log.Logger
	upstream Forwarder

	requests      atomic.Uint64
	cacheHits     atomic.Uint64
	forwarded     atomic.Uint64
	unimplemented atomic.Uint64
	denied        atomic.Uint64
	failures      atomic.Uint64
}

type Options struct {
	Cache    Cache
	Codec    wire.Codec
	Denylist Denylist // optional
	Events   EventSink
	Logger   log.Logger
	Upstream Forwarder
}

// Stats are the relay's lifetime counters.
type Stats struct {
	Requests      uint64 `json:"requests"`
	CacheHits     uint64 `json:"cache_hits"`
	Forwarded     uint64 `json:"forwarded"`
	Unimplemented uint64 `json:"unimplemented"`
	Denied        uint64 `json:"denied"`
	Failures      uint64 `json:"failures"`
}

func New(opts Options) *Relay {
	r := &Relay{
		cache:    opts.Cache,
		codec:    opts.Codec,
		denylist: opts.Denylist,
		events:   opts.Events,
		logger:   opts.Logger,
		upstream: opts.Upstream,
	}
	if r.logger == nil {
		r.logger = log.NewNoopLogger()
	}
	if r.codec == nil {
		r.codec = wire.NewStreamCodec(r.logger)
	}
	if r.events == nil {
		r.events = nopEvents{}
	}
	return r
}

// ServeConn runs a single exchange on conn and always closes it. An error
// ends only this session.
func (r *Relay) ServeConn(ctx context.Context, conn net.Conn) error {
	defer conn.Close()

	if err := r.serve(ctx, conn); err != nil {
		r.failures.Add(1)
		return err
	}
	return nil
}

func (r *Relay) serve(ctx context.Context, conn net.Conn) error {
	msg, err := r.codec.ReadMessage(conn)
	if err != nil {
		return fmt.Errorf("read request: %w", err)
	}
	r.requests.Add(1)
	name := msg.Domain()
	r.events.Requested(name)

	if msg.Header.IsQuery() && msg.Question.Type != domain.RRTypeAAAA {
		msg.MarkNotImplemented()
	}

	reply, err := r.resolve(ctx, msg, name)
	if err != nil {
		return err
	}

	if err := r.codec.WriteMessage(conn, reply); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}

func (r *Relay) resolve(ctx context.Context, msg *domain.Message, name string) (*domain.Message, error) {
	if msg.IsNotImplemented() {
		r.unimplemented.Add(1)
		r.events.Unimplemented()
		return msg, nil
	}

	if r.denylist != nil {
		if d := r.denylist.Decide(name); d.Denied {
			r.denied.Add(1)
			msg.MarkRefused()
			r.events.Denied(name, d.MatchedRule)
			return msg, nil
		}
	}

	if cached, expiry, ok := r.cache.Lookup(msg.Question); ok {
		r.cacheHits.Add(1)
		cached.Header.ID = msg.Header.ID
		r.events.CacheHit(name, expiry)
		r.resolved(cached)
		return cached, nil
	}

	reply, err := r.upstream.Forward(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("forward %s: %w", name, err)
	}
	r.forwarded.Add(1)

	if len(reply.Answers) > 0 {
		if err := r.cache.Insert(reply); err != nil {
			r.logger.Warn(map[string]any{"domain": name, "error": err}, "Cache insert failed")
		}
	}
	r.resolved(reply)
	return reply, nil
}

// resolved records the address when the first answer is a AAAA record.
func (r *Relay) resolved(msg *domain.Message) {
	first, ok := msg.FirstAnswer()
	if !ok {
		return
	}
	if addr, ok := first.IPv6(); ok {
		r.events.Resolved(msg.Domain(), addr)
	}
}

// Stats returns a snapshot of the counters.
func (r *Relay) Stats() Stats {
	return Stats{
		Requests:      r.requests.Load(),
		CacheHits:     r.cacheHits.Load(),
		Forwarded:     r.forwarded.Load(),
		Unimplemented: r.unimplemented.Load(),
		Denied:        r.denied.Load(),
		Failures:      r.failures.Load(),
	}
}
