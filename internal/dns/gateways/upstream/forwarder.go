// Package upstream forwards messages to the configured resolver over TCP,
// opening a new connection for every exchange.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/haukened/rr-relay/internal/dns/domain"
	"github.com/haukened/rr-relay/internal/dns/gateways/wire"
)

// DefaultTimeout bounds an exchange whose context carries no deadline.
const DefaultTimeout = 5 * time.Second

const (
	errFailedToConnect = "connect %s: %w"
	errWriteFailed     = "write query: %w"
	errReadFailed      = "read response: %w"
)

var ErrNoServer = errors.New("no upstream server configured")

// DialFunc establishes a network connection; net.Dialer.DialContext fits.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

type Options struct {
	Server  string
	Timeout time.Duration
	// injectable for tests
	Codec wire.Codec
	Dial  DialFunc
}

// Forwarder implements the relay's upstream exchange. It never pools or
// retries.
type Forwarder struct {
	server  string
	timeout time.Duration
	codec   wire.Codec
	dial    DialFunc
}

func NewForwarder(opts Options) (*Forwarder, error) {
	if opts.Server == "" {
		return nil, ErrNoServer
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Codec == nil {
		opts.Codec = wire.NewStreamCodec(nil)
	}
	if opts.Dial == nil {
		opts.Dial = (&net.Dialer{}).DialContext
	}
	return &Forwarder{
		server:  opts.Server,
		timeout: opts.Timeout,
		codec:   opts.Codec,
		dial:    opts.Dial,
	}, nil
}

// Server returns the upstream address.
func (f *Forwarder) Server() string { return f.server }

// Forward writes msg to a fresh upstream connection and reads one reply.
// The connection is closed before Forward returns.
func (f *Forwarder) Forward(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	conn, err := f.dial(ctx, "tcp", f.server)
	if err != nil {
		return nil, fmt.Errorf(errFailedToConnect, f.server, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	type result struct {
		reply *domain.Message
		err   error
	}
	resultChan := make(chan result, 1)

	go func() {
		if err := f.codec.WriteMessage(conn, msg); err != nil {
			resultChan <- result{err: fmt.Errorf(errWriteFailed, err)}
			return
		}
		reply, err := f.codec.ReadMessage(conn)
		if err != nil {
			resultChan <- result{err: fmt.Errorf(errReadFailed, err)}
			return
		}
		resultChan <- result{reply: reply}
	}()

	select {
	case res := <-resultChan:
		return res.reply, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
