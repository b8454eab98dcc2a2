// Package transport accepts client connections and hands each one to the
// session layer on its own goroutine.
package transport

import (
	"context"
	"net"
)

// ServerTransport is a listener the daemon can start and stop.
type ServerTransport interface {
	// Start binds the listener and begins accepting in the background.
	Start(ctx context.Context, handler ConnHandler) error

	// Stop closes the listener and waits for in-flight sessions.
	Stop() error

	// Address returns the bound address once started.
	Address() string
}

// ConnHandler serves one accepted connection and owns closing it.
type ConnHandler interface {
	ServeConn(ctx context.Context, conn net.Conn) error
}

// ConnHandlerFunc adapts a function to ConnHandler.
type ConnHandlerFunc func(ctx context.Context, conn net.Conn) error

func (f ConnHandlerFunc) ServeConn(ctx context.Context, conn net.Conn) error {
	return f(ctx, conn)
}
