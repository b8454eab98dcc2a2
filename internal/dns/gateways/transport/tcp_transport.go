package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/haukened/rr-relay/internal/dns/common/log"
)

// DefaultShutdownTimeout bounds how long Stop waits for open sessions.
const DefaultShutdownTimeout = 5 * time.Second

var ErrAlreadyRunning = errors.New("TCP transport already running")

type TCPOptions struct {
	Addr            string
	SessionTimeout  time.Duration // zero disables the per-session deadline
	ShutdownTimeout time.Duration
	Logger          log.Logger
}

// TCPTransport serves DNS over TCP, one exchange per accepted connection.
type TCPTransport struct {
	addr            string
	sessionTimeout  time.Duration
	shutdownTimeout time.Duration
	logger          log.Logger

	mu       sync.RWMutex
	listener net.Listener
	running  bool
	cancel   context.CancelFunc

	wg sync.WaitGroup
}

func NewTCPTransport(opts TCPOptions) *TCPTransport {
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = DefaultShutdownTimeout
	}
	return &TCPTransport{
		addr:            opts.Addr,
		sessionTimeout:  opts.SessionTimeout,
		shutdownTimeout: opts.ShutdownTimeout,
		logger:          opts.Logger,
	}
}

// Start binds the listener with SO_REUSEADDR and launches the accept loop.
func (t *TCPTransport) Start(ctx context.Context, handler ConnHandler) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return ErrAlreadyRunning
	}

	ln, err := listenTCPReuseAddr(ctx, t.addr)
	if err != nil {
		return fmt.Errorf("failed to bind TCP socket on %s: %w", t.addr, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	t.listener = ln
	t.cancel = cancel
	t.running = true

	t.logger.Info(map[string]any{
		"transport": "tcp",
		"address":   ln.Addr().String(),
	}, "DNS transport started")

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.acceptLoop(ctx, ln, handler)
	}()
	return nil
}

// Stop closes the listener and waits up to the shutdown timeout for open
// sessions to finish.
func (t *TCPTransport) Stop() error {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return nil
	}
	t.running = false
	t.cancel()
	closeErr := t.listener.Close()
	addr := t.listener.Addr().String()
	t.mu.Unlock()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(t.shutdownTimeout):
		return fmt.Errorf("timeout after %v waiting for open sessions", t.shutdownTimeout)
	}

	t.logger.Info(map[string]any{
		"transport": "tcp",
		"address":   addr,
	}, "DNS transport stopped")

	if closeErr != nil && !errors.Is(closeErr, net.ErrClosed) {
		return closeErr
	}
	return nil
}

// Address returns the bound address, or the configured one before Start.
func (t *TCPTransport) Address() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.listener != nil {
		return t.listener.Addr().String()
	}
	return t.addr
}

func (t *TCPTransport) acceptLoop(ctx context.Context, ln net.Listener, handler ConnHandler) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				t.logger.Debug(nil, "TCP accept loop stopping")
				return
			}
			t.logger.Warn(map[string]any{"error": err.Error()}, "Failed to accept TCP connection")
			continue
		}

		t.wg.Add(1)
		go func() {
			defer t.wg.Done()
			t.handleConn(ctx, conn, handler)
		}()
	}
}

func (t *TCPTransport) handleConn(ctx context.Context, conn net.Conn, handler ConnHandler) {
	client := conn.RemoteAddr().String()
	if t.sessionTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(t.sessionTimeout))
	}

	t.logger.Debug(map[string]any{"client": client}, "Accepted TCP connection")

	if err := handler.ServeConn(ctx, conn); err != nil {
		t.logger.Warn(map[string]any{
			"client": client,
			"error":  err.Error(),
		}, "DNS session failed")
	}
}

// listenTCPReuseAddr creates a listener with SO_REUSEADDR so the daemon can
// rebind immediately after a restart.
func listenTCPReuseAddr(ctx context.Context, addr string) (net.Listener, error) {
	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			var sockErr error
			err := c.Control(func(fd uintptr) {
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
			})
			if err != nil {
				return err
			}
			return sockErr
		},
	}
	return lc.Listen(ctx, "tcp", addr)
}

var _ ServerTransport = (*TCPTransport)(nil)
