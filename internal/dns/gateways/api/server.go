// Package api serves a read-only HTTP view of the running relay: health,
// counters and the current cache contents.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/haukened/rr-relay/internal/dns/common/clock"
	"github.com/haukened/rr-relay/internal/dns/common/log"
	"github.com/haukened/rr-relay/internal/dns/repos/denylist"
	"github.com/haukened/rr-relay/internal/dns/repos/dnscache"
	"github.com/haukened/rr-relay/internal/dns/services/relay"
)

var ErrAlreadyRunning = errors.New("api server already running")

// RelayStats is satisfied by *relay.Relay.
type RelayStats interface {
	Stats() relay.Stats
}

// CacheView is satisfied by *dnscache.Cache.
type CacheView interface {
	Stats() dnscache.Stats
	Snapshot() []dnscache.EntryInfo
}

// DenylistStats is satisfied by *denylist.Repository.
type DenylistStats interface {
	Stats() denylist.Stats
}

type Options struct {
	Address  string
	Relay    RelayStats
	Cache    CacheView
	Denylist DenylistStats // optional
	Clock    clock.Clock
	Logger   log.Logger
}

// Server is the status API. It is started and stopped with the daemon.
type Server struct {
	addr   string
	engine *gin.Engine
	logger log.Logger

	mu       sync.Mutex
	srv      *http.Server
	listener net.Listener
	done     chan struct{}
}

func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(opts.Logger))

	h := &handler{
		relay:    opts.Relay,
		cache:    opts.Cache,
		denylist: opts.Denylist,
		clock:    opts.Clock,
		started:  opts.Clock.Now(),
	}
	registerRoutes(engine, h)

	return &Server{addr: opts.Address, engine: engine, logger: opts.Logger}
}

// Engine exposes the router, mainly for tests.
func (s *Server) Engine() *gin.Engine { return s.engine }

// Address returns the bound address once started, else the configured one.
func (s *Server) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Start binds the listener and serves in the background. Bind errors are
// returned directly.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return ErrAlreadyRunning
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("api listen on %s: %w", s.addr, err)
	}
	s.listener = ln
	s.srv = &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.done = make(chan struct{})

	srv, done := s.srv, s.done
	go func() {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(map[string]any{"error": err.Error()}, "API server stopped")
		}
	}()

	s.logger.Info(map[string]any{"address": ln.Addr().String()}, "API server started")
	return nil
}

// Stop shuts the server down gracefully within ctx. Stopping a server that
// never started is a no-op.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv, done := s.srv, s.done
	s.srv, s.listener = nil, nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	err := srv.Shutdown(ctx)
	select {
	case <-done:
	case <-ctx.Done():
	}
	return err
}
