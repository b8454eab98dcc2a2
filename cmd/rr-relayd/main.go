package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/haukened/rr-relay/internal/dns/common/clock"
	"github.com/haukened/rr-relay/internal/dns/common/log"
	"github.com/haukened/rr-relay/internal/dns/config"
	"github.com/haukened/rr-relay/internal/dns/gateways/api"
	"github.com/haukened/rr-relay/internal/dns/gateways/eventlog"
	"github.com/haukened/rr-relay/internal/dns/gateways/transport"
	"github.com/haukened/rr-relay/internal/dns/gateways/upstream"
	"github.com/haukened/rr-relay/internal/dns/gateways/wire"
	"github.com/haukened/rr-relay/internal/dns/repos/denylist"
	"github.com/haukened/rr-relay/internal/dns/repos/denylist/bloom"
	"github.com/haukened/rr-relay/internal/dns/repos/denylist/bolt"
	"github.com/haukened/rr-relay/internal/dns/repos/denylist/lru"
	"github.com/haukened/rr-relay/internal/dns/repos/dnscache"
	"github.com/haukened/rr-relay/internal/dns/services/relay"
)

const (
	version = "0.1.0-dev"
	appName = "rr-relayd"

	defaultShutdownTimeout = 10 * time.Second
)

var errUsage = errors.New("usage: " + appName + " [<server-ip> <server-port>]")

// Application holds every component of the relay.
type Application struct {
	config    *config.AppConfig
	cache     *dnscache.Cache
	events    *eventlog.Sink
	denylist  *denylist.Repository // nil when disabled
	relay     *relay.Relay
	transport *transport.TCPTransport
	api       *api.Server // nil when disabled
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	if err := applyArgs(cfg, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if err := log.Configure(cfg.Env, cfg.Log.Level); err != nil {
		fmt.Fprintf(os.Stderr, "Logging configuration error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info(map[string]any{
		"version":  version,
		"env":      cfg.Env,
		"level":    cfg.Log.Level,
		"port":     cfg.Relay.Port,
		"upstream": cfg.Relay.Upstream,
		"capacity": cfg.Relay.CacheCapacity,
		"events":   cfg.Events.Enabled,
		"denylist": cfg.Denylist.Enabled,
		"api":      cfg.API.Enabled,
	}, "Starting "+appName)

	app, err := buildApplication(cfg)
	if err != nil {
		log.Fatal(map[string]any{"error": err.Error()}, "Failed to build application")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		log.Fatal(map[string]any{"error": err.Error()}, "Relay failed")
	}

	log.Info(nil, appName+" stopped gracefully")
}

// applyArgs lets "<server-ip> <server-port>" on the command line override the
// configured upstream.
func applyArgs(cfg *config.AppConfig, args []string) error {
	switch len(args) {
	case 0:
		return nil
	case 2:
		cfg.Relay.Upstream = net.JoinHostPort(args[0], args[1])
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid upstream %q: %w", cfg.Relay.Upstream, err)
		}
		return nil
	default:
		return errUsage
	}
}

// buildApplication constructs all components and wires them together. On
// error, anything already opened is closed again.
func buildApplication(cfg *config.AppConfig) (app *Application, err error) {
	clk := &clock.RealClock{}
	logger := log.GetLogger()

	app = &Application{config: cfg}
	defer func() {
		if err != nil {
			app.Close()
			app = nil
		}
	}()

	app.events = eventlog.NewNop()
	if cfg.Events.Enabled {
		if app.events, err = eventlog.Open(cfg.Events.Path, clk); err != nil {
			return app, err
		}
	}

	app.cache, err = dnscache.New(dnscache.Options{
		Capacity: cfg.Relay.CacheCapacity,
		Clock:    clk,
		Events:   app.events,
	})
	if err != nil {
		return app, fmt.Errorf("failed to create cache: %w", err)
	}

	if cfg.Denylist.Enabled {
		if app.denylist, err = buildDenylist(cfg, clk, logger); err != nil {
			return app, fmt.Errorf("failed to build denylist: %w", err)
		}
	}

	codec := wire.NewStreamCodec(logger)
	forwarder, err := upstream.NewForwarder(upstream.Options{
		Server:  cfg.Relay.Upstream,
		Timeout: cfg.Relay.UpstreamTimeout,
		Codec:   codec,
	})
	if err != nil {
		return app, fmt.Errorf("failed to create upstream forwarder: %w", err)
	}
	log.Info(map[string]any{
		"server":  forwarder.Server(),
		"timeout": cfg.Relay.UpstreamTimeout.String(),
	}, "Upstream forwarder configured")

	opts := relay.Options{
		Cache:    app.cache,
		Codec:    codec,
		Events:   app.events,
		Logger:   logger,
		Upstream: forwarder,
	}
	if app.denylist != nil {
		opts.Denylist = app.denylist
	}
	app.relay = relay.New(opts)

	app.transport = transport.NewTCPTransport(transport.TCPOptions{
		Addr:            cfg.ListenAddr(),
		SessionTimeout:  cfg.Relay.SessionTimeout,
		ShutdownTimeout: defaultShutdownTimeout,
		Logger:          logger,
	})

	if cfg.API.Enabled {
		apiOpts := api.Options{
			Address: cfg.API.Address,
			Relay:   app.relay,
			Cache:   app.cache,
			Clock:   clk,
			Logger:  logger,
		}
		if app.denylist != nil {
			apiOpts.Denylist = app.denylist
		}
		app.api = api.New(apiOpts)
	}

	return app, nil
}

// buildDenylist opens the rule store, loads the rule directory and rebuilds
// the store from it.
func buildDenylist(cfg *config.AppConfig, clk clock.Clock, logger log.Logger) (*denylist.Repository, error) {
	dc := cfg.Denylist
	if err := os.MkdirAll(filepath.Dir(dc.DB), 0o750); err != nil {
		return nil, fmt.Errorf("create denylist db directory: %w", err)
	}
	store, err := bolt.New(dc.DB)
	if err != nil {
		return nil, err
	}
	cache, err := lru.New(dc.Cache.Size)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	repo := denylist.NewRepository(denylist.Options{
		Store:   store,
		Cache:   cache,
		Factory: bloom.NewFactory(),
		FPRate:  dc.FPRate,
		Logger:  logger,
	})

	now := clk.Now()
	rules, err := denylist.LoadDirectory(dc.Directory, logger, now)
	if err != nil {
		_ = repo.Close()
		return nil, err
	}
	if err := repo.Rebuild(rules, uint64(now.Unix()), now.Unix()); err != nil { //gosec:disable G115 -- wall clock is after 1970
		_ = repo.Close()
		return nil, err
	}
	return repo, nil
}

// Run starts the relay and blocks until ctx is cancelled, then shuts down.
func (app *Application) Run(ctx context.Context) error {
	if err := app.transport.Start(ctx, app.relay); err != nil {
		return err
	}
	if app.api != nil {
		if err := app.api.Start(ctx); err != nil {
			_ = app.transport.Stop()
			return err
		}
	}

	log.Info(map[string]any{
		"address":  app.transport.Address(),
		"upstream": app.config.Relay.Upstream,
	}, "Relay started")

	<-ctx.Done()
	log.Info(nil, "Shutdown initiated")
	return app.shutdown()
}

func (app *Application) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()

	var errs []error
	if err := app.transport.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("transport: %w", err))
	}
	if app.api != nil {
		if err := app.api.Stop(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("api: %w", err))
		}
	}
	app.Close()

	if err := errors.Join(errs...); err != nil {
		log.Warn(map[string]any{"error": err.Error()}, "Shutdown incomplete")
		return err
	}
	log.Info(nil, "Graceful shutdown completed")
	return nil
}

// Close releases the cache, the denylist store and the event log. It is safe
// on a partially built application.
func (app *Application) Close() {
	if app.cache != nil {
		app.cache.Close()
	}
	if app.denylist != nil {
		if err := app.denylist.Close(); err != nil {
			log.Warn(map[string]any{"error": err.Error()}, "Error closing denylist store")
		}
	}
	if app.events != nil {
		if err := app.events.Close(); err != nil {
			log.Warn(map[string]any{"error": err.Error()}, "Error closing event log")
		}
	}
}
