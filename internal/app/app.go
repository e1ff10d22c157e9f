// Package app wires the Ripple auth server runtime: config, logging,
// database, session service, HTTP routes, and graceful shutdown.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	authapi "github.com/potato-club/ripple-server/internal/auth/api"
	"github.com/potato-club/ripple-server/internal/auth/session"
	"github.com/potato-club/ripple-server/internal/auth/token"
	"github.com/potato-club/ripple-server/internal/identity"
)

// App is the server runtime. It owns the HTTP wiring and the background
// janitor.
type App struct {
	cfg Config
	log Logger

	pool  *pgxpool.Pool
	store session.Store
	auth  *authapi.Handler
	gate  *authapi.Gate

	registry *prometheus.Registry
}

// New constructs a fully wired App instance from config and logger.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel)
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}

	codec, err := token.NewCodec(token.Config{
		Secret:     []byte(cfg.Auth.Secret),
		AccessTTL:  cfg.Auth.AccessTTL,
		RefreshTTL: cfg.Auth.RefreshTTL,
		ClockSkew:  cfg.Auth.ClockSkew,
	})
	if err != nil {
		pool.Close()
		return nil, err
	}

	users, err := identity.NewPostgresDirectory(pool)
	if err != nil {
		pool.Close()
		return nil, err
	}

	store, err := session.NewPostgresStore(pool)
	if err != nil {
		pool.Close()
		return nil, err
	}

	svc := session.NewService(codec, store, users, log)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	auth, err := authapi.NewHandler(log, svc, users,
		authapi.WithMetrics(authapi.NewMetrics(registry)),
		authapi.WithMaxBodyBytes(cfg.Auth.MaxBodyBytes),
	)
	if err != nil {
		pool.Close()
		return nil, err
	}

	gate := authapi.NewGate(codec,
		"/auth/login",
		"/auth/refresh",
		"/healthz",
		"/readyz",
		"/metrics",
	)

	return &App{
		cfg:      cfg,
		log:      log,
		pool:     pool,
		store:    store,
		auth:     auth,
		gate:     gate,
		registry: registry,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal
// server error.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	registerHTTP(mux, a.cfg, a.pool, a.registry, a.auth)

	handler := a.gate.Wrap(mux)
	handler = WithRequestLogging(handler, a.log)
	handler = WithRequestID(handler)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: a.cfg.ReadHeaderTimeout,
		ReadTimeout:       a.cfg.ReadTimeout,
		WriteTimeout:      a.cfg.WriteTimeout,
		IdleTimeout:       a.cfg.IdleTimeout,
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr)

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	go a.janitor(janitorCtx)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	a.pool.Close()
	a.log.Info("server.stopped")
	return nil
}

// janitor periodically deletes expired session rows and replay-ledger
// entries. Expiry is already judged lazily on every read; this only keeps
// the tables from growing without bound.
func (a *App) janitor(ctx context.Context) {
	interval := a.cfg.JanitorInterval
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.store.PurgeExpired(ctx, time.Now().UTC()); err != nil {
				a.log.Error("janitor.purge.fail", "err", err)
			}
		}
	}
}
