// Command web runs the PayManni web shell: server-rendered views and JSON
// endpoints in front of the upstream PayManni API, with server-side sessions
// in Redis, Postgres or memory.
package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"paymanni.org/internal/auth"
	"paymanni.org/internal/config"
	"paymanni.org/internal/mail"
	"paymanni.org/internal/obs"
	"paymanni.org/internal/session"
	"paymanni.org/internal/wallet/remote"
	"paymanni.org/internal/webapp"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		obs.LogEvent(map[string]any{"level": "fatal", "msg": "config load failed", "error": err.Error()})
		os.Exit(1)
	}

	obs.Init()
	obs.InitBuildInfo(version, commit)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, ready, cleanup, err := openStore(ctx, cfg)
	if err != nil {
		obs.LogEvent(map[string]any{"level": "fatal", "msg": "session store init failed", "error": err.Error()})
		os.Exit(1)
	}
	defer cleanup()

	upstream := remote.New(cfg.UpstreamURL, nil)

	opts := []auth.Option{auth.WithCookieTTL(cfg.SessionTTL())}
	if cfg.SendGridAPIKey != "" {
		opts = append(opts, auth.WithMailer(mail.NewSendGrid(cfg.SendGridAPIKey, "PayManni", cfg.MailFrom)))
	}
	authSvc, err := auth.NewService(store, upstream, cfg.SessionSecret, opts...)
	if err != nil {
		obs.LogEvent(map[string]any{"level": "fatal", "msg": "auth init failed", "error": err.Error()})
		os.Exit(1)
	}

	app := webapp.New(authSvc, upstream,
		webapp.WithVersion(version),
		webapp.WithReadiness(ready),
	)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		obs.LogEvent(map[string]any{"level": "info", "msg": "listening", "addr": cfg.Addr, "env": cfg.Env})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			obs.LogEvent(map[string]any{"level": "fatal", "msg": "server failed", "error": err.Error()})
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		obs.LogEvent(map[string]any{"level": "error", "msg": "shutdown incomplete", "error": err.Error()})
	}
	obs.LogEvent(map[string]any{"level": "info", "msg": "stopped"})
}

// openStore picks the session backend: Redis when configured, else Postgres,
// else process memory. Returns the store, a readiness probe and a cleanup.
func openStore(ctx context.Context, cfg *config.Config) (session.Store, func(context.Context) error, func(), error) {
	switch {
	case cfg.RedisURL != "":
		client, err := session.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, nil, err
		}
		ready := func(ctx context.Context) error { return client.Ping(ctx).Err() }
		cleanup := func() { _ = client.Close() }
		obs.LogEvent(map[string]any{"level": "info", "msg": "session store: redis"})
		return session.NewRedis(client, cfg.SessionTTL()), ready, cleanup, nil

	case cfg.PostgresDSN != "":
		db, err := sql.Open("pgx", cfg.PostgresDSN)
		if err != nil {
			return nil, nil, nil, err
		}
		db.SetMaxOpenConns(20)
		db.SetConnMaxIdleTime(5 * time.Minute)
		if err := session.EnsureSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, nil, err
		}
		ready := db.PingContext
		cleanup := func() { _ = db.Close() }
		obs.LogEvent(map[string]any{"level": "info", "msg": "session store: postgres"})
		return session.NewPG(db), ready, cleanup, nil

	default:
		obs.LogEvent(map[string]any{"level": "info", "msg": "session store: memory"})
		return session.NewMemory(), nil, func() {}, nil
	}
}
