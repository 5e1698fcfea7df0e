// cmd/web/main.go
//
// bizdir – HTTP entry point.
//
// Start-up sequence
// -----------------
//
//  1. Load env vars (system-wide file → .env fallback).
//
//  2. Connect to Vault when VAULT_ADDR is set, so `vault:` config values
//     can be resolved.
//
//  3. Load and validate configuration, then start the daily rotating
//     logger (tees to console when running in a TTY).
//
//  4. Build the backend client and the read-path services on top of it:
//     category catalog, listing fetcher, and the business resolver chain.
//
//  5. Pick the session store (signed cookie or Redis) and derive the form
//     CSRF key from the session secret.
//
//  6. Subscribe metrics and the audit log to the event bus.
//
//  7. Load the theme, build the view engine, boot every component, and
//     assemble the router (see router.go).
//
//  8. Serve until SIGINT/SIGTERM, then drain in-flight requests.  SIGHUP
//     re-reads the configuration in place.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/yanizio/bizdir/internal/backend"
	"github.com/yanizio/bizdir/internal/business"
	"github.com/yanizio/bizdir/internal/catalog"
	"github.com/yanizio/bizdir/internal/component"
	"github.com/yanizio/bizdir/internal/config"
	"github.com/yanizio/bizdir/internal/form"
	"github.com/yanizio/bizdir/internal/listing"
	"github.com/yanizio/bizdir/internal/logger"
	"github.com/yanizio/bizdir/internal/message"
	"github.com/yanizio/bizdir/internal/metrics"
	"github.com/yanizio/bizdir/internal/requestinfo"
	"github.com/yanizio/bizdir/internal/routing"
	"github.com/yanizio/bizdir/internal/server"
	"github.com/yanizio/bizdir/internal/session"
	"github.com/yanizio/bizdir/internal/theme"
	"github.com/yanizio/bizdir/internal/vault"
	"github.com/yanizio/bizdir/internal/view"

	_ "github.com/yanizio/bizdir/components/auth"
	_ "github.com/yanizio/bizdir/components/directory"
	_ "github.com/yanizio/bizdir/components/review"
)

const (
	serverEnvPath = "/usr/local/etc/bizdir/global.env"
	vaultCacheTTL = 5 * time.Minute
	viewCacheSize = 256
)

// loadEnv prefers the system-wide env file; on dev it falls back to .env.
func loadEnv() {
	if _, err := os.Stat(serverEnvPath); err == nil {
		_ = godotenv.Load(serverEnvPath)
		return
	}
	_ = godotenv.Load()
}

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func init() { loadEnv() }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//
	// ── 1.  Vault (optional) and configuration ──────────────────────────
	//
	var resolve config.SecretResolver
	if os.Getenv("VAULT_ADDR") != "" {
		vc, err := vault.New(ctx, zap.L())
		if err != nil {
			log.Fatalf("vault: %v", err)
		}
		resolve = vc.Resolver(vaultCacheTTL)
	}

	cfg, err := config.Load(ctx, resolve)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logOut, err := logger.New(cfg.Paths.Root, cfg.Log.Level, runningInTTY())
	if err != nil {
		log.Fatalf("start logger: %v", err)
	}
	defer func() { _ = logOut.Sync() }()
	zl := logOut.Desugar()

	if err := requestinfo.OpenGeo(cfg.Geo.DBPath); err != nil {
		logOut.Warnw("geoip disabled", "path", cfg.Geo.DBPath, "err", err)
	}
	go reloadOnHUP(ctx, resolve)
	defer func() { _ = requestinfo.CloseGeo() }()

	//
	// ── 2.  Backend and read-path services ──────────────────────────────
	//
	be := backend.New(cfg.Backend)
	defer func() { _ = be.Close() }()

	img := listing.Images{BaseURL: cfg.Backend.ImageBaseURL, Fallback: cfg.Backend.FallbackImage}
	cat := catalog.NewService(be, cfg.Catalog.CacheTTL)
	fetch := listing.NewFetcher(be, img)
	biz := business.Chain(fetch, be, img, cfg.Business.StaticFallback)
	logOut.Infow("backend configured",
		"base_url", cfg.Backend.BaseURL,
		"static_fallback", cfg.Business.StaticFallback)

	//
	// ── 3.  Sessions and CSRF ───────────────────────────────────────────
	//
	store, closeStore, err := openSessionStore(ctx, cfg)
	if err != nil {
		logOut.Fatalw("session store", "store", cfg.Session.Store, "err", err)
	}
	defer closeStore()
	form.SetSecret([]byte(cfg.Session.Secret))

	//
	// ── 4.  Event bus ───────────────────────────────────────────────────
	//
	bus := message.NewBus()
	bus.Subscribe(func(_ context.Context, ev message.Event) {
		metrics.EventsTotal.WithLabelValues(string(ev.Kind)).Inc()
	})
	bus.Subscribe(message.AuditLog(zl.Named("audit")))

	//
	// ── 5.  Theme, views, and components ────────────────────────────────
	//
	th, err := theme.Load(cfg.Paths.Root, cfg.Theme.Name)
	if err != nil {
		logOut.Fatalw("theme", "name", cfg.Theme.Name, "err", err)
	}
	views := view.New(th, viewCacheSize)

	aliases := routing.NewAliasCache(cat, cfg.Catalog.AliasRefresh)
	if err := aliases.Load(ctx); err != nil {
		// Not fatal: the middleware retries after AliasRefresh.
		logOut.Warnw("alias cache not primed", "err", err)
	}

	deps := component.Deps{
		Config:   cfg,
		Backend:  be,
		Catalog:  cat,
		Listings: fetch,
		Business: biz,
		Bus:      bus,
		View:     views,
	}
	router, err := newRouter(cfg, zl, store, aliases, th, deps)
	if err != nil {
		logOut.Fatalw("router", "err", err)
	}

	// Theme forms override component defaults with the same id.
	formsDir := filepath.Join(cfg.Paths.Root, "themes", th.Name, "forms")
	if _, err := os.Stat(formsDir); err == nil {
		if err := form.RegisterDir(formsDir); err != nil {
			logOut.Fatalw("theme forms", "dir", formsDir, "err", err)
		}
	}

	//
	// ── 6.  Serve ───────────────────────────────────────────────────────
	//
	srv := server.New(cfg.HTTP, router)
	logOut.Infow("listening", "addr", cfg.HTTP.ListenAddr, "theme", th.Name)
	if err := server.Run(ctx, srv, cfg.HTTP.ShutdownTimeout); err != nil {
		logOut.Errorw("http server", "err", err)
		return
	}
	logOut.Info("shutdown complete")
}

// reloadOnHUP re-reads the configuration on SIGHUP.  Only values read per
// request through config.Get (site name, base URL) take effect; listeners,
// stores, and the theme keep their boot settings.
func reloadOnHUP(ctx context.Context, resolve config.SecretResolver) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := config.Reload(ctx, resolve); err != nil {
				zap.S().Errorw("config reload failed, keeping previous", "err", err)
				continue
			}
			zap.S().Info("config reloaded")
		}
	}
}

// openSessionStore returns the configured store and its cleanup func.
func openSessionStore(ctx context.Context, cfg *config.Config) (session.Store, func(), error) {
	opts := session.CookieOptions{
		Name:   cfg.Session.CookieName,
		MaxAge: cfg.Session.MaxAge,
		Secure: cfg.Session.Secure,
	}
	if cfg.Session.Store != "redis" {
		return session.NewCookieStore(cfg.Session.Secret, opts), func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, err
	}
	zap.S().Infow("redis session store online", "addr", cfg.Redis.Addr)
	return session.NewRedisStore(rdb, opts), func() { _ = rdb.Close() }, nil
}
