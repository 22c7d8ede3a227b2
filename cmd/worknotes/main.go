package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	githubadapter "github.com/kzap42/worknotes/internal/adapter/driven/github"
	pingcodeadapter "github.com/kzap42/worknotes/internal/adapter/driven/pingcode"
	sqliteadapter "github.com/kzap42/worknotes/internal/adapter/driven/sqlite"
	httphandler "github.com/kzap42/worknotes/internal/adapter/driving/http"
	"github.com/kzap42/worknotes/internal/application"
	"github.com/kzap42/worknotes/internal/cache"
	"github.com/kzap42/worknotes/internal/config"
)

// headerSourceFunc adapts a closure to the API adapters' header-source
// interfaces, breaking the construction cycle between a provider's client
// (which resolves headers per request) and its token lifecycle (which takes
// the client as refresher).
type headerSourceFunc func() map[string]string

func (f headerSourceFunc) AuthorizationHeader() map[string]string { return f() }

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on malformed env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"cache_ttl", cfg.CacheTTL,
		"refresh_margin", cfg.RefreshMargin,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire persistence adapters.
	stateStore := sqliteadapter.NewStateRepo(db)
	notesStore := sqliteadapter.NewNotesRepo(db)

	logger := slog.Default()

	// 6. One response cache and one token lifecycle per provider. Each
	// provider's client resolves its authorization header from the matching
	// lifecycle on every request, so refreshes take effect immediately.
	ghCache := cache.New(cfg.CacheTTL)
	pcCache := cache.New(cfg.CacheTTL)

	var ghLifecycle, pcLifecycle *application.TokenLifecycle

	ghClient := githubadapter.NewClient(headerSourceFunc(func() map[string]string {
		return ghLifecycle.AuthorizationHeader()
	}))
	pcClient := pingcodeadapter.NewClient(headerSourceFunc(func() map[string]string {
		return pcLifecycle.AuthorizationHeader()
	}))

	ghLifecycle = application.NewTokenLifecycle(
		application.LifecycleOptions{Name: "github", Margin: cfg.RefreshMargin},
		stateStore, ghClient, ghCache, logger,
	)
	defer ghLifecycle.Close()

	pcLifecycle = application.NewTokenLifecycle(
		// ConfigKey matches the record name earlier releases persisted under.
		application.LifecycleOptions{Name: "pingcode", ConfigKey: "pingcode_credentials", Margin: cfg.RefreshMargin},
		stateStore, pcClient, pcCache, logger,
	)
	defer pcLifecycle.Close()

	// Env-provided registrations take effect before stored state is restored,
	// so a stored-but-expired token can refresh on startup.
	if cfg.GitHub.Valid() {
		ghLifecycle.SetConfig(ctx, cfg.GitHub)
	}
	if cfg.PingCode.Valid() {
		pcLifecycle.SetConfig(ctx, cfg.PingCode)
	}
	ghLifecycle.LoadFromStorage(ctx)
	pcLifecycle.LoadFromStorage(ctx)

	// 7. Application services.
	subs := application.NewSubscriptionService(stateStore, ghCache, logger)
	subs.Load(ctx)

	githubSvc := application.NewGitHubService(ghLifecycle, ghCache, ghClient, subs, logger)
	pingcodeSvc := application.NewPingCodeService(pcLifecycle, pcCache, pcClient, logger)

	notesSvc := application.NewNotesService(notesStore, logger)
	if err := notesSvc.Load(ctx); err != nil {
		return err
	}

	// 8. HTTP handler and routes.
	apiHandler := httphandler.NewHandler(githubSvc, pingcodeSvc, subs, notesSvc, logger)
	handler := httphandler.NewServeMux(apiHandler, logger)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("worknotes started", "listen_addr", cfg.ListenAddr)

	// 9. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 10. Graceful shutdown with 10s timeout to drain in-flight requests.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
