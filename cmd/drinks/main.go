// cmd/drinks/main.go
//
// Drinks API – HTTP entry point.
//
// Start-up sequence
// -----------------
//
//  1. Resolve the project root (DRINKS_ROOT, conf/drinks.yaml, or cwd).
//
//  2. Connect to Vault when VAULT_ADDR is set so `vault:` references in
//     the configuration can be resolved.
//
//  3. Load the Configuration once.  On failure print every offending field
//     and exit 1.  With -check, print the loaded values and exit 0.
//
//  4. Start the daily rotating logger (tees to console outside production
//     or when running in a TTY).
//
//  5. Open the database and apply migrations.
//
//  6. Build the JWKS-backed verifier, the router, and the http.Server.
//
//  7. Serve until SIGINT / SIGTERM, then drain for up to 15 s.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yanizio/drinks/internal/auth"
	"github.com/yanizio/drinks/internal/config"
	"github.com/yanizio/drinks/internal/database"
	"github.com/yanizio/drinks/internal/drink"
	"github.com/yanizio/drinks/internal/logger"
	"github.com/yanizio/drinks/internal/server"
	"github.com/yanizio/drinks/internal/vault"
)

const shutdownGrace = 15 * time.Second

func main() {
	check := flag.Bool("check", false, "load and validate the configuration, print it, and exit")
	root := flag.String("root", "", "project root (defaults to DRINKS_ROOT or auto-detection)")
	flag.Parse()

	if *root == "" {
		*root = config.RootDir()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *root, *check); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, root string, check bool) error {
	//
	// ── 1.  Configuration ───────────────────────────────────────────────
	//
	var opts []config.Option
	if vault.Configured() {
		vc, err := vault.New(ctx, nil)
		if err != nil {
			return fmt.Errorf("vault: %w", err)
		}
		opts = append(opts, config.WithSecrets(vc))
	}

	provider := config.NewProvider(opts...)
	cfg, err := provider.Load(ctx, config.Discover(root)...)
	if err != nil {
		for _, f := range config.Fields(err) {
			fmt.Fprintf(os.Stderr, "config: bad field %s\n", f)
		}
		return err
	}
	if check {
		printConfig(cfg)
		return nil
	}

	//
	// ── 2.  Logger ──────────────────────────────────────────────────────
	//
	logDir := cfg.Log.Dir
	if !filepath.IsAbs(logDir) {
		logDir = filepath.Join(root, logDir)
	}
	log, err := logger.New(logDir, cfg.Log.Level, !cfg.ProductionMode || logger.RunningInTTY())
	if err != nil {
		return fmt.Errorf("start logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Infow("configuration loaded",
		"production", cfg.ProductionMode,
		"api_server_url", cfg.APIServerURL,
		"auth_domain", cfg.IdentityProvider.Domain())

	//
	// ── 3.  Database ────────────────────────────────────────────────────
	//
	db, err := database.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db, cfg.Database.Driver); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	log.Infow("database online", "driver", cfg.Database.Driver)

	//
	// ── 4.  Auth, router, server ────────────────────────────────────────
	//
	keys := auth.NewKeySet(cfg.IdentityProvider.JWKSURL(), cfg.JWKS.CacheTTL, nil)
	verifier := auth.NewVerifier(keys, cfg.IdentityProvider.Issuer(), cfg.IdentityProvider.Audience)

	h := server.NewRouter(server.Deps{
		Config:  cfg,
		Store:   drink.NewRepository(db),
		Auth:    verifier,
		Log:     log,
		Metrics: promhttp.Handler(),
	})
	srv := server.New(cfg.HTTP, h)

	errCh := make(chan error, 1)
	go func() {
		log.Infow("listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Warnw("graceful shutdown incomplete", "err", err)
		return err
	}
	return nil
}

// printConfig writes the non-secret parts of cfg for -check.  The client id
// is public in the implicit flow; the database DSN may hold a password and
// is left out.
func printConfig(cfg config.Configuration) {
	fmt.Printf("production_mode                 %t\n", cfg.ProductionMode)
	fmt.Printf("api_server_url                  %s\n", cfg.APIServerURL)
	fmt.Printf("identity_provider.domain_prefix %s\n", cfg.IdentityProvider.DomainPrefix)
	fmt.Printf("identity_provider.audience      %s\n", cfg.IdentityProvider.Audience)
	fmt.Printf("identity_provider.client_id     %s\n", cfg.IdentityProvider.ClientID)
	fmt.Printf("identity_provider.callback_url  %s\n", cfg.IdentityProvider.CallbackURL)
	fmt.Printf("http.listen_addr                %s\n", cfg.HTTP.ListenAddr)
	fmt.Printf("database.driver                 %s\n", cfg.Database.Driver)
	fmt.Printf("log.dir                         %s\n", cfg.Log.Dir)
	fmt.Printf("log.level                       %s\n", cfg.Log.Level)
	fmt.Printf("jwks.cache_ttl                  %s\n", cfg.JWKS.CacheTTL)
}
