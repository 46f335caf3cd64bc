package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/signetapp/signet/internal/api"
	"github.com/signetapp/signet/internal/auth"
	"github.com/signetapp/signet/internal/config"
	"github.com/signetapp/signet/internal/logging"
	"github.com/signetapp/signet/internal/pdf"
	"github.com/signetapp/signet/internal/sigcache"
	"github.com/signetapp/signet/internal/store"
	"github.com/signetapp/signet/internal/ws"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

// Version information (set at build time with -ldflags)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var rootCmd = &cobra.Command{
	Use:     "signet",
	Short:   "Signet - document e-signature service",
	Long:    `Signet is a self-hosted e-signature service: upload PDFs, collect signatures over tokenized links, and seal completed documents with an audit certificate`,
	Version: Version,
	Run: func(cmd *cobra.Command, args []string) {
		runServer()
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(hashpwCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Signet %s\n", Version)
		if BuildTime != "unknown" {
			fmt.Printf("Built: %s\n", BuildTime)
		}
		if GitCommit != "unknown" {
			fmt.Printf("Commit: %s\n", GitCommit)
		}
	},
}

var readPassword = term.ReadPassword

var hashpwCmd = &cobra.Command{
	Use:   "hashpw",
	Short: "Hash a password for manual account provisioning",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprint(os.Stderr, "Password: ")
		pass, err := readPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		hash, err := auth.HashPassword(string(pass))
		if err != nil {
			return err
		}
		fmt.Println(hash)
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServer() {
	// Baseline logger so early startup failures are still structured.
	logging.Init(logging.Config{
		Format:    "auto",
		Level:     "info",
		Component: "signet",
	})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Re-initialize logging with configuration-driven settings
	logging.Init(logging.Config{
		Format:    cfg.LogFormat,
		Level:     cfg.LogLevel,
		Component: "signet",
		FilePath:  cfg.LogFile,
		MaxSizeMB: cfg.LogMaxSizeMB,
	})

	log.Info().Str("version", Version).Msg("Starting Signet server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := store.Open(cfg.DataPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	sessions, err := auth.NewSessionStore(cfg.DataPath, cfg.SessionTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open session store")
	}
	defer sessions.Stop()

	sigCache := openSigCache(ctx, cfg)
	defer sigCache.Close()

	hub := ws.NewHub(cfg.AllowedOriginPatterns())
	go hub.Run(ctx)

	templates := pdf.NewTemplateSource(cfg.TemplatePath)
	watcher, err := config.NewTemplateWatcher(cfg.TemplatePath, templates.Reload)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create template watcher, template changes will require restart")
	} else {
		if err := watcher.Start(); err != nil {
			log.Warn().Err(err).Msg("Failed to start template watcher")
		}
		defer watcher.Stop()
	}

	api.Version = Version
	router := api.NewRouter(api.Deps{
		Config:    cfg,
		Store:     db,
		Sessions:  sessions,
		Signing:   auth.NewSigningTokenIssuer(cfg.SessionSecret, cfg.SigningTokenTTL),
		SigCache:  sigCache,
		Templates: templates,
		Hub:       hub,
	})

	// NOTE: We use ReadHeaderTimeout instead of ReadTimeout to avoid affecting
	// WebSocket connections. ReadTimeout sets a deadline on the underlying
	// connection that persists even after the WebSocket upgrade, causing
	// premature disconnections.
	srv := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      0, // handlers manage their own deadlines
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	if addr := cfg.MetricsAddr(); addr != "" {
		g.Go(func() error {
			return runMetricsServer(gctx, addr)
		})
	}

	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		select {
		case sig := <-sigChan:
			log.Info().Str("signal", sig.String()).Msg("Shutting down")
		case <-gctx.Done():
		}
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("Server error")
	}
	log.Info().Msg("Server stopped")
}

// openSigCache prefers Redis when configured and falls back to the
// in-process cache rather than refusing to start.
func openSigCache(ctx context.Context, cfg *config.Config) sigcache.Cache {
	if cfg.RedisURL == "" {
		return sigcache.NewMemory(cfg.SigCacheTTL)
	}
	cache, err := sigcache.NewRedis(ctx, cfg.RedisURL, cfg.SigCacheTTL)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, using in-memory signature cache")
		return sigcache.NewMemory(cfg.SigCacheTTL)
	}
	return cache
}
