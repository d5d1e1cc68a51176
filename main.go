// Package main provides the entry point for the marquee watch-tracking service.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"marquee/auth"
	"marquee/config"
	"marquee/database"
	"marquee/jobs"
	"marquee/lists"
	"marquee/logging"
	"marquee/repository"
	"marquee/services"
)

func main() {
	cmd := &cli.Command{
		Name:  "marquee",
		Usage: "Track watched movies and TV shows and keep a watchlist",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Path to a .env file loaded before the environment",
				Value: ".env",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API server",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "Create or update the database schema",
				Action: migrate,
			},
			{
				Name:   "purge-sessions",
				Usage:  "Delete expired login sessions once and exit",
				Action: purgeSessions,
			},
		},
		Action: serve,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal("Application error", "err", err)
	}
}

// setup loads configuration, installs the logger and opens the database
func setup(ctx context.Context, cmd *cli.Command) (*config.Config, *database.DB, error) {
	cfg, err := config.Load(cmd.String("env-file"))
	if err != nil {
		return nil, nil, err
	}
	log.SetDefault(logging.New(os.Stderr, cfg.LogLevel))

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	db.Configure(cfg.Database.Path, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)

	if err := db.InitSchema(ctx); err != nil {
		closeDB(db)
		return nil, nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return cfg, db, nil
}

func closeDB(db *database.DB) {
	if err := db.Close(); err != nil {
		log.Error("Failed to close database", "err", err)
	}
}

func migrate(ctx context.Context, cmd *cli.Command) error {
	cfg, db, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer closeDB(db)

	log.Info("Database schema is up to date", "path", cfg.Database.Path)
	return nil
}

func purgeSessions(ctx context.Context, cmd *cli.Command) error {
	_, db, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer closeDB(db)

	n, err := jobs.NewSessionPurgeJob(repository.NewSessionRepository(db)).Run(ctx)
	if err != nil {
		return err
	}
	log.Info("Session purge complete", "removed", n)
	return nil
}

// newApp wires repositories, services and background jobs
func newApp(cfg *config.Config, db *database.DB) *App {
	sessions := repository.NewSessionRepository(db)
	authService := auth.NewService(repository.NewUserRepository(db), sessions, cfg.Auth.SessionTTL)
	limiter := auth.NewRateLimiter(cfg.Auth.RateLimit, cfg.Auth.RateBurst)

	return &App{
		watched:     lists.NewWatchedService(repository.NewWatchedRepository(db)),
		watchlist:   lists.NewWatchlistService(repository.NewWatchlistRepository(db)),
		tmdbService: services.NewTMDBService(cfg.TMDB.APIKey, cfg.TMDB.BaseURL, cfg.TMDB.Timeout),
		auth:        authService,
		limiter:     limiter,
		jobManager:  jobs.NewJobManager(jobs.NewSessionPurgeJob(sessions), cfg.Auth.SessionPurgeInterval, limiter),
	}
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, db, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer closeDB(db)

	app := newApp(cfg, db)
	app.jobManager.Start()
	defer app.jobManager.Stop()

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      app.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server starting", "addr", cfg.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
