// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package main is the entry point for the sebencms API server. It loads
// configuration, connects to services, sets up routing, and starts the HTTP
// server with graceful shutdown support. The migrate and seed subcommands
// manage the schema and starter data without starting the server.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"sebencms/internal/cache"
	"sebencms/internal/chatbot"
	"sebencms/internal/config"
	"sebencms/internal/database"
	"sebencms/internal/handlers"
	"sebencms/internal/middleware"
	"sebencms/internal/router"
	"sebencms/internal/storage"
	"sebencms/internal/store"
)

func main() {
	root := &cobra.Command{
		Use:           "sebencms",
		Short:         "Blog CMS and lead-capture chatbot API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run migrations and start the HTTP API",
		RunE:  runServe,
	})

	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	migrate.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE:  withDB(database.Migrate),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			RunE:  withDB(database.Rollback),
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show the state of every migration",
			RunE: withDB(func(db *sql.DB) error {
				if err := database.Status(db); err != nil {
					return err
				}
				v, err := database.Version(db)
				if err != nil {
					return err
				}
				fmt.Printf("schema version %d\n", v)
				return nil
			}),
		},
	)
	root.AddCommand(migrate)

	root.AddCommand(&cobra.Command{
		Use:   "seed",
		Short: "Create the default chatbot flow and starter categories",
		RunE: withDB(func(db *sql.DB) error {
			return database.Seed(context.Background(), db, chatbot.DefaultSteps())
		}),
	})

	if err := root.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// setup loads configuration and installs the default logger: JSON in
// production, text otherwise.
func setup() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var h slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg.Env == "production" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(h))
	return cfg, nil
}

// withDB adapts a schema task into a command body with a connected pool.
func withDB(fn func(db *sql.DB) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg, err := setup()
		if err != nil {
			return err
		}
		db, err := database.Connect(cmd.Context(), cfg.DSN())
		if err != nil {
			return err
		}
		defer db.Close()
		return fn(db)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := setup()
	if err != nil {
		return err
	}
	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
		"search", cfg.SearchMode,
	)

	// Connect to PostgreSQL and bring the schema up to date.
	db, err := database.Connect(ctx, cfg.DSN())
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		return err
	}

	// Seed development data (no-op if data already exists).
	if cfg.IsDev() {
		if err := database.Seed(ctx, db, chatbot.DefaultSteps()); err != nil {
			return err
		}
	}

	// Response cache in Valkey, optional.
	var responseCache *cache.ResponseCache
	if cfg.CacheEnabled() {
		var valkeyClient *redis.Client
		valkeyClient, err = cache.ConnectValkey(ctx, cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
		if err != nil {
			return err
		}
		defer valkeyClient.Close()
		responseCache = cache.NewResponseCache(valkeyClient, cfg.CacheTTL)
	} else {
		slog.Warn("valkey not configured, response cache disabled")
	}

	// Featured images go to S3-compatible storage when configured and to
	// local disk otherwise.
	var (
		images    storage.ImageStore
		uploadDir string
	)
	if cfg.UseS3() {
		s3Store, err := storage.NewS3(cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3PublicURL)
		if err != nil {
			return fmt.Errorf("initialize s3 storage: %w", err)
		}
		images = s3Store
		slog.Info("s3 storage connected", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3Bucket)
	} else {
		local, err := storage.NewLocal(cfg.UploadDir, cfg.UploadURLPrefix)
		if err != nil {
			return fmt.Errorf("initialize local storage: %w", err)
		}
		images = local
		uploadDir = local.Dir()
		slog.Info("local image storage", "dir", uploadDir, "prefix", cfg.UploadURLPrefix)
	}

	// Data stores and services.
	categoryStore := store.NewCategoryStore(db)
	tagStore := store.NewTagStore(db)
	postStore := store.NewPostStore(db, store.PostStoreOptions{
		FullText:      cfg.SearchMode == config.SearchFullText,
		DefaultAuthor: cfg.DefaultAuthor,
	})
	leadStore := store.NewLeadStore(db)
	chatService := chatbot.NewService(store.NewFlowStore(db), leadStore)

	var leadLimiter *middleware.RateLimiter
	if cfg.LeadRateLimit > 0 {
		leadLimiter = middleware.NewRateLimiter(cfg.LeadRateLimit)
		defer leadLimiter.Stop()
	}

	r := router.New(router.Handlers{
		Taxonomy: handlers.NewTaxonomy(categoryStore, tagStore),
		Posts:    handlers.NewPosts(postStore, images, cfg.MaxUploadSize),
		Chatbot:  handlers.NewChatbot(chatService, leadStore),
	}, router.Options{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		Cache:              responseCache,
		LeadLimiter:        leadLimiter,
		UploadDir:          uploadDir,
		UploadURLPrefix:    cfg.UploadURLPrefix,
	})

	// ReadTimeout leaves room for multipart image uploads.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		slog.Info("shutdown signal received", "signal", sig)
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	// Give active requests up to 30 seconds to complete.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}
