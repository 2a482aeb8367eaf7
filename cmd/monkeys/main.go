// Package main is the entrypoint for the MonkeysCMS server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/monkeyscms/monkeys/internal/audit"
	"github.com/monkeyscms/monkeys/internal/auth"
	"github.com/monkeyscms/monkeys/internal/cache"
	"github.com/monkeyscms/monkeys/internal/config"
	"github.com/monkeyscms/monkeys/internal/content"
	"github.com/monkeyscms/monkeys/internal/database"
	"github.com/monkeyscms/monkeys/internal/schema"
	"github.com/monkeyscms/monkeys/internal/server"
	"github.com/monkeyscms/monkeys/internal/types"
)

func main() {
	cfg := config.Load()

	// --- Set up structured logging ---
	logLevel := slog.LevelInfo
	if cfg.DevMode {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("starting MonkeysCMS",
		"port", cfg.Port,
		"manifest_dir", cfg.ManifestDir,
		"dev_mode", cfg.DevMode,
	)

	// --- Connect to database ---
	if cfg.DatabaseURL == "" {
		slog.Error("MONKEYS_DATABASE_URL is required")
		os.Exit(1)
	}

	dbCtx, dbCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer dbCancel()

	db, err := database.New(dbCtx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database connected")

	// --- Run system table migrations ---
	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("migrations applied")

	// --- Set up the registry cache ---
	var registryCache cache.Store
	if cfg.RedisURL != "" {
		redisCache, err := cache.NewRedis(dbCtx, cfg.RedisURL)
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisCache.Close()
		registryCache = redisCache
		slog.Info("redis cache connected")
	} else {
		registryCache = cache.NewMemory()
		slog.Info("using in-process registry cache")
	}

	// --- Audit service ---
	auditService := audit.NewService(audit.NewRepository(db))
	auditService.Start()

	// --- Type registries ---
	ddl := schema.NewExecutor(db)
	contentManager := types.NewManager(types.ContentTypes,
		types.NewRepository(db, types.ContentTypes), ddl, registryCache)
	blockManager := types.NewManager(types.BlockTypes,
		types.NewRepository(db, types.BlockTypes), ddl, registryCache)

	// --- Load code-defined types from manifests ---
	manifests, err := types.LoadManifests(cfg.ManifestDir)
	if err != nil {
		slog.Error("failed to load type manifests", "error", err)
		os.Exit(1)
	}
	slog.Info("type manifests loaded", "count", len(manifests))

	if err := contentManager.RegisterCode(manifests...); err != nil {
		slog.Error("failed to register code-defined types", "error", err)
		os.Exit(1)
	}

	syncCtx, syncCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer syncCancel()

	if err := contentManager.SyncCodeTables(syncCtx); err != nil {
		slog.Error("failed to sync code-defined type tables", "error", err)
		os.Exit(1)
	}
	slog.Info("code-defined type tables synced")

	// --- Set up authentication ---
	if cfg.JWTSecret == "" {
		slog.Error("MONKEYS_JWT_SECRET is required")
		os.Exit(1)
	}

	authService := auth.NewService(auth.NewRepository(db), cfg.JWTSecret)

	// Create initial admin if configured and not present yet.
	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		adminCtx, adminCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer adminCancel()

		if err := authService.EnsureAdmin(adminCtx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			slog.Error("failed to ensure initial admin", "error", err)
			os.Exit(1)
		}
	}

	// --- Content engine ---
	entryEngine := content.NewEngine(types.ContentTypes, contentManager,
		content.NewRepository(db), auditService)

	// --- Build router and start server ---
	deps := server.Dependencies{
		DB:             db,
		DevMode:        cfg.DevMode,
		AuthHandler:    auth.NewHandler(authService, auditService),
		AuthMiddleware: auth.Middleware(cfg.JWTSecret),
		ContentTypes:   types.NewHandler(contentManager, auditService),
		BlockTypes:     types.NewHandler(blockManager, auditService),
		Entries:        content.NewHandler(entryEngine),
		Audit:          audit.NewHandler(auditService),
	}

	router := server.NewRouter(deps)
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := server.New(addr, router)

	// Start server in a goroutine.
	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		errCh <- srv.Start()
	}()

	// --- Graceful shutdown on SIGINT/SIGTERM ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	slog.Info("shutting down server (30s timeout)...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	auditService.Shutdown(shutdownCtx)

	slog.Info("MonkeysCMS stopped")
}
