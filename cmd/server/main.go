// chatgrove - AI conversation organizer daemon
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

	"github.com/chatgrove/chatgrove/internal/api"
	"github.com/chatgrove/chatgrove/internal/browser"
	"github.com/chatgrove/chatgrove/internal/config"
	"github.com/chatgrove/chatgrove/internal/linker"
	"github.com/chatgrove/chatgrove/internal/provider"
	"github.com/chatgrove/chatgrove/internal/store"
	"github.com/chatgrove/chatgrove/internal/tabs"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	// Initialize services.
	providers := provider.NewRegistry()
	links := linker.NewRegistry(repo)
	coordinator := linker.NewCoordinator(repo, links, providers)
	observer := tabs.NewObserver(providers, coordinator, links)
	bridge := browser.NewBridge(cfg.OpenTabTimeout)

	// Initialize handlers.
	baseHandler := api.NewHandler(repo, links, coordinator, providers, bridge)
	treeHandler := api.NewTreeHandler(baseHandler)
	healthHandler := api.NewHealthHandler(repo, bridge)
	wsHandler := browser.NewWebSocketHandler(bridge, observer, coordinator, cfg.AllowedOrigin, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))

	healthHandler.RegisterHealth(r)
	treeHandler.RegisterRoutes(r)

	// WebSocket endpoint.
	r.Get("/ws/browser", wsHandler.ServeHTTP)

	// Create server. WriteTimeout stays 0: the websocket bridge holds
	// its connection open for the extension's whole session.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	// Start pending-link sweeper.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	linker.StartSweeper(ctx, repo, cfg.PendingLinkTTL)
	slog.Info("Pending-link sweeper started", "ttl", cfg.PendingLinkTTL)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
