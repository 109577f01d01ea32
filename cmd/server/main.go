// Portfolio site server: chat relay, websocket chat and the embedded page.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/mazleon/portfolio-website/internal/api"
	"github.com/mazleon/portfolio-website/internal/chat"
	"github.com/mazleon/portfolio-website/internal/config"
	"github.com/mazleon/portfolio-website/internal/identity"
	"github.com/mazleon/portfolio-website/internal/metrics"
	"github.com/mazleon/portfolio-website/internal/middleware"
	"github.com/mazleon/portfolio-website/internal/portfolio"
	"github.com/mazleon/portfolio-website/internal/provider"
	"github.com/mazleon/portfolio-website/internal/relay"
	"github.com/mazleon/portfolio-website/internal/store"
	"github.com/mazleon/portfolio-website/internal/widget"
	"github.com/mazleon/portfolio-website/web"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	if envErr != nil {
		slog.Info("No .env file found, using environment variables")
	}
	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "model", cfg.Provider.Model)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Portfolio document and system prompt are built once.
	pc, err := portfolio.Load(cfg.PortfolioContextPath)
	if err != nil {
		slog.Error("Failed to load portfolio context", "error", err)
		os.Exit(1)
	}
	prompter, err := portfolio.NewPrompter(ctx, pc)
	if err != nil {
		slog.Error("Failed to render system prompt", "error", err)
		os.Exit(1)
	}
	slog.Info("System prompt ready", "name", pc.Personal.Name, "bytes", len(prompter.SystemPrompt()))

	if cfg.ProviderKey() == "" {
		slog.Warn("Provider credential not set, relay will answer with a configuration error", "env", cfg.Provider.KeyEnv)
	}

	kv, err := store.Open(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize session store", "error", err, "store", cfg.Quota.Store)
		os.Exit(1)
	}
	defer func() {
		if closeErr := kv.Close(); closeErr != nil {
			slog.Error("Failed to close session store", "error", closeErr)
		}
	}()
	slog.Info("Session store ready", "store", cfg.Quota.Store, "quota_enforced", cfg.Quota.Enforce)

	completer := provider.New(provider.Config{
		BaseURL:         cfg.Provider.BaseURL,
		Model:           cfg.Provider.Model,
		MaxTokens:       cfg.Chat.MaxTokens,
		Temperature:     cfg.Chat.Temperature,
		Referer:         cfg.Provider.Referer,
		Title:           cfg.Provider.Title,
		Timeout:         cfg.Provider.Timeout,
		BreakerFailures: cfg.Provider.BreakerFailures,
		BreakerTimeout:  cfg.Provider.BreakerTimeout,
	})
	svc := relay.NewService(prompter, completer, cfg.ProviderKey)

	var guard *relay.QuotaGuard
	if cfg.Quota.Enforce {
		guard = relay.NewQuotaGuard(kv, chat.Limits{MaxUserTurns: cfg.Chat.MaxUserTurns})
	}

	cm := relay.NewConnManager()
	chatHandler := relay.NewHandler(svc, guard, cfg.MaxRequestBodySize)
	wsHandler := relay.NewWebSocketHandler(svc, guard, cm, cfg.MaxRequestBodySize, allowedOrigins(cfg), cfg.IsDevelopment())
	infoHandler := api.NewHandler(api.SiteConfig{
		Name:           pc.Personal.Name,
		FirstName:      pc.FirstName(),
		MaxUserTurns:   cfg.Chat.MaxUserTurns,
		MaxInputLength: widget.MaxInputLength,
		QuotaEnforced:  cfg.Quota.Enforce,
	}, kv)

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerWindow, cfg.RateLimit.WindowDuration)
	limiter.StartEviction(ctx)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(allowedOrigins(cfg)))
	r.Use(identity.Middleware)

	infoHandler.RegisterRoutes(r)
	r.Handle("/metrics", metrics.Handler())

	// Relay routes are rate limited per client IP.
	r.Group(func(r chi.Router) {
		r.Use(limiter.Middleware)
		chatHandler.RegisterRoutes(r)
		wsHandler.RegisterRoutes(r)
	})

	// Serve embedded frontend (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // websocket connections are long lived
		IdleTimeout:  120 * time.Second,
	}

	store.StartSweeper(ctx, kv, cfg.Quota.SessionTTL)

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
	cm.CloseAll("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		return
	}

	slog.Info("Server stopped successfully")
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}

func allowedOrigins(cfg *config.Config) []string {
	if cfg.IsDevelopment() {
		return []string{"*"}
	}
	return middleware.Origins(cfg.FrontendURL)
}
