package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/azkafin/finmate-bfa-go/internal/config"
	"github.com/azkafin/finmate-bfa-go/internal/domain"
	"github.com/azkafin/finmate-bfa-go/internal/handler"
	"github.com/azkafin/finmate-bfa-go/internal/infra/bus"
	"github.com/azkafin/finmate-bfa-go/internal/infra/cache"
	"github.com/azkafin/finmate-bfa-go/internal/infra/client"
	"github.com/azkafin/finmate-bfa-go/internal/infra/localstate"
	"github.com/azkafin/finmate-bfa-go/internal/infra/observability"
	"github.com/azkafin/finmate-bfa-go/internal/infra/resilience"
	"github.com/azkafin/finmate-bfa-go/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("finance_server_url", cfg.FinanceServerURL),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Duration("refresh_interval", cfg.RefreshInterval),
		zap.Bool("refresh_enabled", cfg.RefreshEnabled),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "finmate-bfa")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Event bus ---
	events := bus.New()
	defer events.Close()

	// --- Local state ---
	state, err := localstate.New(cfg.StatePath, logger)
	if err != nil {
		logger.Fatal("failed to open local state store", zap.Error(err))
	}

	// --- Resilience ---
	cb := resilience.NewBreaker("finance-server")
	bulkhead := resilience.NewBulkhead(cfg.MaxConcurrency)
	readPolicy := resilience.Policy{
		MaxAttempts: cfg.ReadMaxAttempts,
		BaseDelay:   cfg.ReadBaseBackoff,
		MaxDelay:    2 * time.Second,
	}

	// --- Finance server client ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	finance := client.NewFinanceClient(httpClient, cfg.FinanceServerURL, cfg.FinanceAPIKey, cb, readPolicy, bulkhead, metrics, logger)

	// --- Caches ---
	balanceCache := cache.New[*domain.BalanceSummary](cfg.CacheTTL)
	defer balanceCache.Close()

	// --- Services ---
	gamification := service.NewGamificationService(state, events, metrics, logger)
	budgets := service.NewBudgetService(finance, events, metrics, logger)
	goals := service.NewGoalService(finance, finance, balanceCache, gamification, events, metrics, logger)
	reminders := service.NewReminderService(finance, finance, finance, state, gamification, events, metrics, logger)
	zakat := service.NewZakatService(finance, gamification, cfg.ZakatNisab, metrics, logger)

	// --- Background refresher ---
	var refresher *service.Refresher
	refreshCtx, stopRefresh := context.WithCancel(context.Background())
	defer stopRefresh()
	if cfg.RefreshEnabled {
		refresher = service.NewRefresher(budgets, reminders, cfg.RefreshInterval, metrics, logger)
		go refresher.Run(refreshCtx)
		logger.Info("auto-refresh enabled", zap.Duration("interval", cfg.RefreshInterval))
	} else {
		logger.Info("auto-refresh disabled")
	}

	// --- Router ---
	router := handler.NewRouter(handler.Services{
		Budgets:      budgets,
		Goals:        goals,
		Reminders:    reminders,
		Zakat:        zakat,
		Gamification: gamification,
		Refresher:    refresher,
		Events:       events,
		State:        state,

		AllowedOrigins: cfg.CORSAllowedOrigins,
	}, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")

	stopRefresh()
	if refresher != nil {
		refresher.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
