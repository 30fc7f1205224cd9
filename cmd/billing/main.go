package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/modernbilling/billing-api-go/internal/config"
	"github.com/modernbilling/billing-api-go/internal/domain"
	"github.com/modernbilling/billing-api-go/internal/handler"
	"github.com/modernbilling/billing-api-go/internal/infra/cache"
	"github.com/modernbilling/billing-api-go/internal/infra/observability"
	"github.com/modernbilling/billing-api-go/internal/infra/resilience"
	"github.com/modernbilling/billing-api-go/internal/infra/supabase"
	"github.com/modernbilling/billing-api-go/internal/service"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = godotenv.Load(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Int("category_max_depth", cfg.CategoryMaxDepth),
		zap.Duration("jwt_access_ttl", cfg.JWTAccessTTL),
		zap.Duration("jwt_refresh_ttl", cfg.JWTRefreshTTL),
	)

	if cfg.SupabaseURL == "" {
		logger.Fatal("SUPABASE_URL is required")
	}

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "billing-api")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Cache ---
	configCache := cache.New[domain.ConfigEntry](cfg.CacheTTL)

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	cb := resilience.NewCircuitBreaker("supabase")
	exportBulkhead := resilience.NewBulkhead(cfg.MaxConcurrency)

	// --- Store ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	store := supabase.NewClient(
		httpClient,
		cfg.SupabaseURL,
		cfg.SupabaseAnonKey,
		cfg.SupabaseServiceKey,
		cb,
		resilienceCfg,
		logger,
	)

	// --- Services ---
	authSvc := service.NewAuthService(store, cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL, logger)
	categorySvc := service.NewCategoryService(store, cfg.CategoryMaxDepth, logger)
	itemSvc := service.NewItemService(store, store, logger)
	configSvc := service.NewConfigService(store, configCache, metrics, logger)
	invoiceSvc := service.NewInvoiceService(store, store, store, configSvc, metrics, logger)
	paymentSvc := service.NewPaymentService(store, invoiceSvc, logger)
	pageSvc := service.NewPageService(store, logger)
	reportSvc := service.NewReportService(store, store, exportBulkhead, metrics, logger)
	uploadSvc := service.NewUploadService(cfg.UploadDir, cfg.UploadMaxSize, logger)

	// --- Router ---
	router := handler.NewRouter(&handler.Services{
		Auth:      authSvc,
		Category:  categorySvc,
		Item:      itemSvc,
		Invoice:   invoiceSvc,
		Payment:   paymentSvc,
		Page:      pageSvc,
		Config:    configSvc,
		Report:    reportSvc,
		Upload:    uploadSvc,
		UploadDir: cfg.UploadDir,
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
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
