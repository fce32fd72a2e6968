package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nimble-gus/topcell2-sub002/internal/adapters/postgres"
	"github.com/nimble-gus/topcell2-sub002/internal/adapters/visanet"
	"github.com/nimble-gus/topcell2-sub002/internal/config"
	paymentHandler "github.com/nimble-gus/topcell2-sub002/internal/handlers/payment"
	stepupHandler "github.com/nimble-gus/topcell2-sub002/internal/handlers/stepup"
	paymentService "github.com/nimble-gus/topcell2-sub002/internal/services/payment"
	stepupService "github.com/nimble-gus/topcell2-sub002/internal/services/stepup"
	traceService "github.com/nimble-gus/topcell2-sub002/internal/services/trace"
	"github.com/nimble-gus/topcell2-sub002/pkg/middleware"
	"github.com/nimble-gus/topcell2-sub002/pkg/observability"
	"github.com/nimble-gus/topcell2-sub002/pkg/security"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Logger)
	defer logger.Sync()

	logger.Info("starting topcell payment core",
		zap.String("version", "0.1.0"),
	)

	dbPool, err := initDatabase(cfg)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer dbPool.Close()

	logger.Info("database connection established",
		zap.String("database", cfg.Database.Database),
	)

	// Gateway API key comes from the configured secret backend
	apiKey, err := loadGatewayKey(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("failed to load gateway credentials", zap.Error(err))
	}

	portLogger := security.NewZapLogger(logger)

	db := postgres.NewDBExecutor(dbPool)
	orderRepo := postgres.NewOrderRepository()
	traceRepo := postgres.NewTraceRepository()

	gateway := visanet.NewClientWithDefaults(
		visanet.Credentials{
			MerchantID: cfg.Gateway.MerchantID,
			TerminalID: cfg.Gateway.TerminalID,
			APIKey:     apiKey,
		},
		cfg.Gateway.BaseURL,
		cfg.Gateway.Timeout,
		portLogger,
	)

	allocator := traceService.NewAllocator(db, traceRepo, portLogger)

	broker := stepupService.NewBroker()
	orchestrator := stepupService.NewOrchestrator(broker, cfg.StepUp.Window, portLogger)

	compensator := paymentService.NewCompensator(db, orderRepo, gateway, portLogger, cfg.Gateway.Timeout)
	payments := paymentService.NewService(db, orderRepo, gateway, allocator, orchestrator, compensator, portLogger, cfg.Gateway.Timeout)

	// Router
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	checkoutHandler := paymentHandler.NewHandler(payments, compensator, logger)
	r.Route("/api/v1", checkoutHandler.Routes)

	// The callback endpoint faces the open internet; throttle per IP
	rateLimiter := middleware.NewRateLimiter(10, 20)
	defer rateLimiter.Shutdown()

	callbackHandler := stepupHandler.NewCallbackHandler(orchestrator, logger)
	r.Method(http.MethodPost, "/callbacks/stepup", rateLimiter.Middleware(callbackHandler))
	r.Method(http.MethodGet, "/callbacks/stepup", rateLimiter.Middleware(callbackHandler))

	// Metrics and health on a separate port
	healthChecker := observability.NewHealthChecker(dbPool)
	metricsServer := observability.StartMetricsServer(fmt.Sprintf("%d", cfg.Server.MetricsPort), healthChecker)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}
	if err := observability.ShutdownMetricsServer(metricsServer); err != nil {
		logger.Error("metrics server shutdown failed", zap.Error(err))
	}

	logger.Info("shutdown complete")
}

func initLogger(cfg config.LoggerConfig) *zap.Logger {
	var zapCfg zap.Config
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapCfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

func initDatabase(cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolCfg.MaxConns = cfg.Database.MaxConns
	poolCfg.MinConns = cfg.Database.MinConns

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}
