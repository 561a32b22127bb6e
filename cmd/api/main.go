package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/davidleathers/energy-plan-advisor/internal/api/rest"
	"github.com/davidleathers/energy-plan-advisor/internal/domain/clock"
	"github.com/davidleathers/energy-plan-advisor/internal/domain/preference"
	"github.com/davidleathers/energy-plan-advisor/internal/infrastructure/cache"
	"github.com/davidleathers/energy-plan-advisor/internal/infrastructure/config"
	"github.com/davidleathers/energy-plan-advisor/internal/infrastructure/database"
	"github.com/davidleathers/energy-plan-advisor/internal/infrastructure/repository"
	"github.com/davidleathers/energy-plan-advisor/internal/infrastructure/telemetry"
	"github.com/davidleathers/energy-plan-advisor/internal/metrics"
	"github.com/davidleathers/energy-plan-advisor/internal/service/catalog"
	"github.com/davidleathers/energy-plan-advisor/internal/service/feedback"
	"github.com/davidleathers/energy-plan-advisor/internal/service/ingestion"
	"github.com/davidleathers/energy-plan-advisor/internal/service/recommendation"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *configPath); err != nil {
		slog.Error("application failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger, err := telemetry.SetupLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("setting up logger: %w", err)
	}
	slog.SetDefault(logger)

	zapLogger, err := telemetry.NewZapLogger(cfg.LogLevel, cfg.Environment == "development")
	if err != nil {
		return fmt.Errorf("setting up zap logger: %w", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	provider, err := telemetry.InitializeOpenTelemetry(ctx, telemetry.FromAppConfig(cfg.Telemetry, cfg.Version, cfg.Environment))
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown telemetry", "error", err)
		}
	}()

	registry, err := metrics.NewRegistry(cfg.Telemetry.ServiceName)
	if err != nil {
		return fmt.Errorf("creating metrics registry: %w", err)
	}

	pool, err := database.NewConnectionPool(ctx, &cfg.Database, registry, zapLogger)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	appCache, err := cache.New(cfg, zapLogger)
	if err != nil {
		return fmt.Errorf("creating cache: %w", err)
	}
	defer appCache.Close()

	weights, err := defaultWeights(cfg.Recommendation.DefaultWeights)
	if err != nil {
		return err
	}

	clk := clock.RealClock{}
	store := repository.NewStore(pool.Pool())

	plans := catalog.NewCachedCatalog(store, appCache, registry, zapLogger, catalog.Config{
		CatalogTTL: cfg.Cache.CatalogTTL,
		PlanTTL:    cfg.Cache.PlanTTL,
	})
	if n, err := plans.Warm(ctx); err != nil {
		logger.Warn("catalog warm-up failed", "error", err)
	} else {
		logger.Info("catalog warmed", "active_plans", n)
	}

	recs, err := recommendation.NewService(recommendation.Dependencies{
		Store:   store,
		Catalog: plans,
		Cache:   appCache,
		Clock:   clk,
		Logger:  zapLogger.Named("recommendation"),
		Metrics: registry,
		Tracer:  otel.Tracer("recommendation"),
		Config: recommendation.Config{
			TopN:           cfg.Recommendation.TopN,
			CacheTTL:       cfg.Cache.RecommendationTTL,
			Timeout:        cfg.Recommendation.Timeout,
			DefaultWeights: &weights,
		},
	})
	if err != nil {
		return fmt.Errorf("creating recommendation service: %w", err)
	}

	health := rest.NewHealthService(cfg.Telemetry.ServiceName, cfg.Version, 5*time.Second)
	health.RegisterChecker(rest.NewPingChecker("database", pool))
	health.RegisterOptionalChecker(rest.NewPingChecker("cache", appCache))

	limiter := rest.NewRateLimiter(cfg.RateLimit)
	go limiter.Run(ctx, time.Minute)
	go collectPoolStats(ctx, pool, 15*time.Second)

	mux := rest.NewRouter(rest.RouterConfig{
		Version:               "v1",
		Logger:                logger,
		Metrics:               rest.APIRecorders{registry, prometheusRecorder{}},
		RateLimiter:           limiter,
		Health:                health,
		Clock:                 clk,
		RecommendationTimeout: cfg.Recommendation.Timeout + 5*time.Second,
	}, rest.Services{
		Store:           store,
		Catalog:         plans,
		Ingestion:       ingestion.NewService(store, recs, registry, clk, zapLogger.Named("ingestion"), ingestion.Config{AnonymizationSalt: cfg.Ingestion.AnonymizationSalt}),
		Recommendations: recs,
		Feedback:        feedback.NewService(store, registry, clk, zapLogger.Named("feedback")),
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	logger.Info("starting energy plan advisor",
		"version", cfg.Version,
		"environment", cfg.Environment,
		"port", cfg.Server.Port)
	zapLogger.Info("services initialized", zap.Int("top_n", cfg.Recommendation.TopN))

	return rest.NewServer(cfg.Server, mux, logger).Run(ctx)
}

func defaultWeights(cfg config.WeightsConfig) (preference.Weights, error) {
	d, err := cfg.Decimals()
	if err != nil {
		return preference.Weights{}, err
	}
	return preference.NewWeights(d[0], d[1], d[2], d[3]), nil
}
