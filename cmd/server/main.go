package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	_ "github.com/erp/marketplace-gateway/docs"
	appintegration "github.com/erp/marketplace-gateway/internal/application/integration"
	"github.com/erp/marketplace-gateway/internal/domain/integration"
	"github.com/erp/marketplace-gateway/internal/infrastructure/auth"
	"github.com/erp/marketplace-gateway/internal/infrastructure/cache"
	"github.com/erp/marketplace-gateway/internal/infrastructure/config"
	"github.com/erp/marketplace-gateway/internal/infrastructure/deadletter"
	"github.com/erp/marketplace-gateway/internal/infrastructure/ecommerce"
	"github.com/erp/marketplace-gateway/internal/infrastructure/gateway"
	"github.com/erp/marketplace-gateway/internal/infrastructure/logger"
	"github.com/erp/marketplace-gateway/internal/infrastructure/persistence"
	"github.com/erp/marketplace-gateway/internal/infrastructure/scheduler"
	"github.com/erp/marketplace-gateway/internal/infrastructure/telemetry"
	"github.com/erp/marketplace-gateway/internal/infrastructure/webhook"
	"github.com/erp/marketplace-gateway/internal/interfaces/http/handler"
	"github.com/erp/marketplace-gateway/internal/interfaces/http/middleware"
	"github.com/erp/marketplace-gateway/internal/interfaces/http/router"
)

const timeFormat = "2006-01-02T15:04:05.000Z07:00"

//	@title			Marketplace Integration Gateway API
//	@version		1.0
//	@description	Inbound marketplace webhooks and the integration admin API
//	@BasePath		/

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	issueToken := flag.String("issue-token", "", "print an admin token for the given subject and exit")
	scopes := flag.String("scopes", auth.ScopeRead, "comma separated scopes for -issue-token")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	if *issueToken != "" {
		token, expiresAt, err := auth.NewJWTService(cfg.JWT).IssueToken(*issueToken, strings.Split(*scopes, ",")...)
		if err != nil {
			fmt.Fprintln(os.Stderr, "issue token:", err)
			os.Exit(1)
		}
		fmt.Printf("%s\n# expires %s\n", token, expiresAt.Format(time.RFC3339))
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Bootstrap logger used until log export is configured
	bootLog, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: timeFormat,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	telemetryCfg := cfg.Telemetry
	logProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           telemetryCfg.Enabled && telemetryCfg.LogExportEnabled,
		CollectorEndpoint: telemetryCfg.CollectorEndpoint,
		ServiceName:       telemetryCfg.ServiceName,
		Insecure:          telemetryCfg.Insecure,
	}, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize log export", zap.Error(err))
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: timeFormat,
	}, logger.WithCore(telemetry.NewZapOTELCore(telemetry.ZapBridgeConfig{
		ServiceName:    telemetryCfg.ServiceName,
		LoggerProvider: logProvider,
		Level:          zapcore.InfoLevel,
	})))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting marketplace gateway",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.Strings("marketplaces", cfg.MarketplaceCodes()),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           telemetryCfg.Enabled,
		CollectorEndpoint: telemetryCfg.CollectorEndpoint,
		SamplingRatio:     telemetryCfg.SamplingRatio,
		ServiceName:       telemetryCfg.ServiceName,
		Insecure:          telemetryCfg.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           telemetryCfg.Enabled,
		CollectorEndpoint: telemetryCfg.CollectorEndpoint,
		ServiceName:       telemetryCfg.ServiceName,
		Insecure:          telemetryCfg.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	defer shutdownTelemetry(log, tracerProvider, meterProvider, logProvider)

	// Create GORM logger backed by zap
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))

	db, err := persistence.NewDatabase(&cfg.Database, persistence.WithLogger(gormLog))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}
	if telemetryCfg.DBTraceEnabled {
		dbTracing := telemetry.DefaultDBTracingConfig()
		dbTracing.Enabled = true
		if db.Driver == "sqlite" {
			dbTracing.DBSystem = "sqlite"
		}
		if err := telemetry.RegisterDBTracing(db.DB, dbTracing, log); err != nil {
			log.Fatal("Failed to register database tracing", zap.Error(err))
		}
	}
	log.Info("Database connected successfully", zap.String("driver", db.Driver))

	// Redis backs the response cache and the dead-letter queue when configured
	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		redisClient, err = cache.NewRedisClient(cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer func() {
			_ = redisClient.Close()
		}()
	}
	allowFallback := cfg.App.Env != "production"

	responseCache, err := cache.NewResponseCacheFactory(cfg.Redis, cfg.Gateway,
		cache.WithLogger(log),
		cache.WithRedisClient(redisClient),
		cache.WithInMemoryFallback(allowFallback),
	).CreateCache()
	if err != nil {
		log.Fatal("Failed to create response cache", zap.Error(err))
	}
	dlq, err := deadletter.NewQueue(cfg.Redis, cfg.Gateway,
		deadletter.WithLogger(log),
		deadletter.WithRedisClient(redisClient),
		deadletter.WithInMemoryFallback(allowFallback),
	)
	if err != nil {
		log.Fatal("Failed to create dead-letter queue", zap.Error(err))
	}

	metrics, err := telemetry.NewIntegrationMetrics(telemetry.IntegrationMetricsConfig{
		Meter:         meterProvider.Meter("marketplace-gateway"),
		Logger:        log,
		DepthProvider: dlq,
	})
	if err != nil {
		log.Fatal("Failed to create integration metrics", zap.Error(err))
	}
	metrics.StartPeriodicCollection(ctx, time.Minute)
	defer metrics.Stop()

	// Repositories
	events := persistence.NewGormWebhookEventRepository(db.DB)
	logs := persistence.NewGormWebhookLogRepository(db.DB)
	notifications := persistence.NewGormNotificationRepository(db.DB)
	scope := persistence.NewGormTransactionScope(db.DB)

	sink := appintegration.NewEventSink(appintegration.EventSinkConfig{
		Logs:          logs,
		Notifications: notifications,
		APILogs:       persistence.NewGormAPIRequestLogRepository(db.DB),
		Logger:        log,
	})

	// Outbound
	gw := gateway.New(cfg.Marketplaces, responseCache,
		gateway.WithMetrics(metrics),
		gateway.WithRecorder(sink),
		gateway.WithLogger(log),
		gateway.WithTracer(tracerProvider.Tracer("marketplace-gateway/gateway")),
	)
	adapters := newAdapterRegistry(cfg, log)
	client := appintegration.NewMarketplaceClient(gw, adapters, log)

	// Inbound
	reconciler := appintegration.NewReconciler(appintegration.ReconcilerConfig{
		Scope:             scope,
		LowStockThreshold: cfg.Webhook.LowStockThreshold,
		Logger:            log,
	})
	eventRouter := appintegration.NewEventRouter(log)
	reconciler.RegisterHandlers(eventRouter)
	if err := eventRouter.Validate(); err != nil {
		log.Fatal("Invalid event routing table", zap.Error(err))
	}

	pipeline := appintegration.NewWebhookPipeline(appintegration.WebhookPipelineConfig{
		Marketplaces:     cfg.Marketplaces,
		Verifier:         webhook.NewVerifier(cfg.Webhook, cfg.Marketplaces),
		Router:           eventRouter,
		Events:           events,
		Logs:             logs,
		Notifications:    notifications,
		Scope:            scope,
		DeadLetters:      dlq,
		Metrics:          metrics,
		MaxRetryAttempts: cfg.Webhook.MaxRetryAttempts,
		Logger:           log,
	})
	replay := appintegration.NewReplayService(dlq, events, pipeline, log)

	var orderSync *appintegration.OrderSyncService
	if cfg.Scheduler.OrderSyncEnabled {
		orderSync = appintegration.NewOrderSyncService(client, reconciler, cfg.Scheduler.OrderSyncLookbehind, log)
	}

	// Background jobs
	if cfg.Scheduler.Enabled {
		sched := scheduler.NewScheduler(scheduler.SchedulerConfig{
			Enabled:           true,
			MaxConcurrentJobs: cfg.Scheduler.MaxConcurrentJobs,
			JobTimeout:        cfg.Scheduler.JobTimeout,
			HistorySize:       scheduler.DefaultSchedulerConfig().HistorySize,
		}, log)
		appintegration.NewScheduledJobs(replay, sink, orderSync, cfg.Scheduler).Register(sched)

		schedules := []scheduler.Schedule{
			{Name: scheduler.JobDeadLetterReplay, Interval: cfg.Scheduler.ReplayInterval},
			{Name: scheduler.JobRetentionCleanup, Interval: cfg.Scheduler.CleanupInterval},
		}
		if orderSync != nil {
			schedules = append(schedules, scheduler.Schedule{
				Name:         scheduler.JobOrderSync,
				Interval:     cfg.Scheduler.OrderSyncInterval,
				Marketplaces: adapters.Codes(),
				RunOnStart:   true,
			})
		}
		trigger := scheduler.NewIntervalTrigger(sched, log, schedules...)

		if err := sched.Start(ctx); err != nil {
			log.Fatal("Failed to start scheduler", zap.Error(err))
		}
		if err := trigger.Start(ctx); err != nil {
			log.Fatal("Failed to start job trigger", zap.Error(err))
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := trigger.Stop(stopCtx); err != nil {
				log.Warn("Job trigger did not stop cleanly", zap.Error(err))
			}
			if err := sched.Stop(stopCtx); err != nil {
				log.Warn("Scheduler did not stop cleanly", zap.Error(err))
			}
		}()
	}

	// HTTP
	health := handler.NewHealthHandler(telemetry.ServiceVersion).
		WithCheck("database", func(context.Context) error { return db.Ping() })
	if redisClient != nil {
		health = health.WithCheck("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	var adminLimiter *middleware.RateLimiter
	if cfg.HTTP.RateLimitEnabled {
		adminLimiter = middleware.NewWindowRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
	}

	engine, err := router.NewEngine(router.EngineConfig{
		ServiceName:      telemetryCfg.ServiceName,
		Logger:           log,
		Meter:            meterProvider.Meter("marketplace-gateway/http"),
		Security:         securityConfig(cfg),
		TrustedProxies:   cfg.HTTP.TrustedProxies,
		WebhookBodyLimit: cfg.Webhook.MaxPayloadSize,
		WebhookLimiter:   middleware.NewRateLimiter(cfg.Webhook.InboundRatePerSecond, cfg.Webhook.InboundBurst),
		AdminLimiter:     adminLimiter,
		TokenValidator:   auth.NewJWTService(cfg.JWT),
		Swagger:          middleware.SwaggerConfig(cfg.HTTP.Swagger),
	}, router.Handlers{
		Health:      health,
		Webhook:     handler.NewWebhookHandler(pipeline),
		Integration: handler.NewIntegrationHandler(sink, replay, client, gw),
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// newAdapterRegistry builds an adapter for every enabled marketplace with a
// client implementation. Marketplaces without one still receive webhooks.
func newAdapterRegistry(cfg *config.Config, log *zap.Logger) *appintegration.AdapterRegistry {
	registry := appintegration.NewAdapterRegistry()
	for _, code := range cfg.MarketplaceCodes() {
		m := cfg.Marketplaces[code]
		if !m.Enabled {
			continue
		}
		switch integration.ParseMarketplaceCode(code) {
		case integration.MarketplaceHepsiburada:
			adapter, err := ecommerce.NewHepsiburadaAdapter(ecommerce.NewHepsiburadaConfig(m))
			if err != nil {
				log.Warn("Hepsiburada adapter disabled", zap.Error(err))
				continue
			}
			registry.Register(adapter)
		default:
			log.Info("No outbound adapter for marketplace", zap.String("marketplace", code))
		}
	}
	return registry
}

func securityConfig(cfg *config.Config) middleware.SecurityConfig {
	sec := middleware.DefaultSecurityConfig()
	sec.HSTSEnabled = cfg.App.Env == "production"
	return sec
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

func shutdownTelemetry(log *zap.Logger, providers ...shutdowner) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, p := range providers {
		if err := p.Shutdown(ctx); err != nil {
			log.Warn("Telemetry shutdown failed", zap.Error(err))
		}
	}
}
