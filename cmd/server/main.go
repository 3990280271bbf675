package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appbulk "github.com/retailops/backend/internal/application/bulk"
	appmapping "github.com/retailops/backend/internal/application/mapping"
	appsync "github.com/retailops/backend/internal/application/sync"
	"github.com/retailops/backend/internal/domain/mapping"
	"github.com/retailops/backend/internal/domain/sync"
	"github.com/retailops/backend/internal/infrastructure/cache"
	"github.com/retailops/backend/internal/infrastructure/config"
	"github.com/retailops/backend/internal/infrastructure/logger"
	"github.com/retailops/backend/internal/infrastructure/persistence"
	"github.com/retailops/backend/internal/infrastructure/platform"
	"github.com/retailops/backend/internal/infrastructure/scheduler"
	"github.com/retailops/backend/internal/infrastructure/transform"
	"github.com/retailops/backend/internal/interfaces/http/handler"
	"github.com/retailops/backend/internal/interfaces/http/middleware"
	"github.com/retailops/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting RetailOps Sync Engine",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize repositories
	fieldMappingRepo := persistence.NewGormFieldMappingRepository(db.DB)
	referenceRepo := persistence.NewGormReferenceRepository(db.DB)
	syncRunRepo := persistence.NewGormSyncRunRepository(db.DB)
	syncConfigRepo := persistence.NewGormSyncConfigRepository(db.DB)
	conflictRepo := persistence.NewGormConflictRepository(db.DB)
	tokenRepo := persistence.NewGormTokenRepository(db.DB)
	auditRepo := persistence.NewGormAuditRepository(db.DB)
	lockManager := persistence.NewPostgresRunLockManager(db.DB)

	// Register platform clients for every configured platform
	clientRegistry := platform.NewRegistry()
	endpoints := map[sync.Platform]config.PlatformEndpointConfig{
		sync.PlatformInternal:   cfg.Platforms.Internal,
		sync.PlatformStorefront: cfg.Platforms.Storefront,
		sync.PlatformAccounting: cfg.Platforms.Accounting,
		sync.PlatformWarehouse:  cfg.Platforms.Warehouse,
	}
	for p, ep := range endpoints {
		if ep.BaseURL == "" {
			log.Info("Platform not configured, skipping", zap.String("platform", p.String()))
			continue
		}
		client, err := platform.NewRESTClient(&platform.ClientConfig{
			Platform:  p,
			BaseURL:   ep.BaseURL,
			APIKey:    ep.APIKey,
			APISecret: ep.APISecret,
			Timeout:   ep.Timeout,
		})
		if err != nil {
			log.Fatal("Failed to create platform client",
				zap.String("platform", p.String()),
				zap.Error(err),
			)
		}
		if err := clientRegistry.Register(client); err != nil {
			log.Fatal("Failed to register platform client",
				zap.String("platform", p.String()),
				zap.Error(err),
			)
		}
		log.Info("Platform client registered",
			zap.String("platform", p.String()),
			zap.String("base_url", ep.BaseURL),
		)
	}

	// Mapping validation and transformation
	transformRegistry := transform.NewRegistry()
	schemaProvider := platform.NewStaticSchemaProvider()
	validator := mapping.NewValidator(schemaProvider, transformRegistry)
	mappingEngine := appmapping.NewEngine(transformRegistry)

	// Application services
	mappingService := appmapping.NewService(fieldMappingRepo, validator, log)
	directionController := appsync.NewDirectionController(conflictRepo, log)
	flowAdapter := appsync.NewFlowAdapter(fieldMappingRepo, mappingEngine, referenceRepo, clientRegistry, directionController, log)
	orchestrator := appsync.NewOrchestrator(
		syncRunRepo,
		syncConfigRepo,
		fieldMappingRepo,
		validator,
		clientRegistry,
		flowAdapter,
		lockManager,
		appsync.Options{
			Workers:        cfg.Sync.Workers,
			MaxRetries:     cfg.Sync.MaxRetries,
			RetryBaseDelay: cfg.Sync.RetryBaseDelay,
			PageSize:       cfg.Sync.PageSize,
		},
		log,
	)
	dryRunExecutor := appsync.NewDryRunExecutor(orchestrator)
	conflictService := appsync.NewConflictService(conflictRepo, log)
	configService := appsync.NewConfigService(syncConfigRepo, log)
	bulkGate := appbulk.NewGate(tokenRepo, auditRepo, appbulk.Thresholds{
		ConfirmRecordCount:  cfg.Bulk.ConfirmRecordCount,
		CriticalRecordCount: cfg.Bulk.CriticalRecordCount,
	}, log)

	// Scheduled and webhook triggered syncs share one scheduler; schedules
	// are derived from the active field mappings
	scheduleSource := persistence.NewMappingScheduleSource(db.DB)

	var syncScheduler *scheduler.SyncScheduler
	if cfg.Scheduler.Enabled || cfg.Webhook.Enabled {
		schedulerConfig := scheduler.DefaultSyncSchedulerConfig()
		schedulerConfig.JobTimeout = cfg.Scheduler.JobTimeout
		syncScheduler, err = scheduler.NewSyncScheduler(schedulerConfig, orchestrator, log)
		if err != nil {
			log.Fatal("Failed to create sync scheduler", zap.Error(err))
		}
		if err := syncScheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start sync scheduler", zap.Error(err))
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := syncScheduler.Stop(stopCtx); err != nil {
				log.Error("Error stopping sync scheduler", zap.Error(err))
			}
		}()
		log.Info("Sync scheduler started",
			zap.Int("max_concurrent_jobs", schedulerConfig.MaxConcurrentJobs),
			zap.Duration("job_timeout", schedulerConfig.JobTimeout),
		)
	}

	// Periodic incremental syncs with startup catch-up
	if cfg.Scheduler.Enabled {
		trigger, err := scheduler.NewIntervalTrigger(scheduler.IntervalTriggerConfig{
			Enabled:             cfg.Scheduler.Enabled,
			Interval:            cfg.Scheduler.Interval,
			CatchUpOnStart:      cfg.Scheduler.CatchUpOnStart,
			MaxMissedBeforeFull: cfg.Scheduler.MaxMissedBeforeFull,
		}, syncScheduler, scheduleSource, syncRunRepo, log)
		if err != nil {
			log.Fatal("Failed to create interval trigger", zap.Error(err))
		}
		if err := trigger.Start(context.Background()); err != nil {
			log.Fatal("Failed to start interval trigger", zap.Error(err))
		}
		defer trigger.Stop()
		log.Info("Interval trigger started",
			zap.Duration("interval", cfg.Scheduler.Interval),
			zap.Bool("catch_up_on_start", cfg.Scheduler.CatchUpOnStart),
		)
	}

	// Webhook intake with event id deduplication
	var webhookQueue *scheduler.WebhookQueue
	if cfg.Webhook.Enabled {
		dedupFactory := cache.NewIdempotencyStoreFactory(cfg.Redis, cache.WithLogger(log))
		dedupStore, err := dedupFactory.CreateStore()
		if err != nil {
			log.Fatal("Failed to create webhook dedup store", zap.Error(err))
		}

		webhookQueue, err = scheduler.NewWebhookQueue(scheduler.WebhookQueueConfig{
			Enabled:   cfg.Webhook.Enabled,
			DedupTTL:  cfg.Webhook.DedupTTL,
			QueueSize: cfg.Webhook.QueueSize,
			Workers:   cfg.Webhook.Workers,
		}, dedupStore, syncScheduler, scheduleSource, log)
		if err != nil {
			log.Fatal("Failed to create webhook queue", zap.Error(err))
		}
		if err := webhookQueue.Start(context.Background()); err != nil {
			log.Fatal("Failed to start webhook queue", zap.Error(err))
		}
		defer webhookQueue.Stop()
		log.Info("Webhook queue started",
			zap.Duration("dedup_ttl", cfg.Webhook.DedupTTL),
			zap.Int("queue_size", cfg.Webhook.QueueSize),
			zap.Int("workers", cfg.Webhook.Workers),
		)
	}

	// Initialize HTTP handlers
	mappingHandler := handler.NewMappingHandler(mappingService)
	syncRunHandler := handler.NewSyncRunHandler(orchestrator, dryRunExecutor)
	conflictHandler := handler.NewConflictHandler(conflictService)
	syncConfigHandler := handler.NewSyncConfigHandler(configService)
	bulkHandler := handler.NewBulkHandler(bulkGate)
	systemHandler := handler.NewSystemHandler()

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	// Initialize router with custom middleware
	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Security - Add security headers
	// 5. CORS - Handle cross-origin requests
	// 6. BodyLimit - Limit request body size
	// 7. Tenant - Resolve the tenant for every API request
	// 8. RateLimit - Throttle per tenant
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	// Configure CORS from config
	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Body size limit
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Tenant resolution
	tenantConfig := middleware.DefaultTenantConfig()
	tenantConfig.Logger = log
	engine.Use(middleware.TenantMiddlewareWithConfig(tenantConfig))

	// Per-tenant request throttling, keyed by the resolved tenant
	rateLimiter := middleware.NewTenantRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
	defer rateLimiter.Close()
	engine.Use(middleware.RateLimit(rateLimiter))

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db, log))

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(mappingHandler).
		Register(syncRunHandler).
		Register(conflictHandler).
		Register(syncConfigHandler).
		Register(bulkHandler).
		Register(systemHandler)
	if webhookQueue != nil {
		r.Register(handler.NewWebhookHandler(webhookQueue))
	}
	r.Setup()

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

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database, _ *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
