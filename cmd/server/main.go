package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appbilling "github.com/workshop/backend/internal/application/billing"
	appclosing "github.com/workshop/backend/internal/application/closing"
	appevent "github.com/workshop/backend/internal/application/event"
	appworkshop "github.com/workshop/backend/internal/application/workshop"
	"github.com/workshop/backend/internal/domain/closing"
	"github.com/workshop/backend/internal/domain/shared"
	"github.com/workshop/backend/internal/infrastructure/auth"
	"github.com/workshop/backend/internal/infrastructure/cache"
	"github.com/workshop/backend/internal/infrastructure/config"
	"github.com/workshop/backend/internal/infrastructure/event"
	"github.com/workshop/backend/internal/infrastructure/logger"
	"github.com/workshop/backend/internal/infrastructure/persistence"
	"github.com/workshop/backend/internal/infrastructure/scheduler"
	"github.com/workshop/backend/internal/infrastructure/storage"
	"github.com/workshop/backend/internal/infrastructure/telemetry"
	"github.com/workshop/backend/internal/interfaces/http/handler"
	"github.com/workshop/backend/internal/interfaces/http/middleware"
	"github.com/workshop/backend/internal/interfaces/http/router"
	"go.uber.org/zap"

	_ "github.com/workshop/backend/docs"
)

//	@title			Workshop Backend API
//	@version		1.0
//	@description	Repair shop order lifecycle, payments and closing reconciliation
//	@termsOfService	http://swagger.io/terms/

//	@contact.name	API Support
//	@contact.url	https://github.com/workshop/backend

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	location, err := cfg.App.Location()
	if err != nil {
		log.Fatal("Invalid business timezone", zap.String("timezone", cfg.App.Timezone), zap.Error(err))
	}

	log.Info("Starting workshop backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("timezone", location.String()),
		zap.String("version", version),
	)

	rootCtx, stopRoot := context.WithCancel(context.Background())
	defer stopRoot()

	// Telemetry
	serviceName := cfg.Telemetry.ServiceName
	if serviceName == "" {
		serviceName = cfg.App.Name
	}
	tracerProvider, err := telemetry.NewTracerProvider(rootCtx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       serviceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(rootCtx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       serviceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	exportLevel, _ := logger.ParseLevel(cfg.Log.Level)
	loggerProvider, err := telemetry.NewLoggerProvider(rootCtx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       serviceName,
		Insecure:          cfg.Telemetry.Insecure,
		Level:             exportLevel,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	log = loggerProvider.Bridge(log)

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:              cfg.Profiling.Enabled,
		ServerAddress:        cfg.Profiling.ServerAddress,
		ApplicationName:      cfg.Profiling.ApplicationName,
		BasicAuthUser:        cfg.Profiling.BasicAuthUser,
		BasicAuthPassword:    cfg.Profiling.BasicAuthPassword,
		ProfileTypes:         cfg.Profiling.ProfileTypes,
		MutexProfileFraction: cfg.Profiling.MutexProfileFraction,
		BlockProfileRate:     cfg.Profiling.BlockProfileRate,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if cfg.Profiling.SpanProfiles && profiler.IsEnabled() {
		tracerProvider.EnableSpanProfiles()
	}

	// Database
	gormLog := logger.NewGormLogger(log, logger.GormLevel(cfg.Log.Level), cfg.Telemetry.DBSlowQueryThresh)
	db, err := persistence.Open(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected", zap.String("driver", cfg.Database.Driver))

	if cfg.Database.Driver == "sqlite" {
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to create SQLite schema", zap.Error(err))
		}
	}

	dbSystem := "postgresql"
	if cfg.Database.Driver == "sqlite" {
		dbSystem = "sqlite"
	}
	if err := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBSystem:        dbSystem,
	}, log).Register(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	dbMetricsConfig := telemetry.DefaultDBMetricsConfig()
	if cfg.Telemetry.DBSlowQueryThresh > 0 {
		dbMetricsConfig.SlowQueryThreshold = cfg.Telemetry.DBSlowQueryThresh
	}
	dbMetrics, err := telemetry.RegisterDBMetrics(db.DB, meterProvider, dbMetricsConfig, log)
	if err != nil {
		log.Fatal("Failed to register database metrics", zap.Error(err))
	}
	if dbMetrics != nil {
		dbMetrics.StartPoolStatsCollection(rootCtx)
		defer dbMetrics.Stop()
	}

	var businessMetrics *telemetry.BusinessMetrics
	if meterProvider.IsEnabled() {
		businessMetrics, err = telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
			Meter:         meterProvider.Meter("workshop.business"),
			Logger:        log,
			OrderProvider: telemetry.NewGormOrderMetricsProvider(db.DB),
		})
		if err != nil {
			log.Fatal("Failed to initialize business metrics", zap.Error(err))
		}
		businessMetrics.StartPeriodicCollection(rootCtx, time.Minute)
		defer businessMetrics.Stop()
	}

	// Events: services append to the outbox inside their transaction, the
	// processor relays committed entries to the in-process bus
	eventSerializer := event.NewEventSerializer()
	event.RegisterAllEvents(eventSerializer)
	outboxPublisher := event.NewOutboxPublisher(eventSerializer)
	outboxPublisher.SetMaxRetries(cfg.Outbox.MaxRetries)
	outboxRepo := event.NewGormOutboxRepository(db.DB)
	eventBus := event.NewInMemoryEventBus(log)

	idempotencyStore, err := cache.NewIdempotencyStore(rootCtx, cfg.Redis, cfg.Idempotency, log)
	if err != nil {
		log.Fatal("Failed to initialize idempotency store", zap.Error(err))
	}
	defer func() {
		if closer, ok := idempotencyStore.(interface{ Close() error }); ok {
			_ = closer.Close()
		}
	}()

	snapshotStore := newSnapshotStore(rootCtx, cfg, log)

	// Repositories
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	inspectionRepo := persistence.NewGormInspectionRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	paymentLedger := persistence.NewGormPaymentLedger(db.DB)
	auditRepo := persistence.NewGormAuditRepository(db.DB)
	dailyRepo := persistence.NewGormDailyClosingRepository(db.DB)
	monthlyRepo := persistence.NewGormMonthlyClosingRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB, outboxPublisher)

	// Application services
	orderService := appworkshop.NewOrderService(
		txScope.Workshop(),
		orderRepo,
		persistence.NewGormCatalogGateway(db.DB),
		persistence.NewGormVehicleDirectory(db.DB),
	)
	orderService.SetLogger(log)
	orderService.SetBusinessMetrics(businessMetrics)
	orderService.SetLocation(location)

	inspectionService := appworkshop.NewInspectionService(txScope.Workshop(), inspectionRepo)
	inspectionService.SetLogger(log)

	paymentService := appbilling.NewPaymentService(txScope.Billing(), paymentRepo)
	paymentService.SetLogger(log)
	paymentService.SetBusinessMetrics(businessMetrics)
	paymentService.SetLocation(location)

	cutoff, err := closing.NewCutoffPolicy(cfg.Closing.CutoffDay)
	if err != nil {
		log.Fatal("Invalid closing cutoff day", zap.Error(err))
	}
	closingService := appclosing.NewClosingService(txScope.Closing(), dailyRepo, monthlyRepo, paymentLedger, cutoff)
	closingService.SetLogger(log)
	closingService.SetBusinessMetrics(businessMetrics)
	closingService.SetLocation(location)

	outboxService := appevent.NewOutboxService(outboxRepo, log)

	// Event handlers
	handlers := []shared.EventHandler{
		appworkshop.NewAuditTrailHandler(auditRepo, log),
		appclosing.NewArchiveHandler(snapshotStore, log),
	}
	if cfg.Idempotency.Enabled {
		idemConfig := shared.DefaultIdempotencyConfig()
		idemConfig.TTL = cfg.Idempotency.TTL
		handlers = event.WrapHandlersWithIdempotency(handlers, idempotencyStore, log,
			event.WithIdempotencyConfig(idemConfig),
			event.WithIdempotencyMetrics(event.GlobalIdempotencyMetrics),
		)
	}
	for _, h := range handlers {
		eventBus.Subscribe(h, h.EventTypes()...)
	}

	if err := eventBus.Start(rootCtx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	var outboxProcessor *event.OutboxProcessor
	if cfg.Outbox.ProcessorEnabled {
		outboxProcessor = event.NewOutboxProcessor(outboxRepo, eventBus, eventSerializer, event.NewOutboxProcessorConfig(cfg.Outbox), log)
		if err := outboxProcessor.Start(rootCtx); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
	}

	// Automatic daily close
	var (
		jobScheduler *scheduler.Scheduler
		cronTrigger  *scheduler.CronTrigger
	)
	if cfg.Closing.AutoCloseEnabled {
		jobScheduler = scheduler.NewScheduler(scheduler.SchedulerConfig{
			Enabled:           true,
			MaxConcurrentJobs: cfg.Scheduler.MaxConcurrentJobs,
			QueueSize:         cfg.Scheduler.QueueSize,
			JobTimeout:        cfg.Scheduler.JobTimeout,
			RetryAttempts:     cfg.Scheduler.RetryAttempts,
			RetryDelay:        cfg.Scheduler.RetryDelay,
		}, scheduler.NewClosingExecutor(closingService, log), log)
		if err := jobScheduler.Start(rootCtx); err != nil {
			log.Fatal("Failed to start scheduler", zap.Error(err))
		}

		cronTrigger = scheduler.NewCronTrigger(scheduler.CronTriggerConfig{
			Hour:          cfg.Closing.AutoCloseHour,
			Minute:        cfg.Closing.AutoCloseMinute,
			CheckInterval: cfg.Closing.CheckInterval,
			Location:      location,
		}, jobScheduler, log)
		if err := cronTrigger.Start(rootCtx); err != nil {
			log.Fatal("Failed to start auto close trigger", zap.Error(err))
		}
	}

	// HTTP
	systemHandler := handler.NewSystemHandler(cfg.App.Name, version)
	systemHandler.AddCheck("database", db.Ping)
	if pinger, ok := idempotencyStore.(interface{ Ping(context.Context) error }); ok {
		systemHandler.AddCheck("redis", pinger.Ping)
	}

	var limiter *middleware.RateLimiter
	if cfg.HTTP.RateLimitEnabled {
		limiter = middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		go limiter.Run(rootCtx)
	}

	engine := router.NewEngine(router.EngineConfig{
		Logger:        log,
		HTTP:          cfg.HTTP,
		Swagger:       cfg.Swagger,
		JWTService:    auth.NewJWTService(cfg.JWT),
		Tracing:       middleware.TracingConfig{ServiceName: serviceName, Enabled: tracerProvider.IsEnabled()},
		MeterProvider: meterProvider,
		RateLimiter:   limiter,
		Profiling:     profiler.IsEnabled(),
	}, router.Handlers{
		Orders:    handler.NewOrderHandler(orderService, inspectionService),
		Payments:  handler.NewPaymentHandler(paymentService),
		Closings:  handler.NewClosingHandler(closingService),
		Directory: handler.NewDirectoryHandler(orderService),
		Outbox:    handler.NewOutboxHandler(outboxService),
		System:    systemHandler,
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	// Stop producers before the bus so in-flight closings still get archived
	if cronTrigger != nil {
		if err := cronTrigger.Stop(ctx); err != nil {
			log.Error("Error stopping auto close trigger", zap.Error(err))
		}
	}
	if jobScheduler != nil {
		if err := jobScheduler.Stop(ctx); err != nil {
			log.Error("Error stopping scheduler", zap.Error(err))
		}
	}
	if outboxProcessor != nil {
		if err := outboxProcessor.Stop(ctx); err != nil {
			log.Error("Error stopping outbox processor", zap.Error(err))
		}
	}
	if err := eventBus.Stop(ctx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}
	stats := event.GlobalIdempotencyMetrics.Stats()
	log.Info("Event handlers stopped",
		zap.Int64("events_processed", stats.EventsProcessed),
		zap.Int64("events_duplicate", stats.EventsDuplicate),
		zap.Int64("events_failed", stats.EventsFailed),
	)
	stopRoot()

	if err := profiler.Stop(); err != nil {
		log.Error("Error stopping profiler", zap.Error(err))
	}
	if err := meterProvider.Shutdown(ctx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(ctx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}
	log.Info("Server exited gracefully")
	if err := loggerProvider.Shutdown(ctx); err != nil {
		log.Error("Error shutting down logger provider", zap.Error(err))
	}
}

// newSnapshotStore returns the S3 bucket for closing snapshots, or an
// in-memory store when object storage is disabled
func newSnapshotStore(ctx context.Context, cfg *config.Config, log *zap.Logger) appclosing.SnapshotStore {
	if !cfg.Storage.Enabled {
		log.Info("Object storage disabled, closing snapshots are kept in memory")
		return storage.NewMemoryObjectStorage()
	}

	s3Storage, err := storage.NewS3ObjectStorage(&cfg.Storage, storage.WithLogger(log))
	if err != nil {
		log.Fatal("Failed to initialize object storage", zap.Error(err))
	}
	if err := s3Storage.EnsureBucket(ctx); err != nil {
		log.Fatal("Failed to prepare storage bucket", zap.String("bucket", s3Storage.Bucket()), zap.Error(err))
	}
	log.Info("Closing snapshots archived to object storage", zap.String("bucket", s3Storage.Bucket()))
	return s3Storage
}
