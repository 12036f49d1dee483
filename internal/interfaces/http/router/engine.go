package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/workshop/backend/internal/infrastructure/auth"
	"github.com/workshop/backend/internal/infrastructure/config"
	"github.com/workshop/backend/internal/infrastructure/logger"
	"github.com/workshop/backend/internal/infrastructure/telemetry"
	"github.com/workshop/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// EngineConfig holds everything the HTTP engine needs besides the handlers
type EngineConfig struct {
	Logger        *zap.Logger
	HTTP          config.HTTPConfig
	Swagger       config.SwaggerConfig
	JWTService    *auth.JWTService
	Tracing       middleware.TracingConfig
	MeterProvider *telemetry.MeterProvider
	// RateLimiter is nil when rate limiting is disabled
	RateLimiter *middleware.RateLimiter
	// Profiling labels API requests for the continuous profiler
	Profiling bool
}

// NewEngine builds the gin engine with the middleware stack and every route.
//
// Engine-wide middleware, in order: Recovery, RequestID, request logging,
// tracing, HTTP metrics, CORS, security headers and the body limit. The
// versioned API group adds Auth, the span enricher, profiling labels and,
// when configured, the rate limiter. Health endpoints and the documentation stay outside the group.
func NewEngine(cfg EngineConfig, h Handlers) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(logger.Recovery(log))
	engine.Use(middleware.RequestID(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.TracingWithConfig(cfg.Tracing))
	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		MeterProvider: cfg.MeterProvider,
		Enabled:       cfg.MeterProvider != nil,
		Logger:        log,
	}))

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))
	engine.Use(middleware.Secure())
	if cfg.HTTP.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	}

	authConfig := middleware.DefaultAuthConfig(cfg.JWTService)
	authConfig.Logger = log
	authMiddleware := middleware.Auth(authConfig)

	if h.System != nil {
		engine.GET("/health", h.System.Health)
		engine.GET("/health/ready", h.System.Ready)
	}
	engine.GET("/swagger/*any",
		middleware.SwaggerProtection(middleware.SwaggerConfig{
			Enabled:     cfg.Swagger.Enabled,
			RequireAuth: cfg.Swagger.RequireAuth,
			AllowedIPs:  cfg.Swagger.AllowedIPs,
		}, authMiddleware),
		ginSwagger.WrapHandler(swaggerFiles.Handler),
	)

	r := NewRouter(engine, WithAPIVersion("v1"))
	r.Use(authMiddleware, middleware.SpanEnricher(), middleware.Profiling(cfg.Profiling))
	if cfg.RateLimiter != nil {
		r.Use(middleware.RateLimit(cfg.RateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}
	for _, group := range APIGroups(h) {
		r.Register(group)
	}
	r.Setup()

	return engine
}
