package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/workshop/backend/internal/domain/shared"
	"github.com/workshop/backend/internal/infrastructure/auth"
	"github.com/workshop/backend/internal/infrastructure/logger"
	"github.com/workshop/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

const (
	// OperatorContextKey is the gin context key of the authenticated operator
	OperatorContextKey = "operator"
	AuthHeaderKey      = "Authorization"
	BearerPrefix       = "Bearer "
)

// AuthConfig holds configuration for the operator authentication middleware
type AuthConfig struct {
	JWTService *auth.JWTService
	// SkipPaths are exact paths served without a token
	SkipPaths []string
	// SkipPathPrefixes are path prefixes served without a token
	SkipPathPrefixes []string
	Logger           *zap.Logger
}

// DefaultAuthConfig returns the configuration used by the API router
func DefaultAuthConfig(jwtService *auth.JWTService) AuthConfig {
	return AuthConfig{
		JWTService:       jwtService,
		SkipPaths:        []string{"/health", "/health/ready"},
		SkipPathPrefixes: []string{"/swagger"},
	}
}

// Auth validates the bearer token and puts the operator it names into the
// request context, where the services read it with shared.RequireRole
func Auth(cfg AuthConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skip := range cfg.SkipPaths {
			if path == skip {
				c.Next()
				return
			}
		}
		for _, prefix := range cfg.SkipPathPrefixes {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		header := c.GetHeader(AuthHeaderKey)
		if header == "" {
			abortWithError(c, dto.ErrCodeUnauthorized, "Missing authorization header")
			return
		}
		if !strings.HasPrefix(header, BearerPrefix) {
			abortWithError(c, dto.ErrCodeUnauthorized, "Invalid authorization header format")
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, BearerPrefix))
		if token == "" {
			abortWithError(c, dto.ErrCodeUnauthorized, "Missing token")
			return
		}

		claims, err := cfg.JWTService.Validate(token)
		if err != nil {
			log.Debug("Token rejected",
				zap.String("request_id", c.GetString(RequestIDContextKey)),
				zap.Error(err),
			)
			if errors.Is(err, auth.ErrExpiredToken) {
				abortWithError(c, dto.ErrCodeTokenExpired, "Token has expired")
				return
			}
			abortWithError(c, dto.ErrCodeTokenInvalid, "Invalid token")
			return
		}
		op, err := claims.Operator()
		if err != nil {
			abortWithError(c, dto.ErrCodeTokenInvalid, "Invalid token")
			return
		}

		ctx := shared.WithOperator(c.Request.Context(), op)
		ctx, _ = logger.WithOperator(ctx, logger.FromContext(ctx), op.ID.String(), op.Role.String())
		c.Request = c.Request.WithContext(ctx)
		c.Set(OperatorContextKey, op)
		c.Next()
	}
}

// RequireRoles stops requests whose operator holds none of roles. Services
// check roles themselves; this guards whole route groups such as /admin.
func RequireRoles(roles ...shared.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := shared.RequireRole(c.Request.Context(), roles...); err != nil {
			code := dto.NormalizeErrorCode(shared.ErrorCode(err))
			abortWithError(c, code, err.Error())
			return
		}
		c.Next()
	}
}

// GetOperator returns the operator set by Auth
func GetOperator(c *gin.Context) (shared.Operator, bool) {
	v, ok := c.Get(OperatorContextKey)
	if !ok {
		return shared.Operator{}, false
	}
	op, ok := v.(shared.Operator)
	return op, ok
}
