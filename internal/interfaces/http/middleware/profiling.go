package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/workshop/backend/internal/infrastructure/telemetry"
)

// Profiling labels CPU and allocation samples taken while a request runs
// with its route pattern, method and operator role. Mount it after Auth.
func Profiling(enabled bool) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		labels := map[string]string{
			telemetry.ProfilingLabelRoute:  c.FullPath(),
			telemetry.ProfilingLabelMethod: c.Request.Method,
		}
		if op, ok := GetOperator(c); ok {
			labels[telemetry.ProfilingLabelRole] = op.Role.String()
		}

		telemetry.WithProfilingLabels(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}
