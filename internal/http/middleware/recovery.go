package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"dataagentjp.io/querycore/internal/domain"
)

// Recovery converts panics into an INTERNAL_ERROR envelope so even a
// crash stays inside the closed error code set.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				ctx := c.Request.Context()
				stack := string(debug.Stack())

				slog.ErrorContext(ctx, "panic recovered",
					"error", err,
					"method", c.Request.Method,
					"path", c.Request.URL.Path,
					"stack", stack,
				)

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"status": "error",
					"error": gin.H{
						"code":    domain.ErrorCodeInternalError,
						"message": "internal server error",
					},
				})
			}
		}()
		c.Next()
	}
}
