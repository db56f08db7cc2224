package middlewares

import (
	"log/slog"

	"github.com/case-framework/recruitment-backend/pkg/apihelpers"
	"github.com/gin-gonic/gin"
)

// RequirePayload blocks post requests that have no payload attached
func RequirePayload() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength == 0 {
			slog.Debug("RequirePayload Middleware: payload missing")
			apihelpers.AbortWithError(c, apihelpers.BadRequest("payload missing"))
			return
		}
		c.Next()
	}
}
