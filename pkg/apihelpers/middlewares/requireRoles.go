package middlewares

import (
	"log/slog"

	"github.com/case-framework/recruitment-backend/pkg/apihelpers"
	permissionchecker "github.com/case-framework/recruitment-backend/pkg/permission-checker"
	"github.com/case-framework/recruitment-backend/pkg/recruitment/types"
	"github.com/gin-gonic/gin"
)

// RequireRoles rejects callers whose role is not in roles. It must run after GetAndValidateUserJWT.
func RequireRoles(roles ...types.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := apihelpers.GetPrincipal(c)
		if !ok {
			apihelpers.AbortWithError(c, apihelpers.Unauthorized("authentication required"))
			return
		}

		if !permissionchecker.IsRoleAllowed(principal.Role, roles...) {
			slog.Warn("RequireRoles: role not allowed for endpoint",
				slog.String("userID", principal.UserID.Hex()),
				slog.String("role", string(principal.Role)),
				slog.String("path", c.FullPath()),
			)
			apihelpers.AbortWithError(c, apihelpers.Forbidden())
			return
		}
		c.Next()
	}
}
