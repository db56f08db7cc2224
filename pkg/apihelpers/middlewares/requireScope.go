package middlewares

import (
	"context"
	"log/slog"

	"github.com/case-framework/recruitment-backend/pkg/apihelpers"
	permissionchecker "github.com/case-framework/recruitment-backend/pkg/permission-checker"
	"github.com/case-framework/recruitment-backend/pkg/recruitment/types"
	"github.com/gin-gonic/gin"
)

type OwnershipResolver interface {
	OwnershipOf(ctx context.Context, ref types.EntityRef) (permissionchecker.Ownership, error)
}

// RequireScope checks that the caller may access the entity whose id is in the path parameter
// param. Admins skip the lookup; for everyone else a failed lookup is treated as a denial.
func RequireScope(entityType types.EntityType, param string, resolver OwnershipResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := apihelpers.GetPrincipal(c)
		if !ok {
			apihelpers.AbortWithError(c, apihelpers.Unauthorized("authentication required"))
			return
		}

		ref, err := types.ParseEntityRef(string(entityType), c.Param(param))
		if err != nil {
			apihelpers.AbortWithError(c, apihelpers.BadRequest("invalid "+param))
			return
		}

		if principal.IsAdmin() {
			c.Next()
			return
		}

		var ownership permissionchecker.Ownership
		if ref.Type != types.ENTITY_TYPE_USER {
			ownership, err = resolver.OwnershipOf(c.Request.Context(), ref)
			if err != nil {
				slog.Warn("RequireScope: ownership lookup failed",
					slog.String("ref", ref.String()),
					slog.String("error", err.Error()),
				)
				apihelpers.AbortWithError(c, apihelpers.Forbidden())
				return
			}
		}

		if !permissionchecker.CanAccess(principal, ref, ownership) {
			slog.Warn("RequireScope: access denied",
				slog.String("userID", principal.UserID.Hex()),
				slog.String("ref", ref.String()),
			)
			apihelpers.AbortWithError(c, apihelpers.Forbidden())
			return
		}
		c.Next()
	}
}
