package middlewares

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/case-framework/recruitment-backend/pkg/apihelpers"
	jwthandling "github.com/case-framework/recruitment-backend/pkg/jwt-handling"
	permissionchecker "github.com/case-framework/recruitment-backend/pkg/permission-checker"
	"github.com/gin-gonic/gin"
)

const HeaderAuthorization = "Authorization"

// GetAndValidateUserJWT extracts the bearer token, validates it and stores the claims and the
// derived principal in the context.
func GetAndValidateUserJWT(tokenSignKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := extractToken(c)
		if err != nil {
			slog.Debug("no Authorization token found", slog.String("error", err.Error()))
			apihelpers.AbortWithError(c, apihelpers.Unauthorized(err.Error()))
			return
		}

		claims, err := jwthandling.ValidateUserToken(token, tokenSignKey)
		if err != nil {
			slog.Warn("token validation failed", slog.String("error", err.Error()))
			apihelpers.AbortWithError(c, apihelpers.Unauthorized("invalid token"))
			return
		}

		principal, err := permissionchecker.PrincipalFromClaims(claims)
		if err != nil {
			slog.Warn("token carries invalid claims", slog.String("userID", claims.ID), slog.String("role", claims.Role))
			apihelpers.AbortWithError(c, apihelpers.Unauthorized("invalid token"))
			return
		}

		c.Set(apihelpers.CTX_VALIDATED_TOKEN, claims)
		c.Set(apihelpers.CTX_PRINCIPAL, principal)
		c.Next()
	}
}

func extractToken(c *gin.Context) (string, error) {
	header := c.GetHeader(HeaderAuthorization)
	if header == "" {
		return "", errors.New("no Authorization header found")
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" || token == header {
		return "", errors.New("no bearer token found in Authorization header")
	}
	return token, nil
}
