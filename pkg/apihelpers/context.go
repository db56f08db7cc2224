package apihelpers

import (
	jwthandling "github.com/case-framework/recruitment-backend/pkg/jwt-handling"
	permissionchecker "github.com/case-framework/recruitment-backend/pkg/permission-checker"
	"github.com/gin-gonic/gin"
)

const (
	CTX_VALIDATED_TOKEN = "validatedToken"
	CTX_PRINCIPAL       = "principal"
)

func GetPrincipal(c *gin.Context) (permissionchecker.Principal, bool) {
	v, ok := c.Get(CTX_PRINCIPAL)
	if !ok {
		return permissionchecker.Principal{}, false
	}
	p, ok := v.(permissionchecker.Principal)
	return p, ok
}

func GetClaims(c *gin.Context) (*jwthandling.UserClaims, bool) {
	v, ok := c.Get(CTX_VALIDATED_TOKEN)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*jwthandling.UserClaims)
	return claims, ok
}
