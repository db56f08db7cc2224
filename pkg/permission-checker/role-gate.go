package permissionchecker

import "github.com/case-framework/recruitment-backend/pkg/recruitment/types"

func IsRoleAllowed(role types.Role, allowed ...types.Role) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}
