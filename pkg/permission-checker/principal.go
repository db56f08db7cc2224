package permissionchecker

import (
	"errors"

	jwthandling "github.com/case-framework/recruitment-backend/pkg/jwt-handling"
	"github.com/case-framework/recruitment-backend/pkg/recruitment/types"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrInvalidPrincipal = errors.New("invalid principal")

// Principal is the authenticated caller as seen by the access checks.
type Principal struct {
	UserID    primitive.ObjectID
	Role      types.Role
	SponsorID primitive.ObjectID
	SiteID    primitive.ObjectID
}

func (p Principal) IsAdmin() bool {
	return p.Role == types.ROLE_ADMIN
}

// PrincipalFromClaims converts validated token claims. Sponsor and site callers must carry
// the id of the organisation they belong to.
func PrincipalFromClaims(claims *jwthandling.UserClaims) (Principal, error) {
	if claims == nil {
		return Principal{}, ErrInvalidPrincipal
	}
	userID, err := primitive.ObjectIDFromHex(claims.ID)
	if err != nil {
		return Principal{}, ErrInvalidPrincipal
	}
	p := Principal{
		UserID: userID,
		Role:   types.Role(claims.Role),
	}

	switch p.Role {
	case types.ROLE_ADMIN:
	case types.ROLE_SPONSOR:
		p.SponsorID, err = primitive.ObjectIDFromHex(claims.SponsorID)
	case types.ROLE_SITE:
		p.SiteID, err = primitive.ObjectIDFromHex(claims.SiteID)
	default:
		return Principal{}, ErrInvalidPrincipal
	}
	if err != nil {
		return Principal{}, ErrInvalidPrincipal
	}
	return p, nil
}
