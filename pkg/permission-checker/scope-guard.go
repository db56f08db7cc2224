package permissionchecker

import (
	"github.com/case-framework/recruitment-backend/pkg/recruitment/types"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Ownership describes which sponsor and which sites an entity belongs to.
type Ownership struct {
	SponsorID primitive.ObjectID
	SiteIDs   []primitive.ObjectID
}

func (o Ownership) HasSite(siteID primitive.ObjectID) bool {
	for _, id := range o.SiteIDs {
		if id == siteID {
			return true
		}
	}
	return false
}

// CanAccess decides whether p may act on the entity ref points to. Admins are always
// allowed, user records are only accessible to their owner, proposals and event logs
// are admin only.
func CanAccess(p Principal, ref types.EntityRef, ownership Ownership) bool {
	if p.IsAdmin() {
		return true
	}

	switch ref.Type {
	case types.ENTITY_TYPE_USER:
		return ref.ID == p.UserID
	case types.ENTITY_TYPE_PROPOSAL:
		return false
	}

	switch p.Role {
	case types.ROLE_SPONSOR:
		return !p.SponsorID.IsZero() && ownership.SponsorID == p.SponsorID
	case types.ROLE_SITE:
		return !p.SiteID.IsZero() && ownership.HasSite(p.SiteID)
	}
	return false
}
