package permissionchecker

import (
	"github.com/case-framework/recruitment-backend/pkg/recruitment/types"
	"go.mongodb.org/mongo-driver/bson"
)

// matchNothing is a filter no stored document satisfies.
var matchNothing = bson.M{"_id": bson.M{"$exists": false}}

// ScopeFilter returns the base filter for listing entities of the given kind. It is the only
// place that decides which rows a role may see in a list.
func ScopeFilter(p Principal, entityType types.EntityType) bson.M {
	if p.IsAdmin() {
		return bson.M{}
	}

	if entityType == types.ENTITY_TYPE_USER {
		return bson.M{"_id": p.UserID}
	}

	switch p.Role {
	case types.ROLE_SPONSOR:
		if p.SponsorID.IsZero() {
			return matchNothing
		}
		switch entityType {
		case types.ENTITY_TYPE_SPONSOR:
			return bson.M{"_id": p.SponsorID}
		case types.ENTITY_TYPE_SITE, types.ENTITY_TYPE_STUDY, types.ENTITY_TYPE_PARTICIPANT:
			return bson.M{"sponsorId": p.SponsorID}
		}
	case types.ROLE_SITE:
		if p.SiteID.IsZero() {
			return matchNothing
		}
		switch entityType {
		case types.ENTITY_TYPE_SITE:
			return bson.M{"_id": p.SiteID}
		case types.ENTITY_TYPE_STUDY:
			return bson.M{"linkedSites": p.SiteID}
		case types.ENTITY_TYPE_PARTICIPANT:
			return bson.M{"siteId": p.SiteID}
		}
	}
	return matchNothing
}

// Restrict combines a scope filter with caller supplied filters. The result never matches
// a document the scope alone would not match.
func Restrict(scope bson.M, explicit bson.M) bson.M {
	if len(explicit) == 0 {
		return scope
	}
	if len(scope) == 0 {
		return explicit
	}
	return bson.M{"$and": bson.A{scope, explicit}}
}
