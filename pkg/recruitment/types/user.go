package types

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Role string

const (
	ROLE_ADMIN   Role = "admin"
	ROLE_SPONSOR Role = "sponsor"
	ROLE_SITE    Role = "site"
)

func (r Role) IsValid() bool {
	return r == ROLE_ADMIN || r == ROLE_SPONSOR || r == ROLE_SITE
}

type User struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id,omitempty"`
	Name         string              `bson:"name" json:"name"`
	Email        string              `bson:"email" json:"email"`
	PasswordHash string              `bson:"passwordHash" json:"-"`
	Role         Role                `bson:"role" json:"role"`
	SponsorID    *primitive.ObjectID `bson:"sponsorId,omitempty" json:"sponsorId,omitempty"`
	SiteID       *primitive.ObjectID `bson:"siteId,omitempty" json:"siteId,omitempty"`
	IsActive     bool                `bson:"isActive" json:"isActive"`
	LastLoginAt  *time.Time          `bson:"lastLoginAt,omitempty" json:"lastLoginAt,omitempty"`
	CreatedAt    time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time           `bson:"updatedAt" json:"updatedAt"`
}

var (
	ErrInvalidRole           = errors.New("invalid role")
	ErrSponsorIDRequired     = errors.New("sponsorId is required for sponsor users")
	ErrSiteIDRequired        = errors.New("siteId is required for site users")
	ErrUnexpectedOwnerFields = errors.New("owner reference does not match role")
)

// ValidateOwnership checks that exactly the owner reference selected by the role is present.
func (u User) ValidateOwnership() error {
	switch u.Role {
	case ROLE_ADMIN:
		if u.SponsorID != nil || u.SiteID != nil {
			return ErrUnexpectedOwnerFields
		}
	case ROLE_SPONSOR:
		if u.SponsorID == nil || u.SponsorID.IsZero() {
			return ErrSponsorIDRequired
		}
		if u.SiteID != nil {
			return ErrUnexpectedOwnerFields
		}
	case ROLE_SITE:
		if u.SiteID == nil || u.SiteID.IsZero() {
			return ErrSiteIDRequired
		}
		if u.SponsorID != nil {
			return ErrUnexpectedOwnerFields
		}
	default:
		return ErrInvalidRole
	}
	return nil
}
