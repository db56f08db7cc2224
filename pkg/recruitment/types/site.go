package types

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type SiteStatus string

const (
	SITE_STATUS_PENDING  SiteStatus = "Pending"
	SITE_STATUS_ACTIVE   SiteStatus = "Active"
	SITE_STATUS_INACTIVE SiteStatus = "Inactive"
)

func (s SiteStatus) IsValid() bool {
	return s == SITE_STATUS_PENDING || s == SITE_STATUS_ACTIVE || s == SITE_STATUS_INACTIVE
}

type Site struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"id,omitempty"`
	Name         string               `bson:"name" json:"name"`
	Address      string               `bson:"address" json:"address"`
	ContactName  string               `bson:"contactName" json:"contactName"`
	ContactEmail string               `bson:"contactEmail" json:"contactEmail"`
	Phone        string               `bson:"phone" json:"phone"`
	SponsorID    primitive.ObjectID   `bson:"sponsorId" json:"sponsorId"`
	Status       SiteStatus           `bson:"status" json:"status"`
	Users        []primitive.ObjectID `bson:"users" json:"users"`
	CreatedAt    time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time            `bson:"updatedAt" json:"updatedAt"`
}
