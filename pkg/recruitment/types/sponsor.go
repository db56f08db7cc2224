package types

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Sponsor struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"id,omitempty"`
	Name         string               `bson:"name" json:"name"`
	CompanyEmail string               `bson:"companyEmail" json:"companyEmail"`
	Phone        string               `bson:"phone" json:"phone"`
	Address      string               `bson:"address" json:"address"`
	Admins       []primitive.ObjectID `bson:"admins" json:"admins"`
	Studies      []primitive.ObjectID `bson:"studies" json:"studies"`
	CreatedAt    time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time            `bson:"updatedAt" json:"updatedAt"`
}
