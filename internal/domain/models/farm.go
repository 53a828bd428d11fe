package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Farm is the holding a user registers alongside their account.
// FarmCode is generated server side and never changes.
type Farm struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	FarmName  string             `bson:"farm_name" json:"farm_name"`
	FarmCode  string             `bson:"farm_code" json:"farm_code"`
	Owner     primitive.ObjectID `bson:"owner" json:"owner"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}
