package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuthProvider records how an account was created.
type AuthProvider string

const (
	AuthProviderLocal  AuthProvider = "local"
	AuthProviderGoogle AuthProvider = "google"
)

// User is an account holder. Password holds the bcrypt hash and is never
// serialized to JSON, so the struct doubles as the public profile view.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Username     string             `bson:"username" json:"username"`
	Email        string             `bson:"email" json:"email"`
	Password     string             `bson:"password" json:"-"`
	FarmCode     string             `bson:"farm_code,omitempty" json:"farm_code,omitempty"`
	FarmName     string             `bson:"farm_name,omitempty" json:"farm_name,omitempty"`
	Avatar       string             `bson:"avatar,omitempty" json:"avatar,omitempty"`
	AuthProvider AuthProvider       `bson:"auth_provider" json:"auth_provider"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}
