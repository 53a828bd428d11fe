package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Gender of an animal.
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
)

// Valid reports whether g is a known gender.
func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale
}

// HealthNote is a free-form note appended to a cattle record.
type HealthNote struct {
	Date  time.Time `bson:"date" json:"date"`
	Notes string    `bson:"notes" json:"notes"`
}

// Cattle is a single animal owned by a user. TagNumber is unique per owner.
type Cattle struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name          string             `bson:"name" json:"name"`
	Breed         string             `bson:"breed" json:"breed"`
	Age           *int               `bson:"age,omitempty" json:"age,omitempty"`
	Gender        Gender             `bson:"gender" json:"gender"`
	TagNumber     string             `bson:"tag_number" json:"tag_number"`
	ImageURL      string             `bson:"imageUrl,omitempty" json:"imageUrl,omitempty"`
	HealthRecords []HealthNote       `bson:"healthRecords,omitempty" json:"healthRecords,omitempty"`
	CreatedBy     primitive.ObjectID `bson:"createdBy" json:"createdBy"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// CattleRef is the short form of a cattle embedded in other views.
type CattleRef struct {
	ID        primitive.ObjectID `json:"_id"`
	Name      string             `json:"name"`
	TagNumber string             `json:"tag_number"`
}

// Ref returns the short form of c.
func (c Cattle) Ref() *CattleRef {
	return &CattleRef{ID: c.ID, Name: c.Name, TagNumber: c.TagNumber}
}
