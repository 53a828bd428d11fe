package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// HealthType enumerates health event categories.
type HealthType string

const (
	HealthVaccination HealthType = "Vaccination"
	HealthTreatment   HealthType = "Treatment"
	HealthCheckup     HealthType = "Check-up"
	HealthDisease     HealthType = "Disease"
	HealthOther       HealthType = "Other"
)

func (t HealthType) Valid() bool {
	switch t {
	case HealthVaccination, HealthTreatment, HealthCheckup, HealthDisease, HealthOther:
		return true
	}
	return false
}

// Medicine is one prescription line of a health record.
type Medicine struct {
	Name     string `bson:"name" json:"name"`
	Dosage   string `bson:"dosage,omitempty" json:"dosage,omitempty"`
	Duration string `bson:"duration,omitempty" json:"duration,omitempty"`
}

// HealthRecord is a standalone health event for a cattle of the same owner.
type HealthRecord struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	CattleID        primitive.ObjectID `bson:"cattleId" json:"cattleId"`
	Date            time.Time          `bson:"date" json:"date"`
	Type            HealthType         `bson:"type" json:"type"`
	Description     string             `bson:"description" json:"description"`
	Medicines       []Medicine         `bson:"medicines,omitempty" json:"medicines,omitempty"`
	Veterinarian    string             `bson:"veterinarian,omitempty" json:"veterinarian,omitempty"`
	NextCheckupDate *time.Time         `bson:"nextCheckupDate,omitempty" json:"nextCheckupDate,omitempty"`
	Cost            *float64           `bson:"cost,omitempty" json:"cost,omitempty"`
	CreatedBy       primitive.ObjectID `bson:"createdBy" json:"createdBy"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// HealthRecordView is a health record with its cattle summary attached.
type HealthRecordView struct {
	HealthRecord
	Cattle *CattleRef `json:"cattle,omitempty"`
}
