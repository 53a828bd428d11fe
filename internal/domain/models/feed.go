package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FeedType enumerates supported feed categories.
type FeedType string

const (
	FeedFodder      FeedType = "Fodder"
	FeedConcentrate FeedType = "Concentrate"
	FeedMineral     FeedType = "Mineral"
	FeedSupplement  FeedType = "Supplement"
)

func (t FeedType) Valid() bool {
	switch t {
	case FeedFodder, FeedConcentrate, FeedMineral, FeedSupplement:
		return true
	}
	return false
}

// FeedUnit is the unit a feed quantity is measured in.
type FeedUnit string

const (
	UnitKilogram FeedUnit = "kg"
	UnitGram     FeedUnit = "g"
	UnitPound    FeedUnit = "lbs"
	UnitTon      FeedUnit = "tons"
)

func (u FeedUnit) Valid() bool {
	switch u {
	case UnitKilogram, UnitGram, UnitPound, UnitTon:
		return true
	}
	return false
}

// NutritionalInfo holds optional per-feed nutrition figures.
type NutritionalInfo struct {
	Protein  *float64 `bson:"protein,omitempty" json:"protein,omitempty"`
	Fiber    *float64 `bson:"fiber,omitempty" json:"fiber,omitempty"`
	Energy   *float64 `bson:"energy,omitempty" json:"energy,omitempty"`
	Minerals *float64 `bson:"minerals,omitempty" json:"minerals,omitempty"`
}

// Feed is an inventory line. Quantity is never negative.
type Feed struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name            string             `bson:"name" json:"name"`
	Type            FeedType           `bson:"type" json:"type"`
	Quantity        float64            `bson:"quantity" json:"quantity"`
	Unit            FeedUnit           `bson:"unit" json:"unit"`
	Cost            float64            `bson:"cost" json:"cost"`
	PurchaseDate    time.Time          `bson:"purchaseDate" json:"purchaseDate"`
	ExpiryDate      *time.Time         `bson:"expiryDate,omitempty" json:"expiryDate,omitempty"`
	Supplier        string             `bson:"supplier,omitempty" json:"supplier,omitempty"`
	StockAlert      float64            `bson:"stockAlert" json:"stockAlert"`
	NutritionalInfo *NutritionalInfo   `bson:"nutritionalInfo,omitempty" json:"nutritionalInfo,omitempty"`
	Notes           string             `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedBy       primitive.ObjectID `bson:"createdBy" json:"createdBy"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// LowStock reports whether the quantity reached the alert threshold.
func (f Feed) LowStock() bool {
	return f.Quantity <= f.StockAlert
}
