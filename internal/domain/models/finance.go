package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FinanceType distinguishes money in from money out.
type FinanceType string

const (
	FinanceIncome  FinanceType = "Income"
	FinanceExpense FinanceType = "Expense"
)

func (t FinanceType) Valid() bool {
	return t == FinanceIncome || t == FinanceExpense
}

// Finance is a single income or expense entry.
type Finance struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Amount      float64            `bson:"amount" json:"amount"`
	Type        FinanceType        `bson:"type" json:"type"`
	Description string             `bson:"description" json:"description"`
	Date        time.Time          `bson:"date" json:"date"`
	CreatedBy   primitive.ObjectID `bson:"createdBy" json:"createdBy"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}
