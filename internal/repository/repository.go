// Package repository declares the persistence contracts implemented by the
// mongodb and memory backends.
package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/farmhub/internal/domain/models"
)

var (
	// ErrNotFound is returned when no document matches, including documents
	// that exist but belong to another owner.
	ErrNotFound = errors.New("document not found")
	// ErrDuplicate is returned when a unique key would be violated.
	ErrDuplicate = errors.New("duplicate key")
	// ErrConditionFailed is returned when a guarded update did not apply.
	ErrConditionFailed = errors.New("update condition not met")
)

// OwnerField is the document field holding the owning user id.
const OwnerField = "createdBy"

// SortOrder follows the MongoDB convention.
type SortOrder int

const (
	Ascending  SortOrder = 1
	Descending SortOrder = -1
)

// ListOptions narrows and orders an owner-scoped listing.
type ListOptions struct {
	// Filter holds field equality predicates keyed by bson field name.
	Filter bson.M
	// SortField is empty for insertion order.
	SortField string
	SortOrder SortOrder
	// Exclude lists top-level fields to leave out of the result.
	Exclude []string
}

// OwnedStore is CRUD over a collection where every operation is implicitly
// filtered by the owner id.
type OwnedStore[T any] interface {
	// Insert persists doc, which must already carry its id and owner.
	Insert(ctx context.Context, doc *T) error
	Get(ctx context.Context, owner, id primitive.ObjectID) (*T, error)
	Find(ctx context.Context, owner primitive.ObjectID, opts ListOptions) ([]T, error)
	FindByIDs(ctx context.Context, owner primitive.ObjectID, ids []primitive.ObjectID) ([]T, error)
	// Update applies set and returns the updated document.
	Update(ctx context.Context, owner, id primitive.ObjectID, set bson.M) (*T, error)
	// Delete removes the document and returns its last state.
	Delete(ctx context.Context, owner, id primitive.ObjectID) (*T, error)
	// Exists reports whether a document of owner matches filter, ignoring
	// the document with id exclude when it is not zero.
	Exists(ctx context.Context, owner primitive.ObjectID, filter bson.M, exclude primitive.ObjectID) (bool, error)
}

// CattleStore adds the embedded health note append.
type CattleStore interface {
	OwnedStore[models.Cattle]
	AppendHealthNote(ctx context.Context, owner, id primitive.ObjectID, note models.HealthNote) (*models.Cattle, error)
}

// FeedStore adds atomic stock adjustment and low stock queries.
type FeedStore interface {
	OwnedStore[models.Feed]
	// AdjustQuantity adds delta to the quantity in a single atomic update.
	// It returns ErrConditionFailed when the result would be negative.
	AdjustQuantity(ctx context.Context, owner, id primitive.ObjectID, delta float64) (*models.Feed, error)
	LowStock(ctx context.Context, owner primitive.ObjectID) ([]models.Feed, error)
	// LowStockAll spans every owner and is meant for background sweeps only.
	LowStockAll(ctx context.Context) ([]models.Feed, error)
}

// HealthStore persists standalone health records.
type HealthStore interface {
	OwnedStore[models.HealthRecord]
}

// FinanceStore persists finance entries.
type FinanceStore interface {
	OwnedStore[models.Finance]
}

// UserStore persists accounts. Username, email and farm code are unique.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	Get(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindOne(ctx context.Context, filter bson.M) (*models.User, error)
	Exists(ctx context.Context, filter bson.M, exclude primitive.ObjectID) (bool, error)
	Update(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.User, error)
}

// FarmStore persists farms. Farm codes are unique.
type FarmStore interface {
	Create(ctx context.Context, farm *models.Farm) error
	FindByOwner(ctx context.Context, owner primitive.ObjectID) (*models.Farm, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	Rename(ctx context.Context, owner primitive.ObjectID, name string) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// Store bundles every collection behind one lifecycle.
type Store interface {
	Users() UserStore
	Farms() FarmStore
	Cattle() CattleStore
	Feed() FeedStore
	Health() HealthStore
	Finances() FinanceStore
	Close(ctx context.Context) error
}
