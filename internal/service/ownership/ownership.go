// Package ownership holds the id parsing, error translation and time
// handling shared by the owner-scoped entity services.
package ownership

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/farmhub/internal/domain/apperr"
	"github.com/mamadbah2/farmhub/internal/repository"
)

// Clock returns the current time. A nil Clock falls back to time.Now.
type Clock func() time.Time

// Now returns the current instant at the precision the stores keep.
func (c Clock) Now() time.Time {
	if c == nil {
		return Normalize(time.Now())
	}
	return Normalize(c())
}

// Normalize converts t to UTC millisecond precision so values survive a
// bson round trip unchanged.
func Normalize(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// NormalizePtr is Normalize for optional dates.
func NormalizePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	n := Normalize(*t)
	return &n
}

// ParseID parses a hex object id. Malformed ids report false and are
// answered like missing ones.
func ParseID(raw string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return id, true
}

// Scoped wraps an owned store with the not-found handling every entity
// service shares. Entity is the display name used in error messages.
type Scoped[T any] struct {
	store  repository.OwnedStore[T]
	entity string
}

// New returns a Scoped for store.
func New[T any](store repository.OwnedStore[T], entity string) *Scoped[T] {
	return &Scoped[T]{store: store, entity: entity}
}

// NotFound is the error returned for missing, foreign and malformed ids alike.
func (s *Scoped[T]) NotFound() error {
	return apperr.NotFound(s.entity + " not found")
}

// Translate maps repository errors onto the application taxonomy.
func (s *Scoped[T]) Translate(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return s.NotFound()
	default:
		return fmt.Errorf("%s %s: %w", op, s.entity, err)
	}
}

func (s *Scoped[T]) Get(ctx context.Context, owner primitive.ObjectID, rawID string) (*T, error) {
	id, ok := ParseID(rawID)
	if !ok {
		return nil, s.NotFound()
	}
	doc, err := s.store.Get(ctx, owner, id)
	if err != nil {
		return nil, s.Translate("get", err)
	}
	return doc, nil
}

func (s *Scoped[T]) List(ctx context.Context, owner primitive.ObjectID, opts repository.ListOptions) ([]T, error) {
	docs, err := s.store.Find(ctx, owner, opts)
	if err != nil {
		return nil, s.Translate("list", err)
	}
	return docs, nil
}

// Update applies set to the owner's document. Identity and audit fields in
// set are ignored. An empty set returns the current document.
func (s *Scoped[T]) Update(ctx context.Context, owner primitive.ObjectID, rawID string, set bson.M) (*T, error) {
	id, ok := ParseID(rawID)
	if !ok {
		return nil, s.NotFound()
	}
	delete(set, "_id")
	delete(set, repository.OwnerField)
	delete(set, "createdAt")
	if len(set) == 0 {
		doc, err := s.store.Get(ctx, owner, id)
		return doc, s.Translate("get", err)
	}
	doc, err := s.store.Update(ctx, owner, id, set)
	if err != nil {
		return nil, s.Translate("update", err)
	}
	return doc, nil
}

func (s *Scoped[T]) Delete(ctx context.Context, owner primitive.ObjectID, rawID string) (*T, error) {
	id, ok := ParseID(rawID)
	if !ok {
		return nil, s.NotFound()
	}
	doc, err := s.store.Delete(ctx, owner, id)
	if err != nil {
		return nil, s.Translate("delete", err)
	}
	return doc, nil
}
