package memory

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/farmhub/internal/domain/models"
	"github.com/mamadbah2/farmhub/internal/repository"
)

// ownedStore implements repository.OwnedStore over a collection.
type ownedStore[T any] struct {
	coll *collection
	now  func() time.Time
}

func newOwnedStore[T any](now func() time.Time, unique ...[]string) *ownedStore[T] {
	return &ownedStore[T]{coll: newCollection(unique...), now: now}
}

func scoped(owner primitive.ObjectID, extra bson.M) bson.M {
	filter := bson.M{repository.OwnerField: owner}
	for k, v := range extra {
		filter[k] = v
	}
	return filter
}

func (s *ownedStore[T]) Insert(_ context.Context, doc *T) error {
	return s.coll.insert(doc)
}

func (s *ownedStore[T]) Get(_ context.Context, owner, id primitive.ObjectID) (*T, error) {
	m, err := s.coll.findOne(query{filter: scoped(owner, bson.M{"_id": id})})
	if err != nil {
		return nil, err
	}
	return fromDoc[T](m)
}

func (s *ownedStore[T]) Find(_ context.Context, owner primitive.ObjectID, opts repository.ListOptions) ([]T, error) {
	docs, err := s.coll.find(query{
		filter:  scoped(owner, opts.Filter),
		sortBy:  opts.SortField,
		order:   opts.SortOrder,
		exclude: opts.Exclude,
	})
	if err != nil {
		return nil, err
	}
	return fromDocs[T](docs)
}

func (s *ownedStore[T]) FindByIDs(_ context.Context, owner primitive.ObjectID, ids []primitive.ObjectID) ([]T, error) {
	wanted := make(map[primitive.ObjectID]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	docs, err := s.coll.find(query{
		filter: scoped(owner, nil),
		where: func(m bson.M) bool {
			id, _ := m["_id"].(primitive.ObjectID)
			_, ok := wanted[id]
			return ok
		},
	})
	if err != nil {
		return nil, err
	}
	return fromDocs[T](docs)
}

func (s *ownedStore[T]) Update(_ context.Context, owner, id primitive.ObjectID, set bson.M) (*T, error) {
	m, err := s.coll.mutate(query{filter: scoped(owner, bson.M{"_id": id})}, func(doc bson.M) error {
		for k, v := range set {
			if k == "_id" || k == repository.OwnerField {
				continue
			}
			doc[k] = v
		}
		doc["updatedAt"] = s.now()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return fromDoc[T](m)
}

func (s *ownedStore[T]) Delete(_ context.Context, owner, id primitive.ObjectID) (*T, error) {
	m, err := s.coll.remove(query{filter: scoped(owner, bson.M{"_id": id})})
	if err != nil {
		return nil, err
	}
	return fromDoc[T](m)
}

func (s *ownedStore[T]) Exists(_ context.Context, owner primitive.ObjectID, filter bson.M, exclude primitive.ObjectID) (bool, error) {
	return s.coll.exists(query{filter: scoped(owner, filter), where: excluding(exclude)})
}

func excluding(id primitive.ObjectID) func(bson.M) bool {
	if id.IsZero() {
		return nil
	}
	return func(m bson.M) bool {
		other, _ := m["_id"].(primitive.ObjectID)
		return other != id
	}
}

type cattleStore struct {
	*ownedStore[models.Cattle]
}

func (s *cattleStore) AppendHealthNote(_ context.Context, owner, id primitive.ObjectID, note models.HealthNote) (*models.Cattle, error) {
	m, err := s.coll.mutate(query{filter: scoped(owner, bson.M{"_id": id})}, func(doc bson.M) error {
		notes, _ := doc["healthRecords"].(bson.A)
		doc["healthRecords"] = append(notes, note)
		doc["updatedAt"] = s.now()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return fromDoc[models.Cattle](m)
}

type feedStore struct {
	*ownedStore[models.Feed]
}

func (s *feedStore) AdjustQuantity(_ context.Context, owner, id primitive.ObjectID, delta float64) (*models.Feed, error) {
	m, err := s.coll.mutate(query{filter: scoped(owner, bson.M{"_id": id})}, func(doc bson.M) error {
		current, _ := toFloat(doc["quantity"])
		if current+delta < 0 {
			return repository.ErrConditionFailed
		}
		doc["quantity"] = current + delta
		doc["updatedAt"] = s.now()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return fromDoc[models.Feed](m)
}

func (s *feedStore) LowStock(_ context.Context, owner primitive.ObjectID) ([]models.Feed, error) {
	docs, err := s.coll.find(query{filter: scoped(owner, nil), where: lowStock})
	if err != nil {
		return nil, err
	}
	return fromDocs[models.Feed](docs)
}

func (s *feedStore) LowStockAll(_ context.Context) ([]models.Feed, error) {
	docs, err := s.coll.find(query{where: lowStock})
	if err != nil {
		return nil, err
	}
	return fromDocs[models.Feed](docs)
}

func lowStock(m bson.M) bool {
	quantity, ok := toFloat(m["quantity"])
	if !ok {
		return false
	}
	alert, ok := toFloat(m["stockAlert"])
	return ok && quantity <= alert
}
