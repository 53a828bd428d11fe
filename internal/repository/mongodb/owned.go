package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/farmhub/internal/domain/models"
	"github.com/mamadbah2/farmhub/internal/repository"
)

// ownedCollection implements repository.OwnedStore on a MongoDB collection.
type ownedCollection[T any] struct {
	coll *mongo.Collection
	now  func() time.Time
}

func newOwnedCollection[T any](coll *mongo.Collection, now func() time.Time) *ownedCollection[T] {
	return &ownedCollection[T]{coll: coll, now: now}
}

func scoped(owner primitive.ObjectID, extra bson.M) bson.M {
	filter := bson.M{repository.OwnerField: owner}
	for k, v := range extra {
		filter[k] = v
	}
	return filter
}

// translate maps driver errors onto the repository sentinels.
func translate(op, collection string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return repository.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %s %s: %v", repository.ErrDuplicate, op, collection, err)
	default:
		return fmt.Errorf("%s %s: %w", op, collection, err)
	}
}

func (o *ownedCollection[T]) Insert(ctx context.Context, doc *T) error {
	_, err := o.coll.InsertOne(ctx, doc)
	return translate("insert", o.coll.Name(), err)
}

func (o *ownedCollection[T]) Get(ctx context.Context, owner, id primitive.ObjectID) (*T, error) {
	out := new(T)
	if err := o.coll.FindOne(ctx, scoped(owner, bson.M{"_id": id})).Decode(out); err != nil {
		return nil, translate("get", o.coll.Name(), err)
	}
	return out, nil
}

func (o *ownedCollection[T]) Find(ctx context.Context, owner primitive.ObjectID, opts repository.ListOptions) ([]T, error) {
	findOpts := options.Find()
	if opts.SortField != "" {
		order := opts.SortOrder
		if order == 0 {
			order = repository.Ascending
		}
		findOpts.SetSort(bson.D{{Key: opts.SortField, Value: int(order)}, {Key: "_id", Value: 1}})
	}
	if len(opts.Exclude) > 0 {
		projection := bson.M{}
		for _, field := range opts.Exclude {
			projection[field] = 0
		}
		findOpts.SetProjection(projection)
	}
	return o.findAll(ctx, scoped(owner, opts.Filter), findOpts)
}

func (o *ownedCollection[T]) FindByIDs(ctx context.Context, owner primitive.ObjectID, ids []primitive.ObjectID) ([]T, error) {
	if len(ids) == 0 {
		return []T{}, nil
	}
	return o.findAll(ctx, scoped(owner, bson.M{"_id": bson.M{"$in": ids}}), options.Find())
}

func (o *ownedCollection[T]) findAll(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]T, error) {
	cursor, err := o.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, translate("find", o.coll.Name(), err)
	}
	out := make([]T, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, translate("decode", o.coll.Name(), err)
	}
	return out, nil
}

func (o *ownedCollection[T]) Update(ctx context.Context, owner, id primitive.ObjectID, set bson.M) (*T, error) {
	fields := bson.M{"updatedAt": o.now()}
	for k, v := range set {
		if k == "_id" || k == repository.OwnerField {
			continue
		}
		fields[k] = v
	}
	return o.findOneAndUpdate(ctx, scoped(owner, bson.M{"_id": id}), bson.M{"$set": fields})
}

func (o *ownedCollection[T]) findOneAndUpdate(ctx context.Context, filter, update bson.M) (*T, error) {
	out := new(T)
	err := o.coll.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(out)
	if err != nil {
		return nil, translate("update", o.coll.Name(), err)
	}
	return out, nil
}

func (o *ownedCollection[T]) Delete(ctx context.Context, owner, id primitive.ObjectID) (*T, error) {
	out := new(T)
	if err := o.coll.FindOneAndDelete(ctx, scoped(owner, bson.M{"_id": id})).Decode(out); err != nil {
		return nil, translate("delete", o.coll.Name(), err)
	}
	return out, nil
}

func (o *ownedCollection[T]) Exists(ctx context.Context, owner primitive.ObjectID, filter bson.M, exclude primitive.ObjectID) (bool, error) {
	return exists(ctx, o.coll, withExclusion(scoped(owner, filter), exclude))
}

func withExclusion(filter bson.M, exclude primitive.ObjectID) bson.M {
	if !exclude.IsZero() {
		filter["_id"] = bson.M{"$ne": exclude}
	}
	return filter
}

func exists(ctx context.Context, coll *mongo.Collection, filter bson.M) (bool, error) {
	n, err := coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, translate("count", coll.Name(), err)
	}
	return n > 0, nil
}

type cattleStore struct {
	*ownedCollection[models.Cattle]
}

func (c *cattleStore) AppendHealthNote(ctx context.Context, owner, id primitive.ObjectID, note models.HealthNote) (*models.Cattle, error) {
	return c.findOneAndUpdate(ctx, scoped(owner, bson.M{"_id": id}), bson.M{
		"$push": bson.M{"healthRecords": note},
		"$set":  bson.M{"updatedAt": c.now()},
	})
}

type feedStore struct {
	*ownedCollection[models.Feed]
}

// AdjustQuantity guards the decrement in the filter so the check and the
// write happen in one document update.
func (f *feedStore) AdjustQuantity(ctx context.Context, owner, id primitive.ObjectID, delta float64) (*models.Feed, error) {
	filter := scoped(owner, bson.M{"_id": id})
	if delta < 0 {
		filter["quantity"] = bson.M{"$gte": -delta}
	}

	feed, err := f.findOneAndUpdate(ctx, filter, bson.M{
		"$inc": bson.M{"quantity": delta},
		"$set": bson.M{"updatedAt": f.now()},
	})
	if !errors.Is(err, repository.ErrNotFound) {
		return feed, err
	}

	// Nothing matched: either the feed is missing or the guard rejected it.
	if _, getErr := f.Get(ctx, owner, id); getErr != nil {
		return nil, getErr
	}
	return nil, repository.ErrConditionFailed
}

var lowStockExpr = bson.M{"$expr": bson.M{"$lte": bson.A{"$quantity", "$stockAlert"}}}

func (f *feedStore) LowStock(ctx context.Context, owner primitive.ObjectID) ([]models.Feed, error) {
	return f.findAll(ctx, scoped(owner, lowStockExpr), options.Find())
}

func (f *feedStore) LowStockAll(ctx context.Context) ([]models.Feed, error) {
	return f.findAll(ctx, lowStockExpr, options.Find().SetSort(bson.D{{Key: repository.OwnerField, Value: 1}}))
}
