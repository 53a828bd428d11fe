package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/farmhub/internal/domain/models"
)

type userStore struct {
	coll *mongo.Collection
	now  func() time.Time
}

func (u *userStore) Create(ctx context.Context, user *models.User) error {
	_, err := u.coll.InsertOne(ctx, user)
	return translate("insert", u.coll.Name(), err)
}

func (u *userStore) Get(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return u.FindOne(ctx, bson.M{"_id": id})
}

func (u *userStore) FindOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	if err := u.coll.FindOne(ctx, filter).Decode(&user); err != nil {
		return nil, translate("find", u.coll.Name(), err)
	}
	return &user, nil
}

func (u *userStore) Exists(ctx context.Context, filter bson.M, exclude primitive.ObjectID) (bool, error) {
	scopedFilter := bson.M{}
	for k, v := range filter {
		scopedFilter[k] = v
	}
	return exists(ctx, u.coll, withExclusion(scopedFilter, exclude))
}

func (u *userStore) Update(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.User, error) {
	fields := bson.M{"updatedAt": u.now()}
	for k, v := range set {
		if k != "_id" {
			fields[k] = v
		}
	}
	var user models.User
	err := u.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": fields},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&user)
	if err != nil {
		return nil, translate("update", u.coll.Name(), err)
	}
	return &user, nil
}

type farmStore struct {
	coll *mongo.Collection
	now  func() time.Time
}

func (f *farmStore) Create(ctx context.Context, farm *models.Farm) error {
	_, err := f.coll.InsertOne(ctx, farm)
	return translate("insert", f.coll.Name(), err)
}

func (f *farmStore) FindByOwner(ctx context.Context, owner primitive.ObjectID) (*models.Farm, error) {
	var farm models.Farm
	if err := f.coll.FindOne(ctx, bson.M{"owner": owner}).Decode(&farm); err != nil {
		return nil, translate("find", f.coll.Name(), err)
	}
	return &farm, nil
}

func (f *farmStore) CodeExists(ctx context.Context, code string) (bool, error) {
	return exists(ctx, f.coll, bson.M{"farm_code": code})
}

func (f *farmStore) Rename(ctx context.Context, owner primitive.ObjectID, name string) error {
	res, err := f.coll.UpdateOne(ctx, bson.M{"owner": owner},
		bson.M{"$set": bson.M{"farm_name": name, "updatedAt": f.now()}})
	if err != nil {
		return translate("update", f.coll.Name(), err)
	}
	if res.MatchedCount == 0 {
		return translate("update", f.coll.Name(), mongo.ErrNoDocuments)
	}
	return nil
}

func (f *farmStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := f.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translate("delete", f.coll.Name(), err)
	}
	if res.DeletedCount == 0 {
		return translate("delete", f.coll.Name(), mongo.ErrNoDocuments)
	}
	return nil
}
