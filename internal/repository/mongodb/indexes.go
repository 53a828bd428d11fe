package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmhub/internal/repository"
)

// The unique indexes are the race-safe guarantee behind the service pre-checks.
var collectionIndexes = map[string][]mongo.IndexModel{
	usersCollection: {
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "farm_code", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
	},
	farmsCollection: {
		{Keys: bson.D{{Key: "farm_code", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "owner", Value: 1}}},
	},
	cattleCollection: {
		{Keys: bson.D{{Key: repository.OwnerField, Value: 1}, {Key: "tag_number", Value: 1}}, Options: options.Index().SetUnique(true)},
	},
	feedCollection: {
		{Keys: bson.D{{Key: repository.OwnerField, Value: 1}, {Key: "type", Value: 1}}},
	},
	healthCollection: {
		{Keys: bson.D{{Key: repository.OwnerField, Value: 1}, {Key: "cattleId", Value: 1}, {Key: "date", Value: -1}}},
	},
	financesCollection: {
		{Keys: bson.D{{Key: repository.OwnerField, Value: 1}, {Key: "date", Value: -1}}},
	},
}

func (r *MongoDBRepository) ensureIndexes(ctx context.Context) error {
	for name, indexes := range collectionIndexes {
		created, err := r.db.Collection(name).Indexes().CreateMany(ctx, indexes)
		if err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
		r.logger.Debug("indexes ensured", zap.String("collection", name), zap.Strings("indexes", created))
	}
	return nil
}
