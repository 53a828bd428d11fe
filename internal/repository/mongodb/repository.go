package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmhub/internal/config"
	"github.com/mamadbah2/farmhub/internal/domain/models"
	"github.com/mamadbah2/farmhub/internal/repository"
)

// Collection names.
const (
	usersCollection    = "users"
	farmsCollection    = "farms"
	cattleCollection   = "cattle"
	feedCollection     = "feed"
	healthCollection   = "health"
	financesCollection = "finances"
)

// MongoDBRepository implements repository.Store for MongoDB.
type MongoDBRepository struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger

	users    *userStore
	farms    *farmStore
	cattle   *cattleStore
	feed     *feedStore
	health   *ownedCollection[models.HealthRecord]
	finances *ownedCollection[models.Finance]
}

var _ repository.Store = (*MongoDBRepository)(nil)

// NewMongoDBRepository connects, verifies the connection and ensures indexes.
func NewMongoDBRepository(ctx context.Context, cfg config.MongoDBConfig, logger *zap.Logger) (*MongoDBRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	clientOptions := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(20).
		SetMinPoolSize(1).
		SetMaxConnIdleTime(30 * time.Minute).
		SetServerSelectionTimeout(5 * time.Second).
		SetConnectTimeout(10 * time.Second)

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	repo := newRepository(client, client.Database(cfg.DBName), logger, time.Now)
	if err := repo.ensureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	logger.Info("connected to mongodb", zap.String("database", cfg.DBName))
	return repo, nil
}

func newRepository(client *mongo.Client, db *mongo.Database, logger *zap.Logger, now func() time.Time) *MongoDBRepository {
	return &MongoDBRepository{
		client:   client,
		db:       db,
		logger:   logger,
		users:    &userStore{coll: db.Collection(usersCollection), now: now},
		farms:    &farmStore{coll: db.Collection(farmsCollection), now: now},
		cattle:   &cattleStore{newOwnedCollection[models.Cattle](db.Collection(cattleCollection), now)},
		feed:     &feedStore{newOwnedCollection[models.Feed](db.Collection(feedCollection), now)},
		health:   newOwnedCollection[models.HealthRecord](db.Collection(healthCollection), now),
		finances: newOwnedCollection[models.Finance](db.Collection(financesCollection), now),
	}
}

func (r *MongoDBRepository) Users() repository.UserStore       { return r.users }
func (r *MongoDBRepository) Farms() repository.FarmStore       { return r.farms }
func (r *MongoDBRepository) Cattle() repository.CattleStore    { return r.cattle }
func (r *MongoDBRepository) Feed() repository.FeedStore        { return r.feed }
func (r *MongoDBRepository) Health() repository.HealthStore    { return r.health }
func (r *MongoDBRepository) Finances() repository.FinanceStore { return r.finances }

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	if err := r.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect mongodb: %w", err)
	}
	r.logger.Info("disconnected from mongodb")
	return nil
}
