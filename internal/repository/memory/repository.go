// Package memory is an in-process implementation of the repository
// contracts with the same ownership, uniqueness and atomicity semantics as
// the MongoDB backend. It backs STORAGE_DRIVER=memory and the test suites.
package memory

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/farmhub/internal/domain/models"
	"github.com/mamadbah2/farmhub/internal/repository"
)

// Repository holds every collection in memory.
type Repository struct {
	users    *userStore
	farms    *farmStore
	cattle   *cattleStore
	feed     *feedStore
	health   *ownedStore[models.HealthRecord]
	finances *ownedStore[models.Finance]
}

var _ repository.Store = (*Repository)(nil)

// New builds an empty repository.
func New() *Repository {
	return NewWithClock(time.Now)
}

// NewWithClock builds an empty repository stamping updates with now.
func NewWithClock(now func() time.Time) *Repository {
	return &Repository{
		users: &userStore{
			coll: newCollection([]string{"username"}, []string{"email"}, []string{"farm_code"}),
			now:  now,
		},
		farms:    &farmStore{coll: newCollection([]string{"farm_code"}), now: now},
		cattle:   &cattleStore{newOwnedStore[models.Cattle](now, []string{repository.OwnerField, "tag_number"})},
		feed:     &feedStore{newOwnedStore[models.Feed](now)},
		health:   newOwnedStore[models.HealthRecord](now),
		finances: newOwnedStore[models.Finance](now),
	}
}

func (r *Repository) Users() repository.UserStore       { return r.users }
func (r *Repository) Farms() repository.FarmStore       { return r.farms }
func (r *Repository) Cattle() repository.CattleStore    { return r.cattle }
func (r *Repository) Feed() repository.FeedStore        { return r.feed }
func (r *Repository) Health() repository.HealthStore    { return r.health }
func (r *Repository) Finances() repository.FinanceStore { return r.finances }

// Close is a no-op.
func (r *Repository) Close(context.Context) error { return nil }

type userStore struct {
	coll *collection
	now  func() time.Time
}

func (s *userStore) Create(_ context.Context, user *models.User) error {
	return s.coll.insert(user)
}

func (s *userStore) Get(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	m, err := s.coll.findOne(query{filter: bson.M{"_id": id}})
	if err != nil {
		return nil, err
	}
	return fromDoc[models.User](m)
}

func (s *userStore) FindOne(_ context.Context, filter bson.M) (*models.User, error) {
	m, err := s.coll.findOne(query{filter: filter})
	if err != nil {
		return nil, err
	}
	return fromDoc[models.User](m)
}

func (s *userStore) Exists(_ context.Context, filter bson.M, exclude primitive.ObjectID) (bool, error) {
	return s.coll.exists(query{filter: filter, where: excluding(exclude)})
}

func (s *userStore) Update(_ context.Context, id primitive.ObjectID, set bson.M) (*models.User, error) {
	m, err := s.coll.mutate(query{filter: bson.M{"_id": id}}, func(doc bson.M) error {
		for k, v := range set {
			if k == "_id" {
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
	return fromDoc[models.User](m)
}

type farmStore struct {
	coll *collection
	now  func() time.Time
}

func (s *farmStore) Create(_ context.Context, farm *models.Farm) error {
	return s.coll.insert(farm)
}

func (s *farmStore) FindByOwner(_ context.Context, owner primitive.ObjectID) (*models.Farm, error) {
	m, err := s.coll.findOne(query{filter: bson.M{"owner": owner}})
	if err != nil {
		return nil, err
	}
	return fromDoc[models.Farm](m)
}

func (s *farmStore) CodeExists(_ context.Context, code string) (bool, error) {
	return s.coll.exists(query{filter: bson.M{"farm_code": code}})
}

func (s *farmStore) Rename(_ context.Context, owner primitive.ObjectID, name string) error {
	_, err := s.coll.mutate(query{filter: bson.M{"owner": owner}}, func(doc bson.M) error {
		doc["farm_name"] = name
		doc["updatedAt"] = s.now()
		return nil
	})
	return err
}

func (s *farmStore) Delete(_ context.Context, id primitive.ObjectID) error {
	_, err := s.coll.remove(query{filter: bson.M{"_id": id}})
	return err
}
