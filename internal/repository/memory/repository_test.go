package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/farmhub/internal/domain/models"
	"github.com/mamadbah2/farmhub/internal/repository"
)

func intPtr(v int) *int { return &v }

func newCattle(owner primitive.ObjectID, name, tag string, gender models.Gender, age int) *models.Cattle {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &models.Cattle{
		ID:        primitive.NewObjectID(),
		Name:      name,
		Breed:     "Jersey",
		Age:       intPtr(age),
		Gender:    gender,
		TagNumber: tag,
		CreatedBy: owner,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestOwnedStoreScopesByOwner(t *testing.T) {
	ctx := context.Background()
	repo := New()
	alice, bob := primitive.NewObjectID(), primitive.NewObjectID()

	bessie := newCattle(alice, "Bessie", "T1", models.GenderFemale, 3)
	require.NoError(t, repo.Cattle().Insert(ctx, bessie))

	got, err := repo.Cattle().Get(ctx, alice, bessie.ID)
	require.NoError(t, err)
	assert.Equal(t, *bessie, *got)

	_, err = repo.Cattle().Get(ctx, bob, bessie.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repo.Cattle().Update(ctx, bob, bessie.ID, bson.M{"name": "Stolen"})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repo.Cattle().Delete(ctx, bob, bessie.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	list, err := repo.Cattle().Find(ctx, bob, repository.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestOwnedStoreUniquePerOwner(t *testing.T) {
	ctx := context.Background()
	repo := New()
	alice, bob := primitive.NewObjectID(), primitive.NewObjectID()

	require.NoError(t, repo.Cattle().Insert(ctx, newCattle(alice, "Bessie", "T1", models.GenderFemale, 3)))
	err := repo.Cattle().Insert(ctx, newCattle(alice, "Daisy", "T1", models.GenderFemale, 2))
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	// Tag numbers are only unique within one owner's herd.
	require.NoError(t, repo.Cattle().Insert(ctx, newCattle(bob, "Bessie", "T1", models.GenderFemale, 3)))

	second := newCattle(alice, "Daisy", "T2", models.GenderFemale, 2)
	require.NoError(t, repo.Cattle().Insert(ctx, second))
	_, err = repo.Cattle().Update(ctx, alice, second.ID, bson.M{"tag_number": "T1"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	stored, err := repo.Cattle().Get(ctx, alice, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "T2", stored.TagNumber)
}

func TestFindFilterSortExclude(t *testing.T) {
	ctx := context.Background()
	repo := New()
	owner := primitive.NewObjectID()

	for _, c := range []*models.Cattle{
		newCattle(owner, "Old", "T1", models.GenderFemale, 9),
		newCattle(owner, "Young", "T2", models.GenderMale, 1),
		newCattle(owner, "Mid", "T3", models.GenderFemale, 4),
	} {
		require.NoError(t, repo.Cattle().Insert(ctx, c))
	}

	list, err := repo.Cattle().Find(ctx, owner, repository.ListOptions{SortField: "age", SortOrder: repository.Ascending})
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"Young", "Mid", "Old"}, []string{list[0].Name, list[1].Name, list[2].Name})

	list, err = repo.Cattle().Find(ctx, owner, repository.ListOptions{
		Filter:    bson.M{"gender": models.GenderFemale},
		SortField: "age",
		SortOrder: repository.Descending,
	})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Old", list[0].Name)

	first := list[0]
	_, err = repo.Cattle().AppendHealthNote(ctx, owner, first.ID, models.HealthNote{Date: time.Now(), Notes: "limp"})
	require.NoError(t, err)

	list, err = repo.Cattle().Find(ctx, owner, repository.ListOptions{Exclude: []string{"healthRecords"}})
	require.NoError(t, err)
	for _, c := range list {
		assert.Empty(t, c.HealthRecords)
	}
}

func TestAppendHealthNotePreservesOrder(t *testing.T) {
	ctx := context.Background()
	repo := New()
	owner := primitive.NewObjectID()
	cow := newCattle(owner, "Bessie", "T1", models.GenderFemale, 3)
	require.NoError(t, repo.Cattle().Insert(ctx, cow))

	_, err := repo.Cattle().AppendHealthNote(ctx, owner, cow.ID, models.HealthNote{Date: time.Now(), Notes: "first"})
	require.NoError(t, err)
	updated, err := repo.Cattle().AppendHealthNote(ctx, owner, cow.ID, models.HealthNote{Date: time.Now(), Notes: "second"})
	require.NoError(t, err)

	require.Len(t, updated.HealthRecords, 2)
	assert.Equal(t, "first", updated.HealthRecords[0].Notes)
	assert.Equal(t, "second", updated.HealthRecords[1].Notes)

	_, err = repo.Cattle().AppendHealthNote(ctx, primitive.NewObjectID(), cow.ID, models.HealthNote{Notes: "x"})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func newFeed(owner primitive.ObjectID, quantity, alert float64) *models.Feed {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &models.Feed{
		ID:           primitive.NewObjectID(),
		Name:         "Hay",
		Type:         models.FeedFodder,
		Quantity:     quantity,
		Unit:         models.UnitKilogram,
		Cost:         12,
		StockAlert:   alert,
		PurchaseDate: now,
		CreatedBy:    owner,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestAdjustQuantityNeverNegative(t *testing.T) {
	ctx := context.Background()
	repo := New()
	owner := primitive.NewObjectID()
	feed := newFeed(owner, 100, 10)
	require.NoError(t, repo.Feed().Insert(ctx, feed))

	_, err := repo.Feed().AdjustQuantity(ctx, owner, feed.ID, -150)
	assert.ErrorIs(t, err, repository.ErrConditionFailed)

	stored, err := repo.Feed().Get(ctx, owner, feed.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, stored.Quantity)

	_, err = repo.Feed().AdjustQuantity(ctx, primitive.NewObjectID(), feed.ID, 5)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAdjustQuantityConcurrentSubtract(t *testing.T) {
	ctx := context.Background()
	repo := New()
	owner := primitive.NewObjectID()
	feed := newFeed(owner, 50, 0)
	require.NoError(t, repo.Feed().Insert(ctx, feed))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		applied int
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.Feed().AdjustQuantity(ctx, owner, feed.ID, -1); err == nil {
				mu.Lock()
				applied++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, applied)
	stored, err := repo.Feed().Get(ctx, owner, feed.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, stored.Quantity)
}

func TestLowStock(t *testing.T) {
	ctx := context.Background()
	repo := New()
	alice, bob := primitive.NewObjectID(), primitive.NewObjectID()

	require.NoError(t, repo.Feed().Insert(ctx, newFeed(alice, 5, 10)))
	require.NoError(t, repo.Feed().Insert(ctx, newFeed(alice, 10, 10)))
	require.NoError(t, repo.Feed().Insert(ctx, newFeed(alice, 50, 10)))
	require.NoError(t, repo.Feed().Insert(ctx, newFeed(bob, 1, 2)))

	low, err := repo.Feed().LowStock(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, low, 2)

	all, err := repo.Feed().LowStockAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestFindByIDsAndExists(t *testing.T) {
	ctx := context.Background()
	repo := New()
	alice, bob := primitive.NewObjectID(), primitive.NewObjectID()

	a := newCattle(alice, "A", "T1", models.GenderMale, 1)
	b := newCattle(alice, "B", "T2", models.GenderMale, 1)
	c := newCattle(bob, "C", "T3", models.GenderMale, 1)
	for _, cow := range []*models.Cattle{a, b, c} {
		require.NoError(t, repo.Cattle().Insert(ctx, cow))
	}

	found, err := repo.Cattle().FindByIDs(ctx, alice, []primitive.ObjectID{a.ID, c.ID})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, a.ID, found[0].ID)

	ok, err := repo.Cattle().Exists(ctx, alice, bson.M{"tag_number": "T1"}, primitive.NilObjectID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Cattle().Exists(ctx, alice, bson.M{"tag_number": "T1"}, a.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUserAndFarmUniqueness(t *testing.T) {
	ctx := context.Background()
	repo := New()

	alice := &models.User{ID: primitive.NewObjectID(), Username: "alice", Email: "alice@x.com", Password: "h"}
	require.NoError(t, repo.Users().Create(ctx, alice))

	dupName := &models.User{ID: primitive.NewObjectID(), Username: "alice", Email: "other@x.com", Password: "h"}
	assert.ErrorIs(t, repo.Users().Create(ctx, dupName), repository.ErrDuplicate)

	dupEmail := &models.User{ID: primitive.NewObjectID(), Username: "al", Email: "alice@x.com", Password: "h"}
	assert.ErrorIs(t, repo.Users().Create(ctx, dupEmail), repository.ErrDuplicate)

	// Users without a farm code do not collide on the sparse key.
	bob := &models.User{ID: primitive.NewObjectID(), Username: "bob", Email: "bob@x.com", Password: "h"}
	require.NoError(t, repo.Users().Create(ctx, bob))

	updated, err := repo.Users().Update(ctx, bob.ID, bson.M{"farm_name": "Green Acres"})
	require.NoError(t, err)
	assert.Equal(t, "Green Acres", updated.FarmName)

	farm := &models.Farm{ID: primitive.NewObjectID(), FarmName: "Hill", FarmCode: "abcd1234", Owner: alice.ID}
	require.NoError(t, repo.Farms().Create(ctx, farm))
	dupFarm := &models.Farm{ID: primitive.NewObjectID(), FarmName: "Dale", FarmCode: "abcd1234", Owner: bob.ID}
	assert.ErrorIs(t, repo.Farms().Create(ctx, dupFarm), repository.ErrDuplicate)

	exists, err := repo.Farms().CodeExists(ctx, "abcd1234")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, repo.Farms().Rename(ctx, alice.ID, "Hilltop"))
	got, err := repo.Farms().FindByOwner(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hilltop", got.FarmName)

	assert.ErrorIs(t, repo.Farms().Rename(ctx, primitive.NewObjectID(), "x"), repository.ErrNotFound)

	require.NoError(t, repo.Farms().Delete(ctx, farm.ID))
	exists, err = repo.Farms().CodeExists(ctx, "abcd1234")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.ErrorIs(t, repo.Farms().Delete(ctx, farm.ID), repository.ErrNotFound)
}
