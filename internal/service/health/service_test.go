package health

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap/zaptest"

	"github.com/mamadbah2/farmhub/internal/domain/apperr"
	"github.com/mamadbah2/farmhub/internal/domain/models"
	"github.com/mamadbah2/farmhub/internal/repository/memory"
)

var fixedNow = time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc   *Service
	repo  *memory.Repository
	owner primitive.ObjectID
	cow   *models.Cattle
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	clock := func() time.Time { return fixedNow }
	repo := memory.NewWithClock(clock)
	svc := NewService(repo.Health(), repo.Cattle(), zaptest.NewLogger(t))
	svc.now = clock

	owner := primitive.NewObjectID()
	cow := &models.Cattle{
		ID: primitive.NewObjectID(), Name: "Bessie", Breed: "Jersey",
		Gender: models.GenderFemale, TagNumber: "T1", CreatedBy: owner,
		CreatedAt: fixedNow, UpdatedAt: fixedNow,
	}
	require.NoError(t, repo.Cattle().Insert(context.Background(), cow))
	return fixture{svc: svc, repo: repo, owner: owner, cow: cow}
}

func (f fixture) record(t *testing.T, date time.Time, typ models.HealthType) *models.HealthRecordView {
	t.Helper()
	view, err := f.svc.Create(context.Background(), f.owner, CreateInput{
		CattleID:    f.cow.ID.Hex(),
		Date:        &models.Date{Time: date},
		Type:        typ,
		Description: "routine",
	})
	require.NoError(t, err)
	return view
}

func TestCreateAttachesCattleSummary(t *testing.T) {
	f := newFixture(t)
	view := f.record(t, fixedNow.Add(-time.Hour), models.HealthVaccination)

	require.NotNil(t, view.Cattle)
	assert.Equal(t, f.cow.ID, view.Cattle.ID)
	assert.Equal(t, "T1", view.Cattle.TagNumber)
	assert.Equal(t, f.owner, view.CreatedBy)

	got, err := f.svc.Get(context.Background(), f.owner, view.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, view, got)
}

func TestCreateRejectsForeignCattle(t *testing.T) {
	f := newFixture(t)
	intruder := primitive.NewObjectID()

	for _, cattleID := range []string{f.cow.ID.Hex(), "garbage"} {
		_, err := f.svc.Create(context.Background(), intruder, CreateInput{
			CattleID: cattleID, Type: models.HealthTreatment, Description: "sneaky",
		})
		appErr, ok := apperr.As(err)
		require.True(t, ok)
		assert.Equal(t, apperr.KindNotFound, appErr.Kind)
		assert.Equal(t, errCattleNotFound, appErr.Message)
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.owner, CreateInput{CattleID: f.cow.ID.Hex(), Type: models.HealthOther})
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, errMissingFields, appErr.Message)

	_, err = f.svc.Create(ctx, f.owner, CreateInput{CattleID: f.cow.ID.Hex(), Type: "Surgery", Description: "x"})
	appErr, ok = apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, errHealthType, appErr.Message)
}

func TestListSortsByDateAndFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	oldest := f.record(t, fixedNow.Add(-72*time.Hour), models.HealthCheckup)
	newest := f.record(t, fixedNow.Add(-1*time.Hour), models.HealthVaccination)
	middle := f.record(t, fixedNow.Add(-24*time.Hour), models.HealthVaccination)

	recent, err := f.svc.List(ctx, f.owner, ListQuery{Sort: "recent"})
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, []primitive.ObjectID{newest.ID, middle.ID, oldest.ID},
		[]primitive.ObjectID{recent[0].ID, recent[1].ID, recent[2].ID})
	for _, v := range recent {
		require.NotNil(t, v.Cattle)
		assert.Equal(t, "Bessie", v.Cattle.Name)
	}

	vaccinations, err := f.svc.List(ctx, f.owner, ListQuery{Type: string(models.HealthVaccination), Sort: "old"})
	require.NoError(t, err)
	require.Len(t, vaccinations, 2)
	assert.Equal(t, middle.ID, vaccinations[0].ID)

	byCattle, err := f.svc.ListByCattle(ctx, f.owner, f.cow.ID.Hex())
	require.NoError(t, err)
	require.Len(t, byCattle, 3)
	assert.Equal(t, newest.ID, byCattle[0].ID)

	_, err = f.svc.ListByCattle(ctx, primitive.NewObjectID(), f.cow.ID.Hex())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestUpdateChecksNewCattleOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	view := f.record(t, fixedNow, models.HealthDisease)

	foreign := &models.Cattle{ID: primitive.NewObjectID(), Name: "Other", TagNumber: "X", Gender: models.GenderMale, CreatedBy: primitive.NewObjectID()}
	require.NoError(t, f.repo.Cattle().Insert(ctx, foreign))

	foreignID := foreign.ID.Hex()
	_, err := f.svc.Update(ctx, f.owner, view.ID.Hex(), UpdateInput{CattleID: &foreignID})
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, errCattleNotFound, appErr.Message)

	vet := "Dr. Diallo"
	updated, err := f.svc.Update(ctx, f.owner, view.ID.Hex(), UpdateInput{Veterinarian: &vet})
	require.NoError(t, err)
	assert.Equal(t, vet, updated.Veterinarian)
	assert.Equal(t, f.cow.ID, updated.CattleID)
}

func TestDeletedCattleLeavesRecordWithoutSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	view := f.record(t, fixedNow, models.HealthOther)

	_, err := f.repo.Cattle().Delete(ctx, f.owner, f.cow.ID)
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, f.owner, view.ID.Hex())
	require.NoError(t, err)
	assert.Nil(t, got.Cattle)

	deleted, err := f.svc.Delete(ctx, f.owner, view.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, view.ID, deleted.ID)

	_, err = f.svc.Get(ctx, f.owner, view.ID.Hex())
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "Health record not found", appErr.Message)
}
