package health

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmhub/internal/domain/apperr"
	"github.com/mamadbah2/farmhub/internal/domain/models"
	"github.com/mamadbah2/farmhub/internal/repository"
	"github.com/mamadbah2/farmhub/internal/service/ownership"
)

const (
	errMissingFields  = "Missing required fields: cattleId, type, and description are required"
	errHealthType     = "Type must be one of Vaccination, Treatment, Check-up, Disease, Other"
	errCattleNotFound = "Cattle not found or unauthorized"
)

// CreateInput is the payload accepted when recording a health event.
type CreateInput struct {
	CattleID        string            `json:"cattleId"`
	Date            *models.Date      `json:"date"`
	Type            models.HealthType `json:"type"`
	Description     string            `json:"description"`
	Medicines       []models.Medicine `json:"medicines"`
	Veterinarian    string            `json:"veterinarian"`
	NextCheckupDate *models.Date      `json:"nextCheckupDate"`
	Cost            *float64          `json:"cost"`
}

// UpdateInput carries the fields a client may change.
type UpdateInput struct {
	CattleID        *string            `json:"cattleId"`
	Date            *models.Date       `json:"date"`
	Type            *models.HealthType `json:"type"`
	Description     *string            `json:"description"`
	Medicines       []models.Medicine  `json:"medicines"`
	Veterinarian    *string            `json:"veterinarian"`
	NextCheckupDate *models.Date       `json:"nextCheckupDate"`
	Cost            *float64           `json:"cost"`
}

// ListQuery holds the raw list parameters. Unknown values are ignored.
type ListQuery struct {
	Type string `form:"type"`
	Sort string `form:"sort"`
}

// Service manages standalone health records. Every record references an
// animal of the same owner.
type Service struct {
	store  repository.HealthStore
	cattle repository.CattleStore
	scoped *ownership.Scoped[models.HealthRecord]
	logger *zap.Logger
	now    ownership.Clock
}

// NewService wires a new health service instance.
func NewService(store repository.HealthStore, cattle repository.CattleStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:  store,
		cattle: cattle,
		scoped: ownership.New[models.HealthRecord](store, "Health record"),
		logger: logger,
	}
}

func (s *Service) Create(ctx context.Context, owner primitive.ObjectID, in CreateInput) (*models.HealthRecordView, error) {
	in.Description = strings.TrimSpace(in.Description)
	if strings.TrimSpace(in.CattleID) == "" || in.Type == "" || in.Description == "" {
		return nil, apperr.Validation(errMissingFields)
	}
	if !in.Type.Valid() {
		return nil, apperr.Validation(errHealthType)
	}
	if in.Cost != nil && *in.Cost < 0 {
		return nil, apperr.Validation("Cost cannot be negative")
	}
	animal, err := s.ownedCattle(ctx, owner, in.CattleID)
	if err != nil {
		return nil, err
	}

	now := s.now.Now()
	date := now
	if in.Date != nil {
		date = ownership.Normalize(in.Date.Time)
	}
	record := &models.HealthRecord{
		ID:              primitive.NewObjectID(),
		CattleID:        animal.ID,
		Date:            date,
		Type:            in.Type,
		Description:     in.Description,
		Medicines:       in.Medicines,
		Veterinarian:    in.Veterinarian,
		NextCheckupDate: ownership.NormalizePtr(in.NextCheckupDate.Ptr()),
		Cost:            in.Cost,
		CreatedBy:       owner,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.Insert(ctx, record); err != nil {
		return nil, s.scoped.Translate("create", err)
	}

	s.logger.Info("health record added",
		zap.String("owner", owner.Hex()),
		zap.String("cattle_id", animal.ID.Hex()),
		zap.String("type", string(record.Type)))
	return &models.HealthRecordView{HealthRecord: *record, Cattle: animal.Ref()}, nil
}

// List returns the owner's records with their cattle summary attached.
func (s *Service) List(ctx context.Context, owner primitive.ObjectID, q ListQuery) ([]models.HealthRecordView, error) {
	var opts repository.ListOptions
	if q.Type != "" {
		opts.Filter = bson.M{"type": q.Type}
	}
	switch q.Sort {
	case "recent":
		opts.SortField, opts.SortOrder = "date", repository.Descending
	case "old":
		opts.SortField, opts.SortOrder = "date", repository.Ascending
	}
	records, err := s.scoped.List(ctx, owner, opts)
	if err != nil {
		return nil, err
	}
	return s.attachCattle(ctx, owner, records)
}

// ListByCattle returns the records of one animal, newest first.
func (s *Service) ListByCattle(ctx context.Context, owner primitive.ObjectID, cattleID string) ([]models.HealthRecord, error) {
	animal, err := s.ownedCattle(ctx, owner, cattleID)
	if err != nil {
		return nil, err
	}
	return s.scoped.List(ctx, owner, repository.ListOptions{
		Filter:    bson.M{"cattleId": animal.ID},
		SortField: "date",
		SortOrder: repository.Descending,
	})
}

func (s *Service) Get(ctx context.Context, owner primitive.ObjectID, id string) (*models.HealthRecordView, error) {
	record, err := s.scoped.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, owner, record)
}

// Update applies the non-nil fields of in. Moving a record to another
// animal repeats the ownership check for the new animal.
func (s *Service) Update(ctx context.Context, owner primitive.ObjectID, id string, in UpdateInput) (*models.HealthRecordView, error) {
	set := bson.M{}
	if in.CattleID != nil {
		animal, err := s.ownedCattle(ctx, owner, *in.CattleID)
		if err != nil {
			return nil, err
		}
		set["cattleId"] = animal.ID
	}
	if in.Type != nil {
		if !in.Type.Valid() {
			return nil, apperr.Validation(errHealthType)
		}
		set["type"] = *in.Type
	}
	if in.Description != nil {
		if strings.TrimSpace(*in.Description) == "" {
			return nil, apperr.Validation("Description cannot be empty")
		}
		set["description"] = strings.TrimSpace(*in.Description)
	}
	if in.Date != nil {
		set["date"] = ownership.Normalize(in.Date.Time)
	}
	if in.Medicines != nil {
		set["medicines"] = in.Medicines
	}
	if in.Veterinarian != nil {
		set["veterinarian"] = *in.Veterinarian
	}
	if in.NextCheckupDate != nil {
		set["nextCheckupDate"] = ownership.Normalize(in.NextCheckupDate.Time)
	}
	if in.Cost != nil {
		if *in.Cost < 0 {
			return nil, apperr.Validation("Cost cannot be negative")
		}
		set["cost"] = *in.Cost
	}

	record, err := s.scoped.Update(ctx, owner, id, set)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, owner, record)
}

func (s *Service) Delete(ctx context.Context, owner primitive.ObjectID, id string) (*models.HealthRecord, error) {
	return s.scoped.Delete(ctx, owner, id)
}

func (s *Service) ownedCattle(ctx context.Context, owner primitive.ObjectID, rawID string) (*models.Cattle, error) {
	id, ok := ownership.ParseID(strings.TrimSpace(rawID))
	if !ok {
		return nil, apperr.NotFound(errCattleNotFound)
	}
	animal, err := s.cattle.Get(ctx, owner, id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, apperr.NotFound(errCattleNotFound)
	case err != nil:
		return nil, fmt.Errorf("lookup cattle: %w", err)
	}
	return animal, nil
}

func (s *Service) view(ctx context.Context, owner primitive.ObjectID, record *models.HealthRecord) (*models.HealthRecordView, error) {
	views, err := s.attachCattle(ctx, owner, []models.HealthRecord{*record})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// attachCattle resolves the cattle summaries in one lookup. A record whose
// animal has since been deleted is returned without a summary.
func (s *Service) attachCattle(ctx context.Context, owner primitive.ObjectID, records []models.HealthRecord) ([]models.HealthRecordView, error) {
	ids := make([]primitive.ObjectID, 0, len(records))
	seen := make(map[primitive.ObjectID]struct{}, len(records))
	for _, r := range records {
		if _, ok := seen[r.CattleID]; ok {
			continue
		}
		seen[r.CattleID] = struct{}{}
		ids = append(ids, r.CattleID)
	}

	herd, err := s.cattle.FindByIDs(ctx, owner, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve cattle: %w", err)
	}
	refs := make(map[primitive.ObjectID]*models.CattleRef, len(herd))
	for _, c := range herd {
		refs[c.ID] = c.Ref()
	}

	views := make([]models.HealthRecordView, len(records))
	for i, r := range records {
		views[i] = models.HealthRecordView{HealthRecord: r, Cattle: refs[r.CattleID]}
	}
	return views, nil
}
