package cattle

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
	errMissingFields = "Missing required fields: name, breed, gender, and tag_number are required"
	errGender        = "Gender must be either Male or Female"
	errTagTaken      = "Tag number already exists"
	errNotesRequired = "Notes are required for health record"
	errNegativeAge   = "Age cannot be negative"
)

// CreateInput is the payload accepted when registering an animal.
type CreateInput struct {
	Name      string        `json:"name"`
	Breed     string        `json:"breed"`
	Age       *int          `json:"age"`
	Gender    models.Gender `json:"gender"`
	TagNumber string        `json:"tag_number"`
	ImageURL  string        `json:"imageUrl"`
}

// UpdateInput carries the fields a client may change. Nil fields are left as is.
type UpdateInput struct {
	Name      *string        `json:"name"`
	Breed     *string        `json:"breed"`
	Age       *int           `json:"age"`
	Gender    *models.Gender `json:"gender"`
	TagNumber *string        `json:"tag_number"`
	ImageURL  *string        `json:"imageUrl"`
}

// ListQuery holds the raw list parameters. Unknown values are ignored.
type ListQuery struct {
	Filter string `form:"filter"`
	Sort   string `form:"sort"`
}

// Service manages the cattle herd of each user.
type Service struct {
	store  repository.CattleStore
	scoped *ownership.Scoped[models.Cattle]
	logger *zap.Logger
	now    ownership.Clock
}

// NewService wires a new cattle service instance.
func NewService(store repository.CattleStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:  store,
		scoped: ownership.New[models.Cattle](store, "Cattle"),
		logger: logger,
	}
}

// Create validates input and stores a new animal for owner.
func (s *Service) Create(ctx context.Context, owner primitive.ObjectID, in CreateInput) (*models.Cattle, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Breed = strings.TrimSpace(in.Breed)
	in.TagNumber = strings.TrimSpace(in.TagNumber)
	if in.Name == "" || in.Breed == "" || in.Gender == "" || in.TagNumber == "" {
		return nil, apperr.Validation(errMissingFields)
	}
	if !in.Gender.Valid() {
		return nil, apperr.Validation(errGender)
	}
	if in.Age != nil && *in.Age < 0 {
		return nil, apperr.Validation(errNegativeAge)
	}
	if err := s.ensureTagFree(ctx, owner, in.TagNumber, primitive.NilObjectID); err != nil {
		return nil, err
	}

	now := s.now.Now()
	c := &models.Cattle{
		ID:        primitive.NewObjectID(),
		Name:      in.Name,
		Breed:     in.Breed,
		Age:       in.Age,
		Gender:    in.Gender,
		TagNumber: in.TagNumber,
		ImageURL:  in.ImageURL,
		CreatedBy: owner,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Insert(ctx, c); err != nil {
		return nil, s.translateWrite("create", err)
	}

	s.logger.Info("cattle registered",
		zap.String("owner", owner.Hex()),
		zap.String("cattle_id", c.ID.Hex()),
		zap.String("tag_number", c.TagNumber))
	return c, nil
}

// List returns the owner's animals without their embedded health notes.
func (s *Service) List(ctx context.Context, owner primitive.ObjectID, q ListQuery) ([]models.Cattle, error) {
	opts := repository.ListOptions{Exclude: []string{"healthRecords"}}
	switch q.Filter {
	case "male":
		opts.Filter = bson.M{"gender": models.GenderMale}
	case "female":
		opts.Filter = bson.M{"gender": models.GenderFemale}
	}
	switch q.Sort {
	case "age":
		opts.SortField, opts.SortOrder = "age", repository.Ascending
	case "recent":
		opts.SortField, opts.SortOrder = "createdAt", repository.Descending
	}
	return s.scoped.List(ctx, owner, opts)
}

func (s *Service) Get(ctx context.Context, owner primitive.ObjectID, id string) (*models.Cattle, error) {
	return s.scoped.Get(ctx, owner, id)
}

// Update applies the non-nil fields of in after re-running the validators
// that concern them.
func (s *Service) Update(ctx context.Context, owner primitive.ObjectID, id string, in UpdateInput) (*models.Cattle, error) {
	set := bson.M{}
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, apperr.Validation("Name cannot be empty")
		}
		set["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Breed != nil {
		if strings.TrimSpace(*in.Breed) == "" {
			return nil, apperr.Validation("Breed cannot be empty")
		}
		set["breed"] = strings.TrimSpace(*in.Breed)
	}
	if in.Age != nil {
		if *in.Age < 0 {
			return nil, apperr.Validation(errNegativeAge)
		}
		set["age"] = *in.Age
	}
	if in.Gender != nil {
		if !in.Gender.Valid() {
			return nil, apperr.Validation(errGender)
		}
		set["gender"] = *in.Gender
	}
	if in.ImageURL != nil {
		set["imageUrl"] = *in.ImageURL
	}
	if in.TagNumber != nil {
		tag := strings.TrimSpace(*in.TagNumber)
		if tag == "" {
			return nil, apperr.Validation("Tag number cannot be empty")
		}
		objID, ok := ownership.ParseID(id)
		if !ok {
			return nil, s.scoped.NotFound()
		}
		if err := s.ensureTagFree(ctx, owner, tag, objID); err != nil {
			return nil, err
		}
		set["tag_number"] = tag
	}

	c, err := s.scoped.Update(ctx, owner, id, set)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, apperr.Conflict(errTagTaken)
	}
	return c, err
}

func (s *Service) Delete(ctx context.Context, owner primitive.ObjectID, id string) (*models.Cattle, error) {
	c, err := s.scoped.Delete(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("cattle removed", zap.String("owner", owner.Hex()), zap.String("cattle_id", c.ID.Hex()))
	return c, nil
}

// AddHealthNote appends a dated note to the animal's embedded history.
func (s *Service) AddHealthNote(ctx context.Context, owner primitive.ObjectID, id, notes string) (*models.Cattle, error) {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return nil, apperr.Validation(errNotesRequired)
	}
	objID, ok := ownership.ParseID(id)
	if !ok {
		return nil, s.scoped.NotFound()
	}
	c, err := s.store.AppendHealthNote(ctx, owner, objID, models.HealthNote{Date: s.now.Now(), Notes: notes})
	if err != nil {
		return nil, s.scoped.Translate("append health note", err)
	}
	return c, nil
}

func (s *Service) ensureTagFree(ctx context.Context, owner primitive.ObjectID, tag string, exclude primitive.ObjectID) error {
	taken, err := s.store.Exists(ctx, owner, bson.M{"tag_number": tag}, exclude)
	if err != nil {
		return fmt.Errorf("check tag number: %w", err)
	}
	if taken {
		return apperr.Conflict(errTagTaken)
	}
	return nil
}

func (s *Service) translateWrite(op string, err error) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return apperr.Conflict(errTagTaken)
	}
	return s.scoped.Translate(op, err)
}
