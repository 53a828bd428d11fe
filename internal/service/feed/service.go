package feed

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

// Operation is the direction of a stock adjustment.
type Operation string

const (
	OperationAdd      Operation = "add"
	OperationSubtract Operation = "subtract"
)

const (
	errMissingFields     = "Missing required fields: name, type, quantity, unit, cost, and stockAlert are required"
	errFeedType          = "Type must be one of Fodder, Concentrate, Mineral, Supplement"
	errFeedUnit          = "Unit must be one of kg, g, lbs, tons"
	errNegative          = "Quantity, cost and stockAlert cannot be negative"
	errAdjustmentMissing = "Adjustment amount and operation type (add/subtract) are required"
	errInvalidOperation  = `Invalid operation. Use "add" or "subtract"`
	errInsufficient      = "Insufficient stock for this operation"
)

// CreateInput is the payload accepted when recording a feed purchase.
// Numeric fields are pointers so that a missing value differs from zero.
type CreateInput struct {
	Name            string                  `json:"name"`
	Type            models.FeedType         `json:"type"`
	Quantity        *float64                `json:"quantity"`
	Unit            models.FeedUnit         `json:"unit"`
	Cost            *float64                `json:"cost"`
	StockAlert      *float64                `json:"stockAlert"`
	PurchaseDate    *models.Date            `json:"purchaseDate"`
	ExpiryDate      *models.Date            `json:"expiryDate"`
	Supplier        string                  `json:"supplier"`
	NutritionalInfo *models.NutritionalInfo `json:"nutritionalInfo"`
	Notes           string                  `json:"notes"`
}

// UpdateInput carries the fields a client may change. Quantity moves through
// AdjustStock but may also be corrected here.
type UpdateInput struct {
	Name            *string                 `json:"name"`
	Type            *models.FeedType        `json:"type"`
	Quantity        *float64                `json:"quantity"`
	Unit            *models.FeedUnit        `json:"unit"`
	Cost            *float64                `json:"cost"`
	StockAlert      *float64                `json:"stockAlert"`
	PurchaseDate    *models.Date            `json:"purchaseDate"`
	ExpiryDate      *models.Date            `json:"expiryDate"`
	Supplier        *string                 `json:"supplier"`
	NutritionalInfo *models.NutritionalInfo `json:"nutritionalInfo"`
	Notes           *string                 `json:"notes"`
}

// ListQuery holds the raw list parameters. Unknown values are ignored.
type ListQuery struct {
	Type string `form:"type"`
	Sort string `form:"sort"`
}

// AdjustInput is the stock adjustment payload.
type AdjustInput struct {
	Adjustment float64   `json:"adjustment"`
	Operation  Operation `json:"operation"`
}

// Service manages the feed inventory of each user.
type Service struct {
	store  repository.FeedStore
	scoped *ownership.Scoped[models.Feed]
	logger *zap.Logger
	now    ownership.Clock
}

// NewService wires a new feed service instance.
func NewService(store repository.FeedStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:  store,
		scoped: ownership.New[models.Feed](store, "Feed"),
		logger: logger,
	}
}

func (s *Service) Create(ctx context.Context, owner primitive.ObjectID, in CreateInput) (*models.Feed, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" || in.Type == "" || in.Quantity == nil || in.Unit == "" || in.Cost == nil || in.StockAlert == nil {
		return nil, apperr.Validation(errMissingFields)
	}
	if !in.Type.Valid() {
		return nil, apperr.Validation(errFeedType)
	}
	if !in.Unit.Valid() {
		return nil, apperr.Validation(errFeedUnit)
	}
	if *in.Quantity < 0 || *in.Cost < 0 || *in.StockAlert < 0 {
		return nil, apperr.Validation(errNegative)
	}

	now := s.now.Now()
	purchased := now
	if in.PurchaseDate != nil {
		purchased = ownership.Normalize(in.PurchaseDate.Time)
	}
	f := &models.Feed{
		ID:              primitive.NewObjectID(),
		Name:            in.Name,
		Type:            in.Type,
		Quantity:        *in.Quantity,
		Unit:            in.Unit,
		Cost:            *in.Cost,
		PurchaseDate:    purchased,
		ExpiryDate:      ownership.NormalizePtr(in.ExpiryDate.Ptr()),
		Supplier:        in.Supplier,
		StockAlert:      *in.StockAlert,
		NutritionalInfo: in.NutritionalInfo,
		Notes:           in.Notes,
		CreatedBy:       owner,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.Insert(ctx, f); err != nil {
		return nil, s.scoped.Translate("create", err)
	}

	s.logger.Info("feed recorded",
		zap.String("owner", owner.Hex()),
		zap.String("feed_id", f.ID.Hex()),
		zap.Float64("quantity", f.Quantity))
	return f, nil
}

func (s *Service) List(ctx context.Context, owner primitive.ObjectID, q ListQuery) ([]models.Feed, error) {
	var opts repository.ListOptions
	if q.Type != "" {
		opts.Filter = bson.M{"type": q.Type}
	}
	switch q.Sort {
	case "quantity":
		opts.SortField, opts.SortOrder = "quantity", repository.Ascending
	case "expiry":
		opts.SortField, opts.SortOrder = "expiryDate", repository.Ascending
	case "recent":
		opts.SortField, opts.SortOrder = "createdAt", repository.Descending
	}
	return s.scoped.List(ctx, owner, opts)
}

func (s *Service) Get(ctx context.Context, owner primitive.ObjectID, id string) (*models.Feed, error) {
	return s.scoped.Get(ctx, owner, id)
}

func (s *Service) Update(ctx context.Context, owner primitive.ObjectID, id string, in UpdateInput) (*models.Feed, error) {
	set := bson.M{}
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, apperr.Validation("Name cannot be empty")
		}
		set["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Type != nil {
		if !in.Type.Valid() {
			return nil, apperr.Validation(errFeedType)
		}
		set["type"] = *in.Type
	}
	if in.Unit != nil {
		if !in.Unit.Valid() {
			return nil, apperr.Validation(errFeedUnit)
		}
		set["unit"] = *in.Unit
	}
	for field, v := range map[string]*float64{"quantity": in.Quantity, "cost": in.Cost, "stockAlert": in.StockAlert} {
		if v == nil {
			continue
		}
		if *v < 0 {
			return nil, apperr.Validation(errNegative)
		}
		set[field] = *v
	}
	if in.PurchaseDate != nil {
		set["purchaseDate"] = ownership.Normalize(in.PurchaseDate.Time)
	}
	if in.ExpiryDate != nil {
		set["expiryDate"] = ownership.Normalize(in.ExpiryDate.Time)
	}
	if in.Supplier != nil {
		set["supplier"] = *in.Supplier
	}
	if in.NutritionalInfo != nil {
		set["nutritionalInfo"] = in.NutritionalInfo
	}
	if in.Notes != nil {
		set["notes"] = *in.Notes
	}
	return s.scoped.Update(ctx, owner, id, set)
}

func (s *Service) Delete(ctx context.Context, owner primitive.ObjectID, id string) (*models.Feed, error) {
	return s.scoped.Delete(ctx, owner, id)
}

// AdjustStock adds or removes stock in one conditional update. A subtraction
// larger than the stored quantity leaves the feed untouched.
func (s *Service) AdjustStock(ctx context.Context, owner primitive.ObjectID, id string, in AdjustInput) (*models.Feed, error) {
	if in.Adjustment == 0 || in.Operation == "" {
		return nil, apperr.Validation(errAdjustmentMissing)
	}
	if in.Adjustment < 0 {
		return nil, apperr.Validation("Adjustment amount must be positive")
	}

	var delta float64
	switch in.Operation {
	case OperationAdd:
		delta = in.Adjustment
	case OperationSubtract:
		delta = -in.Adjustment
	default:
		return nil, apperr.Validation(errInvalidOperation)
	}

	objID, ok := ownership.ParseID(id)
	if !ok {
		return nil, s.scoped.NotFound()
	}
	f, err := s.store.AdjustQuantity(ctx, owner, objID, delta)
	switch {
	case errors.Is(err, repository.ErrConditionFailed):
		return nil, apperr.Validation(errInsufficient)
	case err != nil:
		return nil, s.scoped.Translate("adjust stock", err)
	}

	fields := []zap.Field{
		zap.String("owner", owner.Hex()),
		zap.String("feed_id", f.ID.Hex()),
		zap.String("operation", string(in.Operation)),
		zap.Float64("quantity", f.Quantity),
	}
	if f.LowStock() {
		s.logger.Warn("feed stock at or below alert threshold", append(fields, zap.Float64("stock_alert", f.StockAlert))...)
	} else {
		s.logger.Info("feed stock adjusted", fields...)
	}
	return f, nil
}

// LowStock lists the owner's feeds at or below their alert threshold.
func (s *Service) LowStock(ctx context.Context, owner primitive.ObjectID) ([]models.Feed, error) {
	feeds, err := s.store.LowStock(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list low stock feeds: %w", err)
	}
	return feeds, nil
}
