package finance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmhub/internal/domain/apperr"
	"github.com/mamadbah2/farmhub/internal/domain/models"
	"github.com/mamadbah2/farmhub/internal/repository"
	"github.com/mamadbah2/farmhub/internal/service/ownership"
)

const (
	errMissingFields = "Amount, type and description are required fields"
	errFinanceType   = "Type must be either Income or Expense"
	errAmount        = "Amount must be greater than zero"
	errDescription   = "Description cannot be empty"

	exportRange   = "Finances!A:F"
	exportIDRange = "Finances!A:A"
)

// SheetWriter is the spreadsheet the export appends to.
type SheetWriter interface {
	AppendRows(ctx context.Context, sheetRange string, rows [][]interface{}) error
	Column(ctx context.Context, sheetRange string) ([]string, error)
}

var exportHeader = []interface{}{"id", "date", "type", "amount", "description", "owner"}

// CreateInput is the payload accepted when recording an entry.
type CreateInput struct {
	Amount      *float64           `json:"amount"`
	Type        models.FinanceType `json:"type"`
	Description string             `json:"description"`
	Date        *models.Date       `json:"date"`
}

// UpdateInput carries the fields a client may change.
type UpdateInput struct {
	Amount      *float64            `json:"amount"`
	Type        *models.FinanceType `json:"type"`
	Description *string             `json:"description"`
	Date        *models.Date        `json:"date"`
}

// ListQuery holds the raw list parameters. Unknown values are ignored.
type ListQuery struct {
	Filter string `form:"filter"`
	Sort   string `form:"sort"`
}

// ExportResult reports how many entries reached the sheet.
type ExportResult struct {
	Exported int `json:"exported"`
	Skipped  int `json:"skipped"`
}

// Service manages income and expense entries.
type Service struct {
	store  repository.FinanceStore
	scoped *ownership.Scoped[models.Finance]
	sheet  SheetWriter
	logger *zap.Logger
	now    ownership.Clock
}

// NewService wires a new finance service instance. sheet may be nil, in
// which case Export reports a configuration error.
func NewService(store repository.FinanceStore, sheet SheetWriter, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:  store,
		scoped: ownership.New[models.Finance](store, "Finance record"),
		sheet:  sheet,
		logger: logger,
	}
}

func (s *Service) Create(ctx context.Context, owner primitive.ObjectID, in CreateInput) (*models.Finance, error) {
	in.Description = strings.TrimSpace(in.Description)
	if in.Amount == nil || *in.Amount == 0 || in.Type == "" || in.Description == "" {
		return nil, apperr.Validation(errMissingFields)
	}
	if !in.Type.Valid() {
		return nil, apperr.Validation(errFinanceType)
	}
	if *in.Amount < 0 {
		return nil, apperr.Validation(errAmount)
	}

	now := s.now.Now()
	date := now
	if in.Date != nil {
		date = ownership.Normalize(in.Date.Time)
	}
	entry := &models.Finance{
		ID:          primitive.NewObjectID(),
		Amount:      *in.Amount,
		Type:        in.Type,
		Description: in.Description,
		Date:        date,
		CreatedBy:   owner,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Insert(ctx, entry); err != nil {
		return nil, s.scoped.Translate("create", err)
	}

	s.logger.Info("finance entry recorded",
		zap.String("owner", owner.Hex()),
		zap.String("type", string(entry.Type)),
		zap.Float64("amount", entry.Amount))
	return entry, nil
}

func (s *Service) List(ctx context.Context, owner primitive.ObjectID, q ListQuery) ([]models.Finance, error) {
	var opts repository.ListOptions
	switch q.Filter {
	case "income":
		opts.Filter = bson.M{"type": models.FinanceIncome}
	case "expense":
		opts.Filter = bson.M{"type": models.FinanceExpense}
	}
	switch q.Sort {
	case "amount":
		opts.SortField, opts.SortOrder = "amount", repository.Ascending
	case "recent":
		opts.SortField, opts.SortOrder = "createdAt", repository.Descending
	}
	return s.scoped.List(ctx, owner, opts)
}

func (s *Service) Get(ctx context.Context, owner primitive.ObjectID, id string) (*models.Finance, error) {
	return s.scoped.Get(ctx, owner, id)
}

func (s *Service) Update(ctx context.Context, owner primitive.ObjectID, id string, in UpdateInput) (*models.Finance, error) {
	set := bson.M{}
	if in.Amount != nil {
		if *in.Amount <= 0 {
			return nil, apperr.Validation(errAmount)
		}
		set["amount"] = *in.Amount
	}
	if in.Type != nil {
		if !in.Type.Valid() {
			return nil, apperr.Validation(errFinanceType)
		}
		set["type"] = *in.Type
	}
	if in.Description != nil {
		description := strings.TrimSpace(*in.Description)
		if description == "" {
			return nil, apperr.Validation(errDescription)
		}
		set["description"] = description
	}
	if in.Date != nil {
		set["date"] = ownership.Normalize(in.Date.Time)
	}
	return s.scoped.Update(ctx, owner, id, set)
}

func (s *Service) Delete(ctx context.Context, owner primitive.ObjectID, id string) (*models.Finance, error) {
	return s.scoped.Delete(ctx, owner, id)
}

// Summary totals the owner's entries dated within [from, to]. Nil bounds are open.
func (s *Service) Summary(ctx context.Context, owner primitive.ObjectID, from, to *time.Time) (models.FinanceSummary, error) {
	summary := models.FinanceSummary{From: ownership.NormalizePtr(from), To: ownership.NormalizePtr(to)}
	if from != nil && to != nil && to.Before(*from) {
		return summary, apperr.Validation("The end of the period must not precede its start")
	}

	entries, err := s.scoped.List(ctx, owner, repository.ListOptions{})
	if err != nil {
		return summary, err
	}
	for _, e := range entries {
		if from != nil && e.Date.Before(*from) {
			continue
		}
		if to != nil && e.Date.After(*to) {
			continue
		}
		switch e.Type {
		case models.FinanceIncome:
			summary.Income += e.Amount
		case models.FinanceExpense:
			summary.Expense += e.Amount
		}
		summary.Entries++
	}
	summary.Balance = summary.Income - summary.Expense
	return summary, nil
}

// Export appends the owner's entries to the finance sheet. Entries whose id
// is already in the sheet are skipped so repeated exports do not duplicate.
// The first export into an empty sheet writes a header row.
func (s *Service) Export(ctx context.Context, owner primitive.ObjectID) (ExportResult, error) {
	var result ExportResult
	if s.sheet == nil {
		return result, apperr.Config("Finance export is not configured")
	}

	entries, err := s.scoped.List(ctx, owner, repository.ListOptions{SortField: "date", SortOrder: repository.Ascending})
	if err != nil {
		return result, err
	}

	existing, err := s.sheet.Column(ctx, exportIDRange)
	if err != nil {
		return result, fmt.Errorf("read exported ids: %w", err)
	}
	exported := make(map[string]struct{}, len(existing))
	for _, id := range existing {
		exported[id] = struct{}{}
	}

	rows := make([][]interface{}, 0, len(entries)+1)
	if len(existing) == 0 {
		rows = append(rows, exportHeader)
	}
	for _, e := range entries {
		if _, ok := exported[e.ID.Hex()]; ok {
			result.Skipped++
			continue
		}
		result.Exported++
		rows = append(rows, []interface{}{
			literal(e.ID.Hex()),
			e.Date.Format(models.DateLayout),
			string(e.Type),
			e.Amount,
			literal(e.Description),
			literal(owner.Hex()),
		})
	}

	if result.Exported == 0 {
		return result, nil
	}
	if err := s.sheet.AppendRows(ctx, exportRange, rows); err != nil {
		return ExportResult{}, fmt.Errorf("export finances: %w", err)
	}

	s.logger.Info("finance entries exported",
		zap.String("owner", owner.Hex()),
		zap.Int("exported", result.Exported),
		zap.Int("skipped", result.Skipped))
	return result, nil
}

// literal marks a cell as text for user-entered input. Hex ids that look like
// numbers and descriptions starting with "=" would otherwise be parsed.
func literal(s string) string {
	return "'" + s
}
