// Package sheets writes ledger rows to a Google spreadsheet.
package sheets

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/mamadbah2/farmhub/internal/config"
)

var errEmptyRange = errors.New("sheet range must not be empty")

// Spreadsheet addresses one spreadsheet through A1 ranges such as "Finances!A:F".
type Spreadsheet struct {
	values        *sheetsapi.SpreadsheetsValuesService
	spreadsheetID string
	logger        *zap.Logger
}

// NewSpreadsheet authenticates with the service account credentials in cfg.
func NewSpreadsheet(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (*Spreadsheet, error) {
	service, err := sheetsapi.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsPath), option.WithScopes(sheetsapi.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}
	return newSpreadsheet(service, cfg.SpreadsheetID, logger), nil
}

func newSpreadsheet(service *sheetsapi.Service, spreadsheetID string, logger *zap.Logger) *Spreadsheet {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Spreadsheet{
		values:        service.Spreadsheets.Values,
		spreadsheetID: spreadsheetID,
		logger:        logger.With(zap.String("spreadsheet_id", spreadsheetID)),
	}
}

// AppendRows inserts rows after the last filled row of sheetRange in a
// single request. Cells are parsed as if typed by a user, so dates and
// amounts keep their spreadsheet types.
func (s *Spreadsheet) AppendRows(ctx context.Context, sheetRange string, rows [][]interface{}) error {
	if sheetRange == "" {
		return errEmptyRange
	}
	if len(rows) == 0 {
		return nil
	}

	resp, err := s.values.Append(s.spreadsheetID, sheetRange, &sheetsapi.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append %d rows into %s: %w", len(rows), sheetRange, err)
	}

	updated := len(rows)
	if resp.Updates != nil {
		updated = int(resp.Updates.UpdatedRows)
	}
	s.logger.Debug("rows appended", zap.String("range", sheetRange), zap.Int("rows", updated))
	return nil
}

// Column returns the first column of sheetRange as display strings, top to
// bottom. An empty sheet yields an empty slice.
func (s *Spreadsheet) Column(ctx context.Context, sheetRange string) ([]string, error) {
	if sheetRange == "" {
		return nil, errEmptyRange
	}

	resp, err := s.values.Get(s.spreadsheetID, sheetRange).
		MajorDimension("COLUMNS").
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("read column %s: %w", sheetRange, err)
	}
	if len(resp.Values) == 0 {
		return []string{}, nil
	}

	cells := make([]string, 0, len(resp.Values[0]))
	for _, v := range resp.Values[0] {
		cells = append(cells, fmt.Sprint(v))
	}
	return cells, nil
}
