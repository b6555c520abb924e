package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/sheets/v4"

	"github.com/Veraticus/the-fines-must-flow/internal/common"
	"github.com/Veraticus/the-fines-must-flow/internal/mirror"
	"github.com/Veraticus/the-fines-must-flow/internal/service"
)

// lastColumn bounds every range to the nine mirror columns.
const lastColumn = "I"

// Workbook implements mirror.Workbook against one Google spreadsheet.
// Values are written RAW so text dates stay text.
type Workbook struct {
	api      API
	logger   *slog.Logger
	sheetIDs map[string]int64
	id       string
	retry    service.RetryOptions
	mu       sync.Mutex
}

// NewWorkbook connects to the spreadsheet named by config.
func NewWorkbook(ctx context.Context, config Config, logger *slog.Logger) (*Workbook, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	srv, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return NewWorkbookWithAPI(&serviceAPI{srv: srv}, config, logger), nil
}

// NewWorkbookWithAPI builds a workbook over an existing API client.
func NewWorkbookWithAPI(api API, config Config, logger *slog.Logger) *Workbook {
	if logger == nil {
		logger = slog.Default()
	}
	return &Workbook{
		api:    api,
		logger: logger,
		id:     config.SpreadsheetID,
		retry: service.RetryOptions{
			MaxAttempts:  config.RetryAttempts,
			InitialDelay: config.RetryDelay,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
	}
}

// HasSheet reports whether the spreadsheet has a tab with this title.
func (w *Workbook) HasSheet(ctx context.Context, sheet string) (bool, error) {
	_, ok, err := w.sheetID(ctx, sheet)
	return ok, err
}

// Rows returns the sheet's cells as text, numbers without exponent.
func (w *Workbook) Rows(ctx context.Context, sheet string) ([][]string, error) {
	if _, err := w.requireSheet(ctx, sheet); err != nil {
		return nil, err
	}

	var values [][]any
	err := w.call(ctx, "get", func() error {
		var err error
		values, err = w.api.GetValues(ctx, w.id, columnRange(sheet))
		return err
	})
	if err != nil {
		return nil, err
	}

	rows := make([][]string, len(values))
	for i, row := range values {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = cellText(v)
		}
		rows[i] = cells
	}
	return rows, nil
}

// AppendRow adds values after the last row of the sheet.
func (w *Workbook) AppendRow(ctx context.Context, sheet string, values []string) error {
	if _, err := w.requireSheet(ctx, sheet); err != nil {
		return err
	}

	row := typedRow(values)
	return w.call(ctx, "append", func() error {
		return w.api.AppendValues(ctx, w.id, columnRange(sheet), [][]any{row})
	})
}

// UpdateRows writes each update's cell span in a single batch request.
func (w *Workbook) UpdateRows(ctx context.Context, sheet string, updates []mirror.RowUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	if _, err := w.requireSheet(ctx, sheet); err != nil {
		return err
	}

	data := make([]*sheets.ValueRange, 0, len(updates))
	for _, u := range updates {
		rng, err := cellSpan(sheet, u)
		if err != nil {
			return err
		}
		data = append(data, &sheets.ValueRange{
			Range:  rng,
			Values: [][]any{typedRow(u.Values)},
		})
	}

	return w.call(ctx, "update", func() error {
		return w.api.UpdateValues(ctx, w.id, data)
	})
}

// DeleteRow removes the row at index and shifts the rows below it up.
func (w *Workbook) DeleteRow(ctx context.Context, sheet string, index int) error {
	if index < 0 {
		return fmt.Errorf("invalid row index %d", index)
	}
	sheetID, err := w.requireSheet(ctx, sheet)
	if err != nil {
		return err
	}

	return w.call(ctx, "delete", func() error {
		return w.api.DeleteRows(ctx, w.id, sheetID, int64(index), int64(index)+1)
	})
}

func (w *Workbook) requireSheet(ctx context.Context, sheet string) (int64, error) {
	id, ok, err := w.sheetID(ctx, sheet)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: %s", mirror.ErrSheetNotFound, sheet)
	}
	return id, nil
}

// sheetID resolves a tab title, reloading the metadata once on a miss.
func (w *Workbook) sheetID(ctx context.Context, sheet string) (int64, bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if id, ok := w.sheetIDs[sheet]; ok {
		return id, true, nil
	}

	var ids map[string]int64
	err := w.call(ctx, "metadata", func() error {
		var err error
		ids, err = w.api.SheetIDs(ctx, w.id)
		return err
	})
	if err != nil {
		return 0, false, err
	}
	w.sheetIDs = ids

	id, ok := ids[sheet]
	return id, ok, nil
}

func (w *Workbook) call(ctx context.Context, op string, fn func() error) error {
	err := common.WithRetry(ctx, func() error {
		return classify(fn())
	}, w.retry)
	if err != nil {
		w.logger.Debug("sheets request failed", "op", op, "spreadsheet", w.id, "error", err)
		return fmt.Errorf("sheets %s: %w", op, err)
	}
	return nil
}

// classify marks client errors as final and throttling as a rate limit.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}

	switch {
	case apiErr.Code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %v", common.ErrRateLimit, err)
	case apiErr.Code >= 400 && apiErr.Code < 500:
		return &common.RetryableError{Err: err, Retryable: false}
	default:
		return err
	}
}

func columnRange(sheet string) string {
	return quoteSheet(sheet) + "!A:" + lastColumn
}

// cellSpan renders the A1 range an update covers, e.g. 'Sheet'!F4:H4.
func cellSpan(sheet string, u mirror.RowUpdate) (string, error) {
	if u.Column < 0 || len(u.Values) == 0 {
		return "", fmt.Errorf("invalid update span at column %d", u.Column)
	}
	first := columnName(u.Column + 1)
	last := columnName(u.Column + len(u.Values))
	return fmt.Sprintf("%s!%s%d:%s%d", quoteSheet(sheet), first, u.Index+1, last, u.Index+1), nil
}

// columnName converts a 1-based column number to its letters.
func columnName(n int) string {
	var name []byte
	for n > 0 {
		n--
		name = append([]byte{byte('A' + n%26)}, name...)
		n /= 26
	}
	return string(name)
}

func quoteSheet(sheet string) string {
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
}

func typedRow(values []string) []any {
	row := make([]any, len(values))
	for i, v := range values {
		row[i] = mirror.CellValue(v)
	}
	return row
}

func cellText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
