package mirror

import (
	"context"
	"errors"
	"strconv"
)

// ErrSheetNotFound is returned when a workbook lacks the requested sheet.
var ErrSheetNotFound = errors.New("sheet not found")

// RowUpdate overwrites cells of the row at Index (as returned by Rows),
// starting at the zero-based Column. Cells outside the written span are
// left untouched.
type RowUpdate struct {
	Values []string
	Index  int
	Column int
}

// Workbook is a row store of named sheets. Indexes are zero-based
// positions in the slice returned by Rows.
type Workbook interface {
	HasSheet(ctx context.Context, sheet string) (bool, error)
	Rows(ctx context.Context, sheet string) ([][]string, error)
	AppendRow(ctx context.Context, sheet string, values []string) error
	UpdateRows(ctx context.Context, sheet string, updates []RowUpdate) error
	DeleteRow(ctx context.Context, sheet string, index int) error
}

// CellValue converts a rendered cell for backends that store typed values:
// integers are written as numbers, everything else as text.
func CellValue(s string) any {
	if s == "" {
		return ""
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	return s
}
