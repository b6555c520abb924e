// Package workbook implements the mirror over a local .xlsx/.xlsm file.
package workbook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/Veraticus/the-fines-must-flow/internal/mirror"
)

// ErrFileNotFound is returned when the workbook path does not exist.
var ErrFileNotFound = errors.New("workbook file not found")

// File is a mirror.Workbook backed by a spreadsheet file. The file is
// opened for every call and saved after every write, so other tools may
// edit it between calls.
type File struct {
	logger *slog.Logger
	path   string
	mu     sync.Mutex
}

// Open checks that path exists and returns a workbook over it.
func Open(path string, logger *slog.Logger) (*File, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("failed to stat workbook: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &File{path: path, logger: logger}, nil
}

// Create writes a new workbook containing the category sheets with header
// rows and an empty roster sheet.
func Create(path string, logger *slog.Logger) (*File, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for i, sheet := range mirror.Sheets() {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
				return nil, fmt.Errorf("failed to name sheet %s: %w", sheet, err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return nil, fmt.Errorf("failed to add sheet %s: %w", sheet, err)
		}
		if err := setRow(f, sheet, 1, mirror.Header()); err != nil {
			return nil, err
		}
	}

	if _, err := f.NewSheet(mirror.RosterSheet); err != nil {
		return nil, fmt.Errorf("failed to add roster sheet: %w", err)
	}
	if err := setRow(f, mirror.RosterSheet, 1, []string{"STT", "Họ và tên"}); err != nil {
		return nil, err
	}

	if err := f.SaveAs(path); err != nil {
		return nil, fmt.Errorf("failed to save workbook: %w", err)
	}
	return Open(path, logger)
}

// Path returns the file location.
func (w *File) Path() string {
	return w.path
}

func (w *File) HasSheet(_ context.Context, sheet string) (bool, error) {
	var found bool
	err := w.read(func(f *excelize.File) error {
		idx, err := f.GetSheetIndex(sheet)
		if err != nil {
			return err
		}
		found = idx >= 0
		return nil
	})
	return found, err
}

func (w *File) Rows(_ context.Context, sheet string) ([][]string, error) {
	var rows [][]string
	err := w.read(func(f *excelize.File) error {
		if err := requireSheet(f, sheet); err != nil {
			return err
		}
		var err error
		rows, err = f.GetRows(sheet, excelize.Options{RawCellValue: true})
		return err
	})
	return rows, err
}

func (w *File) AppendRow(_ context.Context, sheet string, values []string) error {
	return w.write(func(f *excelize.File) error {
		if err := requireSheet(f, sheet); err != nil {
			return err
		}
		rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return err
		}
		return setRow(f, sheet, len(rows)+1, values)
	})
}

func (w *File) UpdateRows(_ context.Context, sheet string, updates []mirror.RowUpdate) error {
	return w.write(func(f *excelize.File) error {
		if err := requireSheet(f, sheet); err != nil {
			return err
		}
		for _, u := range updates {
			if err := setCells(f, sheet, u.Column+1, u.Index+1, u.Values); err != nil {
				return err
			}
		}
		return nil
	})
}

func (w *File) DeleteRow(_ context.Context, sheet string, index int) error {
	return w.write(func(f *excelize.File) error {
		if err := requireSheet(f, sheet); err != nil {
			return err
		}
		return f.RemoveRow(sheet, index+1)
	})
}

func (w *File) read(fn func(*excelize.File) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return fmt.Errorf("failed to open workbook %s: %w", w.path, err)
	}
	defer func() { _ = f.Close() }()

	return fn(f)
}

func (w *File) write(fn func(*excelize.File) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return fmt.Errorf("failed to open workbook %s: %w", w.path, err)
	}
	defer func() { _ = f.Close() }()

	if err := fn(f); err != nil {
		return err
	}
	if err := f.Save(); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", w.path, err)
	}

	w.logger.Debug("saved workbook", "path", w.path)
	return nil
}

func requireSheet(f *excelize.File, sheet string) error {
	idx, err := f.GetSheetIndex(sheet)
	if err != nil {
		return err
	}
	if idx < 0 {
		return fmt.Errorf("%w: %s", mirror.ErrSheetNotFound, sheet)
	}
	return nil
}

// setRow writes values starting at column A of the 1-based row.
func setRow(f *excelize.File, sheet string, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}

	typed := make([]any, len(values))
	for i, v := range values {
		typed[i] = mirror.CellValue(v)
	}

	if err := f.SetSheetRow(sheet, cell, &typed); err != nil {
		return fmt.Errorf("failed to write row %d on %s: %w", row, sheet, err)
	}
	return nil
}

// setCells writes values one cell at a time from the 1-based column, so
// cells outside the span keep their formulas and styles.
func setCells(f *excelize.File, sheet string, col, row int, values []string) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+i, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, mirror.CellValue(v)); err != nil {
			return fmt.Errorf("failed to write %s on %s: %w", cell, sheet, err)
		}
	}
	return nil
}

var _ mirror.Workbook = (*File)(nil)
