package mirror

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/Veraticus/the-fines-must-flow/internal/common"
	"github.com/Veraticus/the-fines-must-flow/internal/metrics"
	"github.com/Veraticus/the-fines-must-flow/internal/model"
)

// Op names a mirror operation.
type Op string

// Mirror operations.
const (
	OpCreate Op = "create"
	OpSettle Op = "settle"
	OpDelete Op = "delete"
)

// Result reports a best-effort mirror write. It is never an error for the
// caller: the database change it shadows has already committed.
type Result struct {
	Err     error
	Op      Op
	Subject string
	Sheet   string
	Rows    int // rows appended, updated or removed
	Skipped bool
}

// OK reports whether the operation completed.
func (r Result) OK() bool {
	return r.Err == nil
}

// Log records the outcome. Failures are warnings.
func (r Result) Log(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	attrs := []any{"op", r.Op, "subject", r.Subject, "sheet", r.Sheet, "rows", r.Rows}
	switch {
	case r.Err != nil:
		logger.Warn("mirror sync failed", append(attrs, "error", r.Err, "transient", common.IsRetryable(r.Err))...)
	case r.Skipped:
		logger.Debug("mirror sync skipped", attrs...)
	default:
		logger.Info("mirror synced", attrs...)
	}
}

// Synchronizer translates record lifecycle events into workbook row edits.
// A nil workbook disables mirroring; every call then returns a skipped
// result.
type Synchronizer struct {
	book   Workbook
	logger *slog.Logger
}

// NewSynchronizer creates a synchronizer over book.
func NewSynchronizer(book Workbook, logger *slog.Logger) *Synchronizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synchronizer{book: book, logger: logger}
}

// Enabled reports whether a workbook is attached.
func (s *Synchronizer) Enabled() bool {
	return s != nil && s.book != nil
}

// Created appends a row for a new record to its category sheet with the
// next sequence number.
func (s *Synchronizer) Created(ctx context.Context, inf model.Infraction) Result {
	res := Result{Op: OpCreate, Subject: inf.Subject, Sheet: inf.Sheet}
	if !s.Enabled() {
		return s.finish(skipped(res))
	}

	if res.Sheet == "" {
		sheet, err := SheetFor(inf.Code)
		if err != nil {
			res.Err = err
			return s.finish(res)
		}
		res.Sheet = sheet
	}

	rows, err := s.book.Rows(ctx, res.Sheet)
	if err != nil {
		res.Err = fmt.Errorf("failed to read %s: %w", res.Sheet, err)
		return s.finish(res)
	}

	if err := s.book.AppendRow(ctx, res.Sheet, RowFor(inf, NextSeq(rows)).Values()); err != nil {
		res.Err = fmt.Errorf("failed to append to %s: %w", res.Sheet, err)
		return s.finish(res)
	}

	res.Rows = 1
	return s.finish(res)
}

// Settled marks every row for subject with a positive due amount as paid
// on today, across all category sheets. Rows are matched on normalized
// name only, so two subjects sharing a name are settled together. Missing
// sheets are skipped.
func (s *Synchronizer) Settled(ctx context.Context, subject string, today time.Time) Result {
	name := model.NormalizeName(subject)
	res := Result{Op: OpSettle, Subject: name}
	if !s.Enabled() {
		return s.finish(skipped(res))
	}

	var errs []error
	for _, sheet := range Sheets() {
		rows, err := s.book.Rows(ctx, sheet)
		if errors.Is(err, ErrSheetNotFound) {
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to read %s: %w", sheet, err))
			continue
		}

		updates := settleRows(rows, name, today)
		if len(updates) == 0 {
			continue
		}

		if err := s.book.UpdateRows(ctx, sheet, updates); err != nil {
			errs = append(errs, fmt.Errorf("failed to update %s: %w", sheet, err))
			continue
		}
		res.Rows += len(updates)
	}

	res.Err = errors.Join(errs...)
	return s.finish(res)
}

// Deleted removes the first row on the record's sheet matching its name,
// date and stored amount. No match leaves the sheet unchanged.
func (s *Synchronizer) Deleted(ctx context.Context, inf model.Infraction) Result {
	res := Result{Op: OpDelete, Subject: inf.Subject, Sheet: inf.Sheet}
	if !s.Enabled() {
		return s.finish(skipped(res))
	}

	if res.Sheet == "" {
		sheet, err := SheetFor(inf.Code)
		if err != nil {
			res.Err = err
			return s.finish(res)
		}
		res.Sheet = sheet
	}

	rows, err := s.book.Rows(ctx, res.Sheet)
	if err != nil {
		res.Err = fmt.Errorf("failed to read %s: %w", res.Sheet, err)
		return s.finish(res)
	}

	for i, cells := range rows {
		row, ok := ParseRow(cells)
		if !ok || !row.Matches(inf.Subject, inf.Date, inf.AmountDue) {
			continue
		}
		if err := s.book.DeleteRow(ctx, res.Sheet, i); err != nil {
			res.Err = fmt.Errorf("failed to delete row %d on %s: %w", i, res.Sheet, err)
			return s.finish(res)
		}
		res.Rows = 1
		break
	}

	return s.finish(res)
}

// NextSeq returns one more than the largest sequence number on the sheet.
func NextSeq(rows [][]string) int {
	last := 0
	for _, cells := range rows {
		if len(cells) == 0 {
			continue
		}
		if seq, ok := parseSeq(cells[ColSeq]); ok && seq > last {
			last = seq
		}
	}
	return last + 1
}

func settleRows(rows [][]string, name string, today time.Time) []RowUpdate {
	var updates []RowUpdate
	for i, cells := range rows {
		row, ok := ParseRow(cells)
		if !ok || row.Subject != name || row.Due <= 0 {
			continue
		}

		// Only F:H are written so formulas elsewhere in the row survive.
		updates = append(updates, RowUpdate{
			Index:  i,
			Column: ColPaid,
			Values: []string{
				strconv.FormatInt(row.Paid+row.Due, 10),
				formatDate(&today),
				"0",
			},
		})
	}
	return updates
}

func skipped(r Result) Result {
	r.Skipped = true
	return r
}

func (s *Synchronizer) finish(r Result) Result {
	result := metrics.ResultOK
	switch {
	case r.Err != nil:
		result = metrics.ResultError
	case r.Skipped:
		result = metrics.ResultSkipped
	}
	metrics.MirrorOperations.WithLabelValues(string(r.Op), result).Inc()

	if s != nil {
		r.Log(s.logger)
	}
	return r
}
