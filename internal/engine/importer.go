package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/Veraticus/the-fines-must-flow/internal/mirror"
	"github.com/Veraticus/the-fines-must-flow/internal/model"
)

// ErrStoreNotEmpty is returned when importing into a store that already
// holds records.
var ErrStoreNotEmpty = errors.New("store already has infractions")

// ImportReport counts what an import did per sheet.
type ImportReport struct {
	Sheets   map[string]int
	Imported int
	Skipped  int
}

// SheetRows reads every category sheet present in book. Missing sheets are
// left out of the result.
func SheetRows(ctx context.Context, book mirror.Workbook) (map[string][][]string, error) {
	out := make(map[string][][]string)
	for _, sheet := range mirror.Sheets() {
		ok, err := book.HasSheet(ctx, sheet)
		if err != nil {
			return nil, fmt.Errorf("failed to check %s: %w", sheet, err)
		}
		if !ok {
			continue
		}
		rows, err := book.Rows(ctx, sheet)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", sheet, err)
		}
		out[sheet] = rows
	}
	return out, nil
}

// Import loads the rows of the category sheets into an empty store in one
// transaction. step, if set, is called once per row examined. Rows that
// are not data or have no date are skipped. Imported amounts are stored
// as the base amount; computed dues still come from the category
// defaults.
func (e *Engine) Import(ctx context.Context, sheets map[string][][]string, step func()) (*ImportReport, error) {
	count, err := e.store.CountInfractions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count infractions: %w", err)
	}
	if count > 0 {
		return nil, fmt.Errorf("%w: %d records", ErrStoreNotEmpty, count)
	}

	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	report := &ImportReport{Sheets: make(map[string]int)}
	for _, sheet := range mirror.Sheets() {
		code, _ := mirror.CodeFor(sheet)
		for _, cells := range sheets[sheet] {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if step != nil {
				step()
			}

			row, ok := mirror.ParseRow(cells)
			if !ok || row.Date.IsZero() || row.Subject == "" {
				report.Skipped++
				continue
			}

			inf := model.Infraction{
				Code:       code,
				Subject:    row.Subject,
				Date:       row.Date,
				Period:     row.Period,
				AmountDue:  row.Due,
				AmountPaid: row.Paid,
				SettledOn:  row.SettledOn,
				Reason:     row.Reason,
				Notes:      row.Notes,
				Sheet:      sheet,
			}
			if inf.Period <= 0 {
				inf.Period = e.config.Calendar.Period(inf.Date)
			}
			if err := tx.CreateInfraction(ctx, &inf); err != nil {
				return nil, fmt.Errorf("failed to import %s row %d: %w", sheet, row.Seq, err)
			}
			report.Sheets[sheet]++
			report.Imported++
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit import: %w", err)
	}

	e.logger.Info("imported workbook", "imported", report.Imported, "skipped", report.Skipped)
	return report, nil
}
