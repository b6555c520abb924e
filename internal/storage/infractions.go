package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/the-fines-must-flow/internal/common"
	"github.com/Veraticus/the-fines-must-flow/internal/model"
	"github.com/Veraticus/the-fines-must-flow/internal/service"
)

const infractionColumns = `id, code, subject, period, date, amount_due, amount_paid,
	settled_on, reason, notes, sheet, override, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInfraction(row rowScanner) (model.Infraction, error) {
	var (
		inf       model.Infraction
		date      string
		settledOn sql.NullString
	)

	err := row.Scan(
		&inf.ID, &inf.Code, &inf.Subject, &inf.Period, &date,
		&inf.AmountDue, &inf.AmountPaid, &settledOn,
		&inf.Reason, &inf.Notes, &inf.Sheet, &inf.Override, &inf.CreatedAt,
	)
	if err != nil {
		return inf, err
	}

	if inf.Date, err = time.Parse(model.DateLayout, date); err != nil {
		return inf, fmt.Errorf("%w: infraction %d has date %q", common.ErrDatabaseCorrupted, inf.ID, date)
	}

	if settledOn.Valid && settledOn.String != "" {
		t, parseErr := time.Parse(model.DateLayout, settledOn.String)
		if parseErr != nil {
			return inf, fmt.Errorf("%w: infraction %d has settlement date %q", common.ErrDatabaseCorrupted, inf.ID, settledOn.String)
		}
		inf.SettledOn = &t
	}

	return inf, nil
}

func formatOptionalDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(model.DateLayout)
}

// CreateInfraction inserts a record and assigns its ID.
func (s *queries) CreateInfraction(ctx context.Context, inf *model.Infraction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateInfraction(inf); err != nil {
		return err
	}

	if inf.CreatedAt.IsZero() {
		inf.CreatedAt = time.Now().UTC()
	}

	result, err := s.q.ExecContext(ctx, `
		INSERT INTO infractions (code, subject, period, date, amount_due, amount_paid,
			settled_on, reason, notes, sheet, override, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inf.Code, inf.Subject, inf.Period, inf.Date.Format(model.DateLayout),
		inf.AmountDue, inf.AmountPaid, formatOptionalDate(inf.SettledOn),
		inf.Reason, inf.Notes, inf.Sheet, inf.Override, inf.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert infraction: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get infraction ID: %w", err)
	}
	inf.ID = id

	return nil
}

// GetInfraction returns a single record or common.ErrNotFound.
func (s *queries) GetInfraction(ctx context.Context, id int64) (*model.Infraction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.q.QueryRowContext(ctx, `SELECT `+infractionColumns+` FROM infractions WHERE id = ?`, id)
	inf, err := scanInfraction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFoundf("infraction %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get infraction %d: %w", id, err)
	}

	return &inf, nil
}

// ListInfractions returns records matching the filter ordered by date, then ID.
func (s *queries) ListInfractions(ctx context.Context, filter model.InfractionFilter) ([]model.Infraction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var (
		where []string
		args  []any
	)
	if filter.Subject != "" {
		where = append(where, "subject = ?")
		args = append(args, filter.Subject)
	}
	if filter.Code != "" {
		where = append(where, "code = ?")
		args = append(args, filter.Code)
	}
	if filter.Period > 0 {
		where = append(where, "period = ?")
		args = append(args, filter.Period)
	}
	if filter.Date != nil {
		where = append(where, "date = ?")
		args = append(args, filter.Date.Format(model.DateLayout))
	}

	query := `SELECT ` + infractionColumns + ` FROM infractions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date, id"

	return s.listInfractions(ctx, query, args...)
}

// ListAllInfractions returns every record.
func (s *queries) ListAllInfractions(ctx context.Context) ([]model.Infraction, error) {
	return s.ListInfractions(ctx, model.InfractionFilter{})
}

// ListInfractionsBySubject returns one subject's records in group order.
func (s *queries) ListInfractionsBySubject(ctx context.Context, subject string) ([]model.Infraction, error) {
	if err := validateString(subject, "subject"); err != nil {
		return nil, err
	}
	return s.ListInfractions(ctx, model.InfractionFilter{Subject: model.NormalizeName(subject)})
}

func (s *queries) listInfractions(ctx context.Context, query string, args ...any) ([]model.Infraction, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query infractions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var infractions []model.Infraction
	for rows.Next() {
		inf, err := scanInfraction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan infraction: %w", err)
		}
		infractions = append(infractions, inf)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating infractions: %w", err)
	}

	return infractions, nil
}

// CountInfractionsInGroup counts the records sharing subject, period and code.
func (s *queries) CountInfractionsInGroup(ctx context.Context, key model.GroupKey) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var count int
	err := s.q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM infractions
		WHERE subject = ? AND period = ? AND code = ?`,
		key.Subject, key.Period, key.Code,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count infractions: %w", err)
	}

	return count, nil
}

// CountInfractions returns the number of stored records.
func (s *queries) CountInfractions(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var count int
	if err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM infractions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count infractions: %w", err)
	}
	return count, nil
}

// MarkInfractionsPaid writes amount paid and settlement date for each update.
// Unknown IDs fail the whole batch.
func (s *queries) MarkInfractionsPaid(ctx context.Context, updates []service.PaidUpdate) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	for _, u := range updates {
		if u.AmountPaid < 0 {
			return fmt.Errorf("%w: negative amount paid for infraction %d", ErrInvalidInfraction, u.ID)
		}

		result, err := s.q.ExecContext(ctx, `
			UPDATE infractions SET amount_paid = ?, settled_on = ? WHERE id = ?`,
			u.AmountPaid, u.SettledOn.Format(model.DateLayout), u.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to mark infraction %d paid: %w", u.ID, err)
		}
		if err := requireAffected(result); err != nil {
			return common.NotFoundf("infraction %d", u.ID)
		}
	}

	return nil
}

// DeleteInfraction removes a record and its complaints or returns
// common.ErrNotFound.
func (s *queries) DeleteInfraction(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	if _, err := s.q.ExecContext(ctx, `DELETE FROM complaints WHERE infraction_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete complaints for infraction %d: %w", id, err)
	}

	result, err := s.q.ExecContext(ctx, `DELETE FROM infractions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete infraction %d: %w", id, err)
	}
	if err := requireAffected(result); err != nil {
		return common.NotFoundf("infraction %d", id)
	}

	return nil
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errNoRowsAffected
	}
	return nil
}
