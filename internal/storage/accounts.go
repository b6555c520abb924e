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
)

const accountColumns = `id, username, display_name, subject, is_admin, created_at`

func scanAccount(row rowScanner) (model.Account, error) {
	var acct model.Account
	err := row.Scan(&acct.ID, &acct.Username, &acct.DisplayName, &acct.Subject, &acct.IsAdmin, &acct.CreatedAt)
	return acct, err
}

// CreateAccount inserts an account. Usernames are stored lower-case and must
// be unique.
func (s *queries) CreateAccount(ctx context.Context, acct *model.Account) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAccount(acct); err != nil {
		return err
	}

	acct.Username = strings.ToLower(strings.TrimSpace(acct.Username))
	acct.Subject = model.NormalizeName(acct.Subject)
	if acct.CreatedAt.IsZero() {
		acct.CreatedAt = time.Now().UTC()
	}

	if existing, err := s.GetAccountByUsername(ctx, acct.Username); err == nil && existing != nil {
		return fmt.Errorf("%w: username %q", common.ErrDuplicateEntry, acct.Username)
	} else if err != nil && !errors.Is(err, common.ErrNotFound) {
		return err
	}

	result, err := s.q.ExecContext(ctx, `
		INSERT INTO accounts (username, display_name, subject, is_admin, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		acct.Username, acct.DisplayName, acct.Subject, acct.IsAdmin, acct.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get account ID: %w", err)
	}
	acct.ID = id

	return nil
}

// GetAccount returns an account by ID or common.ErrNotFound.
func (s *queries) GetAccount(ctx context.Context, id int64) (*model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getAccount(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
}

// GetAccountByUsername returns an account by username or common.ErrNotFound.
func (s *queries) GetAccountByUsername(ctx context.Context, username string) (*model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(username, "username"); err != nil {
		return nil, err
	}
	return s.getAccount(ctx, `SELECT `+accountColumns+` FROM accounts WHERE username = ?`,
		strings.ToLower(strings.TrimSpace(username)))
}

func (s *queries) getAccount(ctx context.Context, query string, arg any) (*model.Account, error) {
	acct, err := scanAccount(s.q.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFoundf("account %v", arg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &acct, nil
}

// ListAccounts returns every account, newest first.
func (s *queries) ListAccounts(ctx context.Context) ([]model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.listAccounts(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY created_at DESC, id DESC`)
}

// ListAdmins returns every administrative account ordered by ID.
func (s *queries) ListAdmins(ctx context.Context) ([]model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.listAccounts(ctx, `SELECT `+accountColumns+` FROM accounts WHERE is_admin = 1 ORDER BY id`)
}

func (s *queries) listAccounts(ctx context.Context, query string, args ...any) ([]model.Account, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var accounts []model.Account
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, acct)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}

	return accounts, nil
}

// FindAccountForSubject returns the account linked to subject, falling back
// to an account whose display name equals the subject. Returns
// common.ErrNotFound when neither exists.
func (s *queries) FindAccountForSubject(ctx context.Context, subject string) (*model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(subject, "subject"); err != nil {
		return nil, err
	}

	acct, err := s.getAccount(ctx, `SELECT `+accountColumns+` FROM accounts WHERE subject = ? ORDER BY id LIMIT 1`, subject)
	if err == nil || !errors.Is(err, common.ErrNotFound) {
		return acct, err
	}

	return s.getAccount(ctx, `SELECT `+accountColumns+` FROM accounts WHERE display_name = ? ORDER BY id LIMIT 1`, subject)
}

// LinkSubject associates an account with a subject.
func (s *queries) LinkSubject(ctx context.Context, accountID int64, subject string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(subject, "subject"); err != nil {
		return err
	}

	result, err := s.q.ExecContext(ctx, `UPDATE accounts SET subject = ? WHERE id = ?`, model.NormalizeName(subject), accountID)
	if err != nil {
		return fmt.Errorf("failed to link subject: %w", err)
	}
	if err := requireAffected(result); err != nil {
		return common.NotFoundf("account %d", accountID)
	}
	return nil
}

// SetAdmin grants or revokes administrative rights.
func (s *queries) SetAdmin(ctx context.Context, accountID int64, isAdmin bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.q.ExecContext(ctx, `UPDATE accounts SET is_admin = ? WHERE id = ?`, isAdmin, accountID)
	if err != nil {
		return fmt.Errorf("failed to update admin flag: %w", err)
	}
	if err := requireAffected(result); err != nil {
		return common.NotFoundf("account %d", accountID)
	}
	return nil
}
