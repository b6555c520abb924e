package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/Veraticus/the-fines-must-flow/internal/model"
)

const codeSeparator = ", "

func joinCodes(codes []string) string {
	return strings.Join(codes, codeSeparator)
}

func splitCodes(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	codes := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			codes = append(codes, p)
		}
	}
	return codes
}

// SaveLedgerEntry records a settlement against the initiating account.
func (s *queries) SaveLedgerEntry(ctx context.Context, entry *model.LedgerEntry) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateLedgerEntry(entry); err != nil {
		return err
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO ledger_entries (id, account_id, subject, amount, codes, note, paid_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.AccountID, entry.Subject, entry.Amount,
		joinCodes(entry.Codes), entry.Note, entry.PaidAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save ledger entry: %w", err)
	}

	return nil
}

// ListLedgerEntries returns one account's settlements, newest first.
func (s *queries) ListLedgerEntries(ctx context.Context, accountID int64) ([]model.LedgerEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.listLedger(ctx, `
		SELECT id, account_id, subject, amount, codes, note, paid_at
		FROM ledger_entries
		WHERE account_id = ?
		ORDER BY paid_at DESC, id`, accountID)
}

// ListAllLedgerEntries returns every settlement, newest first.
func (s *queries) ListAllLedgerEntries(ctx context.Context) ([]model.LedgerEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.listLedger(ctx, `
		SELECT id, account_id, subject, amount, codes, note, paid_at
		FROM ledger_entries
		ORDER BY paid_at DESC, id`)
}

func (s *queries) listLedger(ctx context.Context, query string, args ...any) ([]model.LedgerEntry, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []model.LedgerEntry
	for rows.Next() {
		var (
			entry model.LedgerEntry
			codes string
		)
		if err := rows.Scan(&entry.ID, &entry.AccountID, &entry.Subject, &entry.Amount, &codes, &entry.Note, &entry.PaidAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entry.Codes = splitCodes(codes)
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger: %w", err)
	}

	return entries, nil
}
