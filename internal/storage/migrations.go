package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 4

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

func execAll(tx *sql.Tx, queries []string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query '%s': %w", query, err)
		}
	}
	return nil
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema: categories and infractions",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS categories (
					code TEXT PRIMARY KEY,
					description TEXT NOT NULL,
					default_amount INTEGER NOT NULL DEFAULT 0 CHECK (default_amount >= 0),
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE TABLE IF NOT EXISTS infractions (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					code TEXT NOT NULL,
					subject TEXT NOT NULL,
					period INTEGER NOT NULL,
					date TEXT NOT NULL,
					amount_due INTEGER NOT NULL DEFAULT 0,
					amount_paid INTEGER NOT NULL DEFAULT 0,
					settled_on TEXT,
					reason TEXT NOT NULL DEFAULT '',
					notes TEXT NOT NULL DEFAULT '',
					sheet TEXT NOT NULL DEFAULT '',
					override BOOLEAN NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_infractions_group ON infractions(subject, period, code)`,
				`CREATE INDEX idx_infractions_date ON infractions(date)`,
			})
		},
	},
	{
		Version:     2,
		Description: "Add payment ledger",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS ledger_entries (
					id TEXT PRIMARY KEY,
					account_id INTEGER NOT NULL,
					subject TEXT NOT NULL,
					amount INTEGER NOT NULL,
					codes TEXT NOT NULL DEFAULT '',
					note TEXT NOT NULL DEFAULT '',
					paid_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_ledger_account ON ledger_entries(account_id, paid_at)`,
			})
		},
	},
	{
		Version:     3,
		Description: "Add accounts and notifications",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS accounts (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					username TEXT UNIQUE NOT NULL,
					display_name TEXT NOT NULL,
					subject TEXT NOT NULL DEFAULT '',
					is_admin BOOLEAN NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_accounts_subject ON accounts(subject)`,
				`CREATE TABLE IF NOT EXISTS notifications (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					account_id INTEGER NOT NULL,
					message TEXT NOT NULL,
					link TEXT NOT NULL DEFAULT '',
					is_read BOOLEAN NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (account_id) REFERENCES accounts(id)
				)`,
				`CREATE INDEX idx_notifications_account ON notifications(account_id, is_read)`,
			})
		},
	},
	{
		Version:     4,
		Description: "Add complaints",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS complaints (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					infraction_id INTEGER NOT NULL,
					account_id INTEGER NOT NULL DEFAULT 0,
					code TEXT NOT NULL DEFAULT '',
					subject TEXT NOT NULL DEFAULT '',
					email TEXT NOT NULL,
					message TEXT NOT NULL,
					resolved BOOLEAN NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_complaints_infraction ON complaints(infraction_id)`,
			})
		},
	},
}

// SchemaVersion reports the version recorded in the database.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	currentVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	finalVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
