// Package testutil provides test helpers shared across the fines packages:
// an isolated in-memory database and a fluent builder for seeding records.
package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/Veraticus/the-fines-must-flow/internal/model"
	"github.com/Veraticus/the-fines-must-flow/internal/service"
	"github.com/Veraticus/the-fines-must-flow/internal/storage"
)

// TestDB is a migrated in-memory database scoped to one test.
type TestDB struct {
	Storage    *storage.SQLiteStorage
	t          *testing.T
	Categories []model.Category
}

// TestDBOptions configures SetupTestDBWithOptions.
type TestDBOptions struct {
	CustomSetup     func(context.Context, service.Storage) error
	SkipDefaultSeed bool
	ExtraCategories []model.Category
}

// SetupTestDB creates a migrated in-memory database seeded with the default
// category registry. Cleanup is registered on t.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()
	return SetupTestDBWithOptions(t, TestDBOptions{})
}

// SetupTestDBWithOptions creates a test database with custom options.
func SetupTestDBWithOptions(t *testing.T, opts TestDBOptions) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	if !opts.SkipDefaultSeed {
		if _, err := store.SeedDefaultCategories(ctx); err != nil {
			t.Fatalf("failed to seed categories: %v", err)
		}
	}

	for i := range opts.ExtraCategories {
		if err := store.UpsertCategory(ctx, &opts.ExtraCategories[i]); err != nil {
			t.Fatalf("failed to seed category %q: %v", opts.ExtraCategories[i].Code, err)
		}
	}

	if opts.CustomSetup != nil {
		if err := opts.CustomSetup(ctx, store); err != nil {
			t.Fatalf("custom setup failed: %v", err)
		}
	}

	cats, err := store.GetCategories(ctx)
	if err != nil {
		t.Fatalf("failed to load categories: %v", err)
	}

	return &TestDB{
		Storage:    store,
		Categories: cats,
		t:          t,
	}
}

// MustGetCategory returns the category with the given code or fails the test.
func (db *TestDB) MustGetCategory(code string) model.Category {
	db.t.Helper()
	for _, cat := range db.Categories {
		if cat.Code == code {
			return cat
		}
	}
	db.t.Fatalf("category %q not found in test data", code)
	return model.Category{}
}

// WithTransaction runs fn inside a transaction that is always rolled back.
func (db *TestDB) WithTransaction(fn func(tx service.Transaction) error) error {
	tx, err := db.Storage.BeginTx(context.Background())
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	return fn(tx)
}
