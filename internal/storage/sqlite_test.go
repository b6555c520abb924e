package storage

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-fines-must-flow/internal/common"
	"github.com/Veraticus/the-fines-must-flow/internal/model"
	"github.com/Veraticus/the-fines-must-flow/internal/service"
)

// createTestStorage returns a migrated file-backed store.
func createTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func day(s string) time.Time {
	d, err := time.Parse(model.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func newInfraction(subject, code, date string, period int) *model.Infraction {
	return &model.Infraction{
		Subject:   subject,
		Code:      code,
		Date:      day(date),
		Period:    period,
		AmountDue: 10000,
		Reason:    "late",
	}
}

func TestSQLiteStorage_CreateAndGetInfraction(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	inf := newInfraction("Jane Doe", "VP01", "2025-09-10", 1)
	inf.Notes = "first week"
	inf.Sheet = "NHAT_KI_DI_MUON"
	require.NoError(t, store.CreateInfraction(ctx, inf))
	assert.Positive(t, inf.ID)

	got, err := store.GetInfraction(ctx, inf.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", got.Subject)
	assert.Equal(t, "VP01", got.Code)
	assert.Equal(t, 1, got.Period)
	assert.True(t, got.Date.Equal(day("2025-09-10")))
	assert.Equal(t, int64(10000), got.AmountDue)
	assert.Equal(t, "first week", got.Notes)
	assert.Equal(t, "NHAT_KI_DI_MUON", got.Sheet)
	assert.Nil(t, got.SettledOn)
	assert.False(t, got.Override)

	_, err = store.GetInfraction(ctx, 9999)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSQLiteStorage_ListInfractions(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	for _, inf := range []*model.Infraction{
		newInfraction("Jane Doe", "VP01", "2025-09-12", 1),
		newInfraction("Jane Doe", "VP01", "2025-09-09", 1),
		newInfraction("Jane Doe", "VP04", "2025-09-16", 2),
		newInfraction("John Roe", "VP01", "2025-09-09", 1),
	} {
		require.NoError(t, store.CreateInfraction(ctx, inf))
	}

	date := day("2025-09-09")
	tests := []struct {
		name     string
		filter   model.InfractionFilter
		wantLen  int
		wantDate string
	}{
		{name: "all", filter: model.InfractionFilter{}, wantLen: 4, wantDate: "2025-09-09"},
		{name: "by subject", filter: model.InfractionFilter{Subject: "Jane Doe"}, wantLen: 3, wantDate: "2025-09-09"},
		{name: "by code", filter: model.InfractionFilter{Code: "VP04"}, wantLen: 1, wantDate: "2025-09-16"},
		{name: "by period", filter: model.InfractionFilter{Period: 1}, wantLen: 3, wantDate: "2025-09-09"},
		{name: "by date", filter: model.InfractionFilter{Date: &date}, wantLen: 2, wantDate: "2025-09-09"},
		{name: "no match", filter: model.InfractionFilter{Subject: "Nobody"}, wantLen: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.ListInfractions(ctx, tt.filter)
			require.NoError(t, err)
			require.Len(t, got, tt.wantLen)
			if tt.wantLen > 0 {
				assert.Equal(t, tt.wantDate, got[0].Date.Format(model.DateLayout))
			}
		})
	}
}

func TestSQLiteStorage_CountInfractionsInGroup(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.CreateInfraction(ctx, newInfraction("Jane Doe", "VP01", "2025-09-09", 1)))
	require.NoError(t, store.CreateInfraction(ctx, newInfraction("Jane Doe", "VP01", "2025-09-10", 1)))
	require.NoError(t, store.CreateInfraction(ctx, newInfraction("Jane Doe", "VP01", "2025-09-16", 2)))

	n, err := store.CountInfractionsInGroup(ctx, model.GroupKey{Subject: "Jane Doe", Code: "VP01", Period: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	total, err := store.CountInfractions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestSQLiteStorage_MarkInfractionsPaid(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	a := newInfraction("Jane Doe", "VP01", "2025-09-09", 1)
	b := newInfraction("Jane Doe", "VP04", "2025-09-10", 1)
	require.NoError(t, store.CreateInfraction(ctx, a))
	require.NoError(t, store.CreateInfraction(ctx, b))

	settled := day("2025-09-20")
	require.NoError(t, store.MarkInfractionsPaid(ctx, []service.PaidUpdate{
		{ID: a.ID, AmountPaid: 10000, SettledOn: settled},
	}))

	got, err := store.GetInfraction(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), got.AmountPaid)
	require.NotNil(t, got.SettledOn)
	assert.True(t, got.SettledOn.Equal(settled))

	t.Run("unknown id rolls back the batch", func(t *testing.T) {
		err := store.MarkInfractionsPaid(ctx, []service.PaidUpdate{
			{ID: b.ID, AmountPaid: 10000, SettledOn: settled},
			{ID: 9999, AmountPaid: 10000, SettledOn: settled},
		})
		require.ErrorIs(t, err, common.ErrNotFound)

		got, err := store.GetInfraction(ctx, b.ID)
		require.NoError(t, err)
		assert.Zero(t, got.AmountPaid)
		assert.Nil(t, got.SettledOn)
	})

	t.Run("negative amount rejected", func(t *testing.T) {
		err := store.MarkInfractionsPaid(ctx, []service.PaidUpdate{{ID: b.ID, AmountPaid: -1, SettledOn: settled}})
		assert.ErrorIs(t, err, common.ErrValidation)
	})
}

func TestSQLiteStorage_DeleteInfraction(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	inf := newInfraction("Jane Doe", "VP01", "2025-09-09", 1)
	require.NoError(t, store.CreateInfraction(ctx, inf))

	require.NoError(t, store.DeleteInfraction(ctx, inf.ID))
	_, err := store.GetInfraction(ctx, inf.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	assert.ErrorIs(t, store.DeleteInfraction(ctx, inf.ID), common.ErrNotFound)
}

func TestSQLiteStorage_Categories(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	n, err := store.SeedDefaultCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(model.DefaultCategories()), n)

	again, err := store.SeedDefaultCategories(ctx)
	require.NoError(t, err)
	assert.Zero(t, again, "seeding a populated registry is a no-op")

	cats, err := store.GetCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 6)
	assert.Equal(t, "VP01", cats[0].Code)
	assert.Equal(t, "VP06", cats[5].Code)
	assert.Equal(t, int64(30000), cats[5].DefaultAmount)

	require.NoError(t, store.UpdateCategoryAmount(ctx, "VP02", 5000))
	vp02, err := store.GetCategory(ctx, "VP02")
	require.NoError(t, err)
	assert.Equal(t, int64(5000), vp02.DefaultAmount)

	assert.ErrorIs(t, store.UpdateCategoryAmount(ctx, "VP99", 5000), common.ErrNotFound)
	assert.ErrorIs(t, store.UpdateCategoryAmount(ctx, "VP02", -1), common.ErrValidation)

	_, err = store.GetCategory(ctx, "VP99")
	assert.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, store.UpsertCategory(ctx, &model.Category{Code: "VP02", Description: "Stranger", DefaultAmount: 0}))
	vp02, err = store.GetCategory(ctx, "VP02")
	require.NoError(t, err)
	assert.Equal(t, "Stranger", vp02.Description)
	assert.Zero(t, vp02.DefaultAmount)
}

func TestSQLiteStorage_Ledger(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	older := &model.LedgerEntry{
		ID: "a", AccountID: 1, Subject: "Jane Doe", Amount: 10000,
		Codes: []string{"VP01"}, Note: "Jane Doe 10.000 VP01",
		PaidAt: time.Date(2025, 9, 10, 8, 0, 0, 0, time.UTC),
	}
	newer := &model.LedgerEntry{
		ID: "b", AccountID: 1, Subject: "Jane Doe", Amount: 60000,
		Codes: []string{"VP01", "VP04"}, Note: "Jane Doe 60.000 VP01, VP04",
		PaidAt: time.Date(2025, 9, 20, 8, 0, 0, 0, time.UTC),
	}
	other := &model.LedgerEntry{
		ID: "c", AccountID: 2, Subject: "John Roe", Amount: 30000,
		Codes: []string{"VP06"}, PaidAt: time.Date(2025, 9, 15, 8, 0, 0, 0, time.UTC),
	}
	for _, e := range []*model.LedgerEntry{older, newer, other} {
		require.NoError(t, store.SaveLedgerEntry(ctx, e))
	}

	mine, err := store.ListLedgerEntries(ctx, 1)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "b", mine[0].ID)
	assert.Equal(t, []string{"VP01", "VP04"}, mine[0].Codes)

	all, err := store.ListAllLedgerEntries(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"b", "c", "a"}, []string{all[0].ID, all[1].ID, all[2].ID})

	assert.ErrorIs(t, store.SaveLedgerEntry(ctx, &model.LedgerEntry{ID: "d", AccountID: 1}), common.ErrValidation)
}

func TestSQLiteStorage_Transaction(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	t.Run("commit", func(t *testing.T) {
		tx, err := store.BeginTx(ctx)
		require.NoError(t, err)
		require.NoError(t, tx.CreateInfraction(ctx, newInfraction("Jane Doe", "VP01", "2025-09-09", 1)))
		require.NoError(t, tx.Commit())

		n, err := store.CountInfractions(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("rollback", func(t *testing.T) {
		tx, err := store.BeginTx(ctx)
		require.NoError(t, err)
		require.NoError(t, tx.CreateInfraction(ctx, newInfraction("John Roe", "VP01", "2025-09-09", 1)))
		require.NoError(t, tx.Rollback())

		n, err := store.CountInfractions(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("unsupported operations", func(t *testing.T) {
		tx, err := store.BeginTx(ctx)
		require.NoError(t, err)
		defer func() { _ = tx.Rollback() }()

		assert.Error(t, tx.Migrate(ctx))
		_, err = tx.BeginTx(ctx)
		assert.Error(t, err)
		assert.Error(t, tx.Close())
	})
}

func TestSQLiteStorage_ConcurrentAccess(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 20)

	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if err := store.CreateInfraction(ctx, newInfraction("Jane Doe", "VP01", "2025-09-09", 1)); err != nil {
				errs <- err
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := store.ListAllInfractions(ctx); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent access error: %v", err)
	}

	n, err := store.CountInfractions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, n)
}

func TestNewSQLiteStorage_EmptyPath(t *testing.T) {
	_, err := NewSQLiteStorage("  ")
	assert.ErrorIs(t, err, ErrEmptyString)
}
