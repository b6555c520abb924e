package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-fines-must-flow/internal/mirror"
	"github.com/Veraticus/the-fines-must-flow/internal/model"
)

func TestImport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.book.SetRows("NHAT_KI_DI_MUON", [][]string{
		mirror.Header(),
		{"1", "6", "2025-10-13", "jane doe", "late", "0", "", "10000", ""},
		{"2", "6", "2025-10-14", "Jane Doe", "late", "20000", "2025-10-20", "20000", "paid"},
		{"", "", "", "", "", "", "", "", ""},
	})
	f.book.SetRows("NGHI_HOC", [][]string{
		mirror.Header(),
		{"1", "", "2025-10-15", "An Nguyen", "", "0", "", "30000", ""},
	})

	sheets, err := SheetRows(ctx, f.book)
	require.NoError(t, err)

	steps := 0
	report, err := f.engine.Import(ctx, sheets, func() { steps++ })
	require.NoError(t, err)

	// Every category sheet carries a header row; the blank row is skipped too.
	headers := len(mirror.Sheets())
	assert.Equal(t, 3, report.Imported)
	assert.Equal(t, headers+1, report.Skipped)
	assert.Equal(t, 3+headers+1, steps)
	assert.Equal(t, 2, report.Sheets["NHAT_KI_DI_MUON"])
	assert.Equal(t, 1, report.Sheets["NGHI_HOC"])

	late, err := f.store.ListInfractions(ctx, model.InfractionFilter{Subject: "Jane Doe", Code: "VP01"})
	require.NoError(t, err)
	require.Len(t, late, 2)
	assert.Equal(t, int64(20000), late[1].AmountPaid)
	require.NotNil(t, late[1].SettledOn)

	absent, err := f.store.ListInfractions(ctx, model.InfractionFilter{Subject: "An Nguyen"})
	require.NoError(t, err)
	require.Len(t, absent, 1)
	assert.Equal(t, f.engine.Calendar().Period(absent[0].Date), absent[0].Period)

	bal, err := f.engine.Balance(ctx, "Jane Doe")
	require.NoError(t, err)
	assert.Equal(t, int64(10000), bal.Outstanding)
}

func TestImport_RefusesNonEmptyStore(t *testing.T) {
	f := newFixture(t)
	f.record(t, "Jane Doe", "VP01", "2025-10-13")

	_, err := f.engine.Import(context.Background(), map[string][][]string{}, nil)
	require.ErrorIs(t, err, ErrStoreNotEmpty)
}
