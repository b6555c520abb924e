package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-fines-must-flow/internal/common"
	"github.com/Veraticus/the-fines-must-flow/internal/settlement"
	"github.com/Veraticus/the-fines-must-flow/internal/testutil"
)

func seedSummary(t *testing.T, f *fixture) {
	t.Helper()
	f.record(t, "Jane Doe", "VP01", "2025-10-06")
	f.record(t, "Jane Doe", "VP01", "2025-10-07")
	f.record(t, "An Nguyen", "VP04", "2025-10-07")
	f.record(t, "An Nguyen", "VP06", "2025-10-13")

	_, err := f.engine.Settle(context.Background(), settlement.Request{Subject: "An Nguyen", AccountID: f.admin.ID})
	require.NoError(t, err)
}

func TestSummary(t *testing.T) {
	f := newFixture(t)
	seedSummary(t, f)
	ctx := context.Background()

	all, err := f.engine.Summary(ctx, SummaryFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "An Nguyen", all[0].Subject)
	assert.Equal(t, int64(40000), all[0].Paid)
	assert.True(t, all[0].Settled())
	assert.Equal(t, "Jane Doe", all[1].Subject)
	assert.Equal(t, int64(30000), all[1].Outstanding)
	assert.Equal(t, []string{"VP01"}, all[1].Codes)

	unpaid, err := f.engine.Summary(ctx, SummaryFilter{Status: "unpaid"})
	require.NoError(t, err)
	require.Len(t, unpaid, 1)
	assert.Equal(t, "Jane Doe", unpaid[0].Subject)

	paid, err := f.engine.Summary(ctx, SummaryFilter{Status: "PAID"})
	require.NoError(t, err)
	require.Len(t, paid, 1)
	assert.Equal(t, "An Nguyen", paid[0].Subject)

	one, err := f.engine.Summary(ctx, SummaryFilter{Subject: "jane doe"})
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Len(t, one[0].Lines, 2)

	period, err := f.engine.Summary(ctx, SummaryFilter{Period: 6})
	require.NoError(t, err)
	require.Len(t, period, 1)
	assert.Equal(t, int64(30000), period[0].Due)

	_, err = f.engine.Summary(ctx, SummaryFilter{Status: "overdue"})
	assert.ErrorIs(t, err, common.ErrValidation)

	outstanding, err := f.engine.Outstanding(ctx)
	require.NoError(t, err)
	assert.Len(t, outstanding, 1)
}

func TestSummary_PeriodFilterKeepsGlobalPositions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.record(t, "Jane Doe", "VP01", "2025-10-06")
	f.record(t, "Jane Doe", "VP01", "2025-10-07")

	got, err := f.engine.Summary(ctx, SummaryFilter{Period: 5})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(30000), got[0].Due)
}

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	seedSummary(t, f)

	d, err := f.engine.Dashboard(context.Background(), testutil.MustDate(t, "2025-10-14"))
	require.NoError(t, err)

	assert.Equal(t, 6, d.CurrentPeriod)
	assert.Equal(t, 35, d.RosterSize)
	assert.Equal(t, 4, d.Records)
	assert.Equal(t, int64(70000), d.Due)
	assert.Equal(t, int64(40000), d.Paid)
	assert.Equal(t, int64(30000), d.Outstanding)
	assert.Equal(t, []PeriodCount{{Period: 5, Count: 3}, {Period: 6, Count: 1}}, d.Periods)

	require.Len(t, d.Current, 1)
	assert.Equal(t, "An Nguyen", d.Current[0].Subject)
	assert.Equal(t, int64(30000), d.Current[0].Due)
}

func TestDashboard_LargeRoster(t *testing.T) {
	f := newFixture(t)
	f.engine.roster = bigRoster(40)

	d, err := f.engine.Dashboard(context.Background(), testutil.MustDate(t, "2025-10-14"))
	require.NoError(t, err)
	assert.Equal(t, 40, d.RosterSize)
	assert.Zero(t, d.Records)
	assert.Empty(t, d.Current)
}

type bigRoster int

func (r bigRoster) Len() int        { return int(r) }
func (r bigRoster) Names() []string { return nil }

func TestSummary_StatusSelectsRecords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.record(t, "Jane Doe", "VP01", "2025-10-06")
	f.record(t, "Jane Doe", "VP01", "2025-10-07")
	_, err := f.engine.Settle(ctx, settlement.Request{Subject: "Jane Doe", AccountID: f.admin.ID})
	require.NoError(t, err)
	late := f.record(t, "Jane Doe", "VP01", "2025-10-13")

	paid, err := f.engine.Summary(ctx, SummaryFilter{Status: StatusPaid})
	require.NoError(t, err)
	require.Len(t, paid, 1, "a subject with some unpaid records still lists its paid ones")
	assert.Len(t, paid[0].Lines, 2)
	assert.Equal(t, int64(30000), paid[0].Paid)
	assert.Zero(t, paid[0].Outstanding)

	unpaid, err := f.engine.Summary(ctx, SummaryFilter{Status: StatusUnpaid})
	require.NoError(t, err)
	require.Len(t, unpaid, 1)
	require.Len(t, unpaid[0].Lines, 1)
	assert.Equal(t, late.ID, unpaid[0].Lines[0].ID)
	assert.Equal(t, int64(10000), unpaid[0].Outstanding)
}
