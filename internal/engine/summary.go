package engine

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/Veraticus/the-fines-must-flow/internal/accrual"
	"github.com/Veraticus/the-fines-must-flow/internal/common"
	"github.com/Veraticus/the-fines-must-flow/internal/model"
)

// Summary statuses.
const (
	StatusAny    = ""
	StatusPaid   = "paid"
	StatusUnpaid = "unpaid"
)

// SummaryFilter narrows Summary. Zero values mean "any".
type SummaryFilter struct {
	Subject string
	Status  string
	Period  int
}

// Summary totals each subject's records. Dues are always computed over the
// whole store; the filter only selects which records and subjects appear.
// Status applies per record: paid keeps records with nothing outstanding,
// unpaid keeps records that still owe.
func (e *Engine) Summary(ctx context.Context, filter SummaryFilter) ([]accrual.Balance, error) {
	status := strings.ToLower(strings.TrimSpace(filter.Status))
	if status != StatusAny && status != StatusPaid && status != StatusUnpaid {
		return nil, common.Validationf("unknown status %q", filter.Status)
	}
	subject := model.NormalizeName(filter.Subject)

	records, dues, err := e.computed(ctx)
	if err != nil {
		return nil, err
	}

	selected := records[:0:0]
	for _, inf := range records {
		if subject != "" && inf.Subject != subject {
			continue
		}
		if filter.Period > 0 && inf.Period != filter.Period {
			continue
		}
		owed := accrual.Outstanding(dues[inf.ID], inf.AmountPaid)
		if status == StatusPaid && owed > 0 || status == StatusUnpaid && owed == 0 {
			continue
		}
		selected = append(selected, inf)
	}

	return accrual.Balances(selected, dues), nil
}

// Outstanding lists the subjects that still owe something.
func (e *Engine) Outstanding(ctx context.Context) ([]accrual.Balance, error) {
	return e.Summary(ctx, SummaryFilter{Status: StatusUnpaid})
}

// PeriodCount is the number of records in one period.
type PeriodCount struct {
	Period int
	Count  int
}

// Dashboard is the overview shown on the home screen.
type Dashboard struct {
	Today         time.Time
	Current       []accrual.Balance // per-subject totals for the current period
	Periods       []PeriodCount     // ascending by period
	Due           int64
	Paid          int64
	Outstanding   int64
	CurrentPeriod int
	RosterSize    int
	Records       int
}

// Dashboard aggregates the whole store as of today.
func (e *Engine) Dashboard(ctx context.Context, today time.Time) (*Dashboard, error) {
	records, dues, err := e.computed(ctx)
	if err != nil {
		return nil, err
	}

	d := &Dashboard{
		Today:         today,
		CurrentPeriod: e.config.Calendar.Period(today),
		RosterSize:    e.config.MinRosterSize,
		Records:       len(records),
	}
	if e.roster != nil && e.roster.Len() > d.RosterSize {
		d.RosterSize = e.roster.Len()
	}

	counts := make(map[int]int)
	var current []model.Infraction
	for _, inf := range records {
		due := dues[inf.ID]
		d.Due += due
		d.Paid += inf.AmountPaid
		d.Outstanding += accrual.Outstanding(due, inf.AmountPaid)
		counts[inf.Period]++
		if inf.Period == d.CurrentPeriod {
			current = append(current, inf)
		}
	}

	for period, n := range counts {
		d.Periods = append(d.Periods, PeriodCount{Period: period, Count: n})
	}
	sort.Slice(d.Periods, func(i, j int) bool { return d.Periods[i].Period < d.Periods[j].Period })

	d.Current = accrual.Balances(current, dues)
	return d, nil
}
