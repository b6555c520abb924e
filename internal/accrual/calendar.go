package accrual

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Veraticus/the-fines-must-flow/internal/common"
	"github.com/Veraticus/the-fines-must-flow/internal/model"
)

const day = 24 * time.Hour

// Break is an inclusive range of dates that does not count toward periods.
type Break struct {
	Start time.Time
	End   time.Time
}

// Days returns the number of dates covered by the break.
func (b Break) Days() int {
	return int(dateOnly(b.End).Sub(dateOnly(b.Start))/day) + 1
}

func (b Break) contains(d time.Time) bool {
	return !d.Before(dateOnly(b.Start)) && !d.After(dateOnly(b.End))
}

// Calendar numbers seven-day periods from a start date, skipping breaks.
type Calendar struct {
	Start  time.Time
	Breaks []Break
}

// DefaultCalendar starts on Monday 2025-09-08 and skips the
// 2026-02-15..2026-02-28 holiday.
func DefaultCalendar() Calendar {
	return Calendar{
		Start: time.Date(2025, time.September, 8, 0, 0, 0, 0, time.UTC),
		Breaks: []Break{{
			Start: time.Date(2026, time.February, 15, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2026, time.February, 28, 0, 0, 0, 0, time.UTC),
		}},
	}
}

// Period returns the 1-based period containing d. Dates before the start
// fall in period 1; dates inside a break count as the day before it.
func (c Calendar) Period(d time.Time) int {
	start := dateOnly(c.Start)
	effective := dateOnly(d)
	if effective.Before(start) {
		return 1
	}

	breaks := make([]Break, len(c.Breaks))
	copy(breaks, c.Breaks)
	sort.Slice(breaks, func(i, j int) bool { return breaks[i].Start.Before(breaks[j].Start) })

	for _, b := range breaks {
		if b.contains(effective) {
			effective = dateOnly(b.Start).Add(-day)
			break
		}
	}

	days := int(effective.Sub(start) / day)
	for _, b := range breaks {
		if effective.After(dateOnly(b.End)) && !dateOnly(b.Start).Before(start) {
			days -= b.Days()
		}
	}
	if days < 0 {
		days = 0
	}

	return days/7 + 1
}

// ParseBreak reads a "YYYY-MM-DD..YYYY-MM-DD" range.
func ParseBreak(s string) (Break, error) {
	from, to, ok := strings.Cut(strings.TrimSpace(s), "..")
	if !ok {
		return Break{}, common.Validationf("break %q must look like 2026-02-15..2026-02-28", s)
	}

	start, err := time.Parse(model.DateLayout, strings.TrimSpace(from))
	if err != nil {
		return Break{}, common.Validationf("break %q: bad start date", s)
	}
	end, err := time.Parse(model.DateLayout, strings.TrimSpace(to))
	if err != nil {
		return Break{}, common.Validationf("break %q: bad end date", s)
	}
	if end.Before(start) {
		return Break{}, common.Validationf("break %q ends before it starts", s)
	}

	return Break{Start: start, End: end}, nil
}

// NewCalendar builds a calendar from a start date and break ranges.
func NewCalendar(start string, breaks []string) (Calendar, error) {
	s, err := time.Parse(model.DateLayout, strings.TrimSpace(start))
	if err != nil {
		return Calendar{}, fmt.Errorf("period start %q: %w", start, common.ErrInvalidConfig)
	}

	cal := Calendar{Start: s}
	for _, raw := range breaks {
		b, err := ParseBreak(raw)
		if err != nil {
			return Calendar{}, err
		}
		cal.Breaks = append(cal.Breaks, b)
	}
	return cal, nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
