package accrual

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-fines-must-flow/internal/common"
)

func TestCalendar_Period(t *testing.T) {
	cal := DefaultCalendar()

	tests := []struct {
		date string
		want int
	}{
		{date: "2025-09-01", want: 1},
		{date: "2025-09-08", want: 1},
		{date: "2025-09-14", want: 1},
		{date: "2025-09-15", want: 2},
		{date: "2025-10-06", want: 5},
		{date: "2026-02-14", want: 23},
		{date: "2026-02-15", want: 23},
		{date: "2026-02-28", want: 23},
		{date: "2026-03-01", want: 23},
		{date: "2026-03-02", want: 24},
	}

	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			assert.Equal(t, tt.want, cal.Period(date(tt.date)))
		})
	}
}

func TestCalendar_NoBreaks(t *testing.T) {
	cal := Calendar{Start: date("2025-09-08")}
	assert.Equal(t, 26, cal.Period(date("2026-03-02")))
}

func TestParseBreak(t *testing.T) {
	b, err := ParseBreak(" 2026-02-15..2026-02-28 ")
	require.NoError(t, err)
	assert.Equal(t, 14, b.Days())

	for _, bad := range []string{"2026-02-15", "x..2026-02-28", "2026-02-15..y", "2026-02-28..2026-02-15"} {
		_, err := ParseBreak(bad)
		assert.ErrorIs(t, err, common.ErrValidation, bad)
	}
}

func TestNewCalendar(t *testing.T) {
	cal, err := NewCalendar("2025-09-08", []string{"2026-02-15..2026-02-28"})
	require.NoError(t, err)
	assert.Equal(t, DefaultCalendar(), cal)

	_, err = NewCalendar("soon", nil)
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}
