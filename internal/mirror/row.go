// Package mirror keeps the spreadsheet copy of the infraction log in step
// with the database. The spreadsheet has one sheet per category and a fixed
// nine-column layout; it has no record IDs, so rows are matched by name,
// date and amount.
package mirror

import (
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/the-fines-must-flow/internal/model"
)

// Column positions in a mirror row.
const (
	ColSeq = iota
	ColPeriod
	ColDate
	ColSubject
	ColReason
	ColPaid
	ColSettled
	ColDue
	ColNotes

	Columns
)

// excelEpoch is day zero for spreadsheet serial dates.
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// Row is one data row of a category sheet.
type Row struct {
	Date      time.Time
	SettledOn *time.Time
	Subject   string
	Reason    string
	Notes     string
	Seq       int
	Period    int
	Paid      int64
	Due       int64
}

// RowFor builds the row appended when a record is created.
func RowFor(inf model.Infraction, seq int) Row {
	return Row{
		Seq:       seq,
		Period:    inf.Period,
		Date:      inf.Date,
		Subject:   model.NormalizeName(inf.Subject),
		Reason:    inf.Reason,
		Paid:      inf.AmountPaid,
		SettledOn: inf.SettledOn,
		Due:       inf.AmountDue,
		Notes:     inf.Notes,
	}
}

// ParseRow reads a sheet row. It reports false for header, separator and
// malformed rows; only rows with a positive integer sequence number and
// well-formed typed columns are data.
func ParseRow(cells []string) (Row, bool) {
	seq, ok := parseSeq(cell(cells, ColSeq))
	if !ok {
		return Row{}, false
	}

	row := Row{
		Seq:     seq,
		Subject: model.NormalizeName(cell(cells, ColSubject)),
		Reason:  strings.TrimSpace(cell(cells, ColReason)),
		Notes:   strings.TrimSpace(cell(cells, ColNotes)),
	}

	if row.Period, ok = parseInt(cell(cells, ColPeriod)); !ok {
		return Row{}, false
	}

	date, ok := parseDate(cell(cells, ColDate))
	if !ok {
		return Row{}, false
	}
	if date != nil {
		row.Date = *date
	}

	if row.SettledOn, ok = parseDate(cell(cells, ColSettled)); !ok {
		return Row{}, false
	}
	if row.Paid, ok = ParseAmount(cell(cells, ColPaid)); !ok {
		return Row{}, false
	}
	if row.Due, ok = ParseAmount(cell(cells, ColDue)); !ok {
		return Row{}, false
	}

	return row, true
}

// Values renders the row in column order for writing.
func (r Row) Values() []string {
	values := make([]string, Columns)
	values[ColSeq] = strconv.Itoa(r.Seq)
	values[ColPeriod] = formatPeriod(r.Period)
	values[ColDate] = formatDate(&r.Date)
	values[ColSubject] = r.Subject
	values[ColReason] = r.Reason
	values[ColPaid] = strconv.FormatInt(r.Paid, 10)
	values[ColSettled] = formatDate(r.SettledOn)
	values[ColDue] = strconv.FormatInt(r.Due, 10)
	values[ColNotes] = r.Notes
	return values
}

// Matches reports whether the row describes the given name, date and
// stored amount.
func (r Row) Matches(subject string, date time.Time, due int64) bool {
	return r.Subject == model.NormalizeName(subject) &&
		r.Date.Format(model.DateLayout) == date.Format(model.DateLayout) &&
		r.Due == due
}

// ParseAmount reads a currency cell: digits, optionally grouped with
// commas, dots or spaces. Empty cells are zero.
func ParseAmount(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}

	digits := strings.Map(func(r rune) rune {
		switch r {
		case ',', '.', ' ', '\u00a0':
			return -1
		}
		return r
	}, s)
	if digits == "" {
		return 0, false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, false
		}
	}

	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func cell(cells []string, col int) string {
	if col < len(cells) {
		return cells[col]
	}
	return ""
}

func parseSeq(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func parseInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// parseDate accepts YYYY-MM-DD (optionally followed by a time) or a
// spreadsheet serial day number. Empty cells yield nil.
func parseDate(s string) (*time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, true
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if serial < 1 {
			return nil, false
		}
		d := excelEpoch.AddDate(0, 0, int(serial))
		return &d, true
	}

	if len(s) > len(model.DateLayout) && (s[len(model.DateLayout)] == ' ' || s[len(model.DateLayout)] == 'T') {
		s = s[:len(model.DateLayout)]
	}
	d, err := time.Parse(model.DateLayout, s)
	if err != nil {
		return nil, false
	}
	return &d, true
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format(model.DateLayout)
}

func formatPeriod(p int) string {
	if p <= 0 {
		return ""
	}
	return strconv.Itoa(p)
}
