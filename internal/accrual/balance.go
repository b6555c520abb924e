package accrual

import (
	"sort"

	"github.com/Veraticus/the-fines-must-flow/internal/model"
)

// Line is one record with its computed amounts.
type Line struct {
	model.Infraction
	Due         int64
	Outstanding int64
}

// Balance totals one subject's records.
type Balance struct {
	Subject     string
	Codes       []string // sorted codes with something outstanding
	Lines       []Line
	Due         int64
	Paid        int64
	Outstanding int64
}

// Settled reports whether nothing is outstanding.
func (b Balance) Settled() bool {
	return b.Outstanding == 0
}

// Balances groups records by subject and totals them against dues. Subjects
// are returned in name order; lines keep the input order.
func Balances(records []model.Infraction, dues map[int64]int64) []Balance {
	bySubject := make(map[string]*Balance)
	codeSets := make(map[string]map[string]struct{})
	var order []string

	for _, inf := range records {
		b, ok := bySubject[inf.Subject]
		if !ok {
			b = &Balance{Subject: inf.Subject}
			bySubject[inf.Subject] = b
			codeSets[inf.Subject] = make(map[string]struct{})
			order = append(order, inf.Subject)
		}

		due := dues[inf.ID]
		out := Outstanding(due, inf.AmountPaid)
		b.Lines = append(b.Lines, Line{Infraction: inf, Due: due, Outstanding: out})
		b.Due += due
		b.Paid += inf.AmountPaid
		b.Outstanding += out
		if out > 0 {
			codeSets[inf.Subject][inf.Code] = struct{}{}
		}
	}

	sort.Strings(order)
	balances := make([]Balance, 0, len(order))
	for _, subject := range order {
		b := bySubject[subject]
		b.Codes = SortedCodes(codeSets[subject])
		balances = append(balances, *b)
	}
	return balances
}

// BalanceFor totals a single subject. A subject without records returns an
// empty, settled balance.
func BalanceFor(subject string, records []model.Infraction, dues map[int64]int64) Balance {
	var own []model.Infraction
	for _, inf := range records {
		if inf.Subject == subject {
			own = append(own, inf)
		}
	}

	if bs := Balances(own, dues); len(bs) == 1 {
		return bs[0]
	}
	return Balance{Subject: subject}
}

// SortedCodes returns the set's members in order.
func SortedCodes(set map[string]struct{}) []string {
	codes := make([]string, 0, len(set))
	for code := range set {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
