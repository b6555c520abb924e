// Package accrual computes the amount owed on each infraction. Amounts are
// derived on every call from the current record set and category defaults;
// nothing here is cached or persisted.
package accrual

import (
	"sort"

	"github.com/Veraticus/the-fines-must-flow/internal/model"
)

// Registry maps a category code to its definition.
type Registry map[string]model.Category

// NewRegistry indexes categories by code.
func NewRegistry(categories []model.Category) Registry {
	reg := make(Registry, len(categories))
	for _, cat := range categories {
		reg[cat.Code] = cat
	}
	return reg
}

// Default returns the category's current default amount.
func (r Registry) Default(code string) (int64, bool) {
	cat, ok := r[code]
	if !ok {
		return 0, false
	}
	return cat.DefaultAmount, true
}

// Calculate returns the computed amount due for every record, keyed by ID.
//
// Records are grouped by subject, period and code and ordered by date then
// ID. Escalating codes owe default + EscalationStep*position; every other
// code owes the default. A record flagged as an override owes its stored
// amount instead, while still occupying its position in the group. Codes
// missing from the registry compute to zero.
func Calculate(records []model.Infraction, reg Registry) map[int64]int64 {
	dues := make(map[int64]int64, len(records))

	for key, group := range groupRecords(records) {
		base, known := reg.Default(key.Code)
		escalates := model.IsEscalating(key.Code)

		for i, inf := range group {
			switch {
			case !known:
				dues[inf.ID] = 0
			case inf.Override:
				dues[inf.ID] = inf.AmountDue
			case escalates:
				dues[inf.ID] = base + model.EscalationStep*int64(i)
			default:
				dues[inf.ID] = base
			}
		}
	}

	return dues
}

// Outstanding is the unpaid part of a computed amount, never negative.
func Outstanding(due, paid int64) int64 {
	if due <= paid {
		return 0
	}
	return due - paid
}

// Quote prices a record that has not been stored yet. Every existing record
// in the same group counts as an earlier occurrence.
func Quote(existing []model.Infraction, key model.GroupKey, reg Registry) int64 {
	base, known := reg.Default(key.Code)
	if !known {
		return 0
	}
	if !model.IsEscalating(key.Code) {
		return base
	}

	var count int64
	for _, inf := range existing {
		if inf.Key() == key {
			count++
		}
	}
	return base + model.EscalationStep*count
}

// groupRecords partitions records into ordered accrual groups.
func groupRecords(records []model.Infraction) map[model.GroupKey][]model.Infraction {
	groups := make(map[model.GroupKey][]model.Infraction)
	for _, inf := range records {
		key := inf.Key()
		groups[key] = append(groups[key], inf)
	}

	for _, group := range groups {
		sort.SliceStable(group, func(i, j int) bool {
			if !group[i].Date.Equal(group[j].Date) {
				return group[i].Date.Before(group[j].Date)
			}
			return group[i].ID < group[j].ID
		})
	}

	return groups
}
