package model

import "time"

// EscalationStep is added to the category default for each earlier
// occurrence in the same (subject, period, code) group.
const EscalationStep int64 = 10000

// EscalatingCodes lists the category codes whose penalty grows with every
// repeat inside a period.
var EscalatingCodes = []string{"VP01", "VP06"}

// Category represents an infraction category and its default penalty.
type Category struct {
	CreatedAt     time.Time
	Code          string
	Description   string
	DefaultAmount int64
}

// Escalates reports whether repeats of this category cost more each time.
func (c Category) Escalates() bool {
	return IsEscalating(c.Code)
}

// IsEscalating reports whether code is on the escalation allow-list.
func IsEscalating(code string) bool {
	for _, c := range EscalatingCodes {
		if c == code {
			return true
		}
	}
	return false
}

// DefaultCategories is the registry seeded into an empty database.
func DefaultCategories() []Category {
	return []Category{
		{Code: "VP01", Description: "Late arrival", DefaultAmount: 10000},
		{Code: "VP02", Description: "Admitting a stranger to class", DefaultAmount: 0},
		{Code: "VP03", Description: "Unauthorized seat swap", DefaultAmount: 10000},
		{Code: "VP04", Description: "Forgot school supplies", DefaultAmount: 10000},
		{Code: "VP05", Description: "Sleeping in class", DefaultAmount: 10000},
		{Code: "VP06", Description: "Unexcused absence", DefaultAmount: 30000},
	}
}
