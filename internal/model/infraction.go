// Package model defines the core domain models used throughout the application.
package model

import "time"

// DateLayout is the on-disk and on-sheet date format.
const DateLayout = "2006-01-02"

// Infraction represents one recorded infraction against a subject.
type Infraction struct {
	Date       time.Time
	CreatedAt  time.Time
	SettledOn  *time.Time
	Code       string
	Subject    string // normalized subject name
	Reason     string
	Notes      string
	Sheet      string // mirror sheet the record originated from
	ID         int64
	Period     int
	AmountDue  int64 // stored base amount; the computed amount may be higher
	AmountPaid int64
	Override   bool // AmountDue was supplied by the caller instead of the registry
}

// InfractionFilter narrows infraction listings. Zero values mean "any".
type InfractionFilter struct {
	Date    *time.Time
	Subject string
	Code    string
	Period  int
}

// GroupKey identifies the accrual group an infraction belongs to.
type GroupKey struct {
	Subject string
	Code    string
	Period  int
}

// Key returns the accrual group key for the infraction.
func (i Infraction) Key() GroupKey {
	return GroupKey{Subject: i.Subject, Period: i.Period, Code: i.Code}
}
