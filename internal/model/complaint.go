package model

import "time"

// Complaint disputes one infraction. Code and Subject are copied from the
// record when the complaint is filed.
type Complaint struct {
	CreatedAt    time.Time
	Code         string
	Subject      string
	Email        string
	Message      string
	ID           int64
	InfractionID int64
	AccountID    int64
	Resolved     bool
}

// ComplaintFilter narrows ListComplaints. Zero values mean "any".
type ComplaintFilter struct {
	InfractionID int64
	OpenOnly     bool
}
