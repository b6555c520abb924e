package model

import "time"

// Account is a user of the system. Authentication lives elsewhere; the
// engine only needs identity, the admin flag and the linked subject.
type Account struct {
	CreatedAt   time.Time
	Username    string
	DisplayName string
	Subject     string // linked subject, empty until chosen
	ID          int64
	IsAdmin     bool
}

// Notification is a message addressed to a single account.
type Notification struct {
	CreatedAt time.Time
	Message   string
	Link      string
	ID        int64
	AccountID int64
	Read      bool
}
