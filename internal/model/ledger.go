package model

import "time"

// LedgerEntry records one settlement performed by an account.
type LedgerEntry struct {
	PaidAt    time.Time
	ID        string
	Subject   string
	Note      string
	Codes     []string
	AccountID int64
	Amount    int64
}

// SettlementEvent describes a completed settlement for fan-out.
type SettlementEvent struct {
	SettledAt time.Time
	Subject   string
	Codes     []string
	Settled   []int64 // infraction IDs marked paid
	AccountID int64
	Total     int64
}
