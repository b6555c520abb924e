// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/the-fines-must-flow/internal/model"
)

// PaidUpdate marks a single infraction as settled.
type PaidUpdate struct {
	SettledOn  time.Time
	ID         int64
	AmountPaid int64
}

// Storage defines the contract for our persistence layer. It carries no
// business rules; computed amounts live in the accrual package.
type Storage interface {
	// Infraction operations
	CreateInfraction(ctx context.Context, infraction *model.Infraction) error
	GetInfraction(ctx context.Context, id int64) (*model.Infraction, error)
	ListInfractions(ctx context.Context, filter model.InfractionFilter) ([]model.Infraction, error)
	ListInfractionsBySubject(ctx context.Context, subject string) ([]model.Infraction, error)
	ListAllInfractions(ctx context.Context) ([]model.Infraction, error)
	CountInfractionsInGroup(ctx context.Context, key model.GroupKey) (int, error)
	CountInfractions(ctx context.Context) (int, error)
	MarkInfractionsPaid(ctx context.Context, updates []PaidUpdate) error
	DeleteInfraction(ctx context.Context, id int64) error

	// Category operations
	GetCategories(ctx context.Context) ([]model.Category, error)
	GetCategory(ctx context.Context, code string) (*model.Category, error)
	UpsertCategory(ctx context.Context, category *model.Category) error
	UpdateCategoryAmount(ctx context.Context, code string, amount int64) error
	SeedDefaultCategories(ctx context.Context) (int, error)

	// Ledger operations
	SaveLedgerEntry(ctx context.Context, entry *model.LedgerEntry) error
	ListLedgerEntries(ctx context.Context, accountID int64) ([]model.LedgerEntry, error)
	ListAllLedgerEntries(ctx context.Context) ([]model.LedgerEntry, error)

	// Account operations
	CreateAccount(ctx context.Context, account *model.Account) error
	GetAccount(ctx context.Context, id int64) (*model.Account, error)
	GetAccountByUsername(ctx context.Context, username string) (*model.Account, error)
	ListAccounts(ctx context.Context) ([]model.Account, error)
	ListAdmins(ctx context.Context) ([]model.Account, error)
	FindAccountForSubject(ctx context.Context, subject string) (*model.Account, error)
	LinkSubject(ctx context.Context, accountID int64, subject string) error
	SetAdmin(ctx context.Context, accountID int64, isAdmin bool) error

	// Notification operations
	SaveNotification(ctx context.Context, notification *model.Notification) error
	ListNotifications(ctx context.Context, accountID int64) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, accountID, id int64) error
	MarkAllNotificationsRead(ctx context.Context, accountID int64) (int, error)

	// Complaint operations
	CreateComplaint(ctx context.Context, complaint *model.Complaint) error
	ListComplaints(ctx context.Context, filter model.ComplaintFilter) ([]model.Complaint, error)
	ResolveComplaint(ctx context.Context, id int64) error

	// Database management
	Migrate(ctx context.Context) error
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit() error
	Rollback() error
	// Include all Storage methods for use within transaction
	Storage
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
