// Package storage provides the data persistence layer for the fines application.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/the-fines-must-flow/internal/common"
	"github.com/Veraticus/the-fines-must-flow/internal/model"
)

// Validation errors. All of them match common.ErrValidation.
var (
	ErrNilContext        = fmt.Errorf("%w: context cannot be nil", common.ErrValidation)
	ErrEmptyString       = fmt.Errorf("%w: string parameter cannot be empty", common.ErrValidation)
	ErrNilParameter      = fmt.Errorf("%w: parameter cannot be nil", common.ErrValidation)
	ErrInvalidInfraction = fmt.Errorf("%w: invalid infraction", common.ErrValidation)
	ErrInvalidCategory   = fmt.Errorf("%w: invalid category", common.ErrValidation)
	ErrInvalidAccount    = fmt.Errorf("%w: invalid account", common.ErrValidation)
	ErrInvalidLedger     = fmt.Errorf("%w: invalid ledger entry", common.ErrValidation)
	ErrInvalidComplaint  = fmt.Errorf("%w: invalid complaint", common.ErrValidation)
)

// errNoRowsAffected is returned internally when an update touched nothing.
var errNoRowsAffected = errors.New("no rows affected")

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateInfraction(inf *model.Infraction) error {
	if inf == nil {
		return fmt.Errorf("%w: infraction", ErrNilParameter)
	}
	if strings.TrimSpace(inf.Code) == "" {
		return fmt.Errorf("%w: missing category code", ErrInvalidInfraction)
	}
	if strings.TrimSpace(inf.Subject) == "" {
		return fmt.Errorf("%w: missing subject", ErrInvalidInfraction)
	}
	if inf.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidInfraction)
	}
	if inf.AmountDue < 0 || inf.AmountPaid < 0 {
		return fmt.Errorf("%w: amounts cannot be negative", ErrInvalidInfraction)
	}
	return nil
}

func validateCategory(cat *model.Category) error {
	if cat == nil {
		return fmt.Errorf("%w: category", ErrNilParameter)
	}
	if strings.TrimSpace(cat.Code) == "" {
		return fmt.Errorf("%w: missing code", ErrInvalidCategory)
	}
	if strings.TrimSpace(cat.Description) == "" {
		return fmt.Errorf("%w: missing description", ErrInvalidCategory)
	}
	if cat.DefaultAmount < 0 {
		return fmt.Errorf("%w: default amount cannot be negative", ErrInvalidCategory)
	}
	return nil
}

func validateAccount(acct *model.Account) error {
	if acct == nil {
		return fmt.Errorf("%w: account", ErrNilParameter)
	}
	if strings.TrimSpace(acct.Username) == "" {
		return fmt.Errorf("%w: missing username", ErrInvalidAccount)
	}
	if strings.TrimSpace(acct.DisplayName) == "" {
		return fmt.Errorf("%w: missing display name", ErrInvalidAccount)
	}
	return nil
}

func validateLedgerEntry(entry *model.LedgerEntry) error {
	if entry == nil {
		return fmt.Errorf("%w: ledger entry", ErrNilParameter)
	}
	if entry.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidLedger)
	}
	if entry.AccountID <= 0 {
		return fmt.Errorf("%w: missing account", ErrInvalidLedger)
	}
	if entry.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidLedger)
	}
	return nil
}

func validateComplaint(c *model.Complaint) error {
	if c == nil {
		return fmt.Errorf("%w: complaint", ErrNilParameter)
	}
	if c.InfractionID <= 0 {
		return fmt.Errorf("%w: missing infraction", ErrInvalidComplaint)
	}
	if strings.TrimSpace(c.Email) == "" {
		return fmt.Errorf("%w: missing email", ErrInvalidComplaint)
	}
	if strings.TrimSpace(c.Message) == "" {
		return fmt.Errorf("%w: missing message", ErrInvalidComplaint)
	}
	return nil
}
