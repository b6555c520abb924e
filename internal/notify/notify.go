// Package notify turns settlement and infraction events into per-account
// messages and stores them.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/Veraticus/the-fines-must-flow/internal/common"
	"github.com/Veraticus/the-fines-must-flow/internal/metrics"
	"github.com/Veraticus/the-fines-must-flow/internal/model"
	"github.com/Veraticus/the-fines-must-flow/internal/settlement"
)

// Follow-up references attached to messages.
const (
	LinkHistory = "/history"
	LinkHome    = "/"
)

// Event is one message for one account.
type Event struct {
	Message   string
	Link      string
	AccountID int64
}

// Store is the persistence the dispatcher needs.
type Store interface {
	GetAccount(ctx context.Context, id int64) (*model.Account, error)
	ListAdmins(ctx context.Context) ([]model.Account, error)
	FindAccountForSubject(ctx context.Context, subject string) (*model.Account, error)
	SaveNotification(ctx context.Context, n *model.Notification) error
}

// Dispatcher builds and persists notifications.
type Dispatcher struct {
	store    Store
	logger   *slog.Logger
	location *time.Location
}

// NewDispatcher creates a dispatcher. Timestamps in messages are rendered
// in loc.
func NewDispatcher(store Store, logger *slog.Logger, loc *time.Location) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Dispatcher{store: store, logger: logger, location: loc}
}

// SettlementEvents addresses the payer and every admin other than the
// payer.
func SettlementEvents(evt model.SettlementEvent, payer model.Account, admins []model.Account, loc *time.Location) []Event {
	if loc == nil {
		loc = time.UTC
	}
	detail := fmt.Sprintf("%s for %s (%s) on %s.",
		settlement.FormatCurrency(evt.Total),
		evt.Subject,
		strings.Join(evt.Codes, "; "),
		evt.SettledAt.In(loc).Format("02/01/2006 15:04"))

	events := []Event{{
		AccountID: payer.ID,
		Message:   "You paid " + detail,
		Link:      LinkHistory,
	}}

	for _, admin := range admins {
		if admin.ID == payer.ID {
			continue
		}
		events = append(events, Event{
			AccountID: admin.ID,
			Message:   payer.DisplayName + " paid " + detail,
			Link:      LinkHistory,
		})
	}
	return events
}

// InfractionEvents addresses the subject's account, when one exists, and
// the recorder.
func InfractionEvents(inf model.Infraction, cat *model.Category, recorder, target *model.Account) []Event {
	link := SummaryLink(inf.Subject)
	date := inf.Date.Format("02/01/2006")

	description := inf.Code
	if cat != nil && cat.Description != "" {
		description = cat.Description
	}

	var events []Event
	if target != nil {
		events = append(events, Event{
			AccountID: target.ID,
			Message:   fmt.Sprintf("You were recorded for %s - %s on %s.", inf.Code, description, date),
			Link:      link,
		})
	}
	if recorder != nil {
		events = append(events, Event{
			AccountID: recorder.ID,
			Message:   fmt.Sprintf("You recorded %s for %s on %s.", inf.Code, inf.Subject, date),
			Link:      link,
		})
	}
	return events
}

// WelcomeEvent greets a newly created account.
func WelcomeEvent(acct model.Account) Event {
	return Event{
		AccountID: acct.ID,
		Message:   fmt.Sprintf("Welcome %s! Your account has been created.", acct.DisplayName),
		Link:      LinkHome,
	}
}

// SummaryLink points at a subject's summary view.
func SummaryLink(subject string) string {
	return "/summary?" + url.Values{"student": {subject}}.Encode()
}

// Dispatch stores every event. It keeps going after a failure and returns
// the joined errors.
func (d *Dispatcher) Dispatch(ctx context.Context, events []Event) error {
	var errs []error
	for _, evt := range events {
		n := &model.Notification{AccountID: evt.AccountID, Message: evt.Message, Link: evt.Link}
		if err := d.store.SaveNotification(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("account %d: %w", evt.AccountID, err))
			continue
		}
		metrics.NotificationsSent.Inc()
	}
	return errors.Join(errs...)
}

// NotifySettlement sends settlement notices to the payer and the admins.
func (d *Dispatcher) NotifySettlement(ctx context.Context, evt model.SettlementEvent) error {
	payer, err := d.store.GetAccount(ctx, evt.AccountID)
	if err != nil {
		return fmt.Errorf("failed to load payer: %w", err)
	}

	admins, err := d.store.ListAdmins(ctx)
	if err != nil {
		return fmt.Errorf("failed to load admins: %w", err)
	}

	events := SettlementEvents(evt, *payer, admins, d.location)
	d.logger.Debug("dispatching settlement notifications", "subject", evt.Subject, "count", len(events))
	return d.Dispatch(ctx, events)
}

// NotifyInfraction tells the subject's account and the recorder about a
// new record. A subject without an account only notifies the recorder.
func (d *Dispatcher) NotifyInfraction(ctx context.Context, inf model.Infraction, cat *model.Category, recorderID int64) error {
	var recorder *model.Account
	if recorderID > 0 {
		acct, err := d.store.GetAccount(ctx, recorderID)
		if err != nil {
			return fmt.Errorf("failed to load recorder: %w", err)
		}
		recorder = acct
	}

	target, err := d.store.FindAccountForSubject(ctx, inf.Subject)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return fmt.Errorf("failed to find subject account: %w", err)
	}

	return d.Dispatch(ctx, InfractionEvents(inf, cat, recorder, target))
}

// NotifyWelcome greets a new account.
func (d *Dispatcher) NotifyWelcome(ctx context.Context, acct model.Account) error {
	return d.Dispatch(ctx, []Event{WelcomeEvent(acct)})
}
