// Package engine ties the store, the accrual rules, settlement, the mirror
// and notifications into the operations the CLI and API expose.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/the-fines-must-flow/internal/accrual"
	"github.com/Veraticus/the-fines-must-flow/internal/common"
	"github.com/Veraticus/the-fines-must-flow/internal/metrics"
	"github.com/Veraticus/the-fines-must-flow/internal/mirror"
	"github.com/Veraticus/the-fines-must-flow/internal/model"
	"github.com/Veraticus/the-fines-must-flow/internal/service"
	"github.com/Veraticus/the-fines-must-flow/internal/settlement"
)

// Engine orchestrates infraction bookkeeping.
type Engine struct {
	store     service.Storage
	mirror    Mirror
	notifier  Notifier
	roster    Roster
	processor *settlement.Processor
	logger    *slog.Logger
	config    Config
}

// Config holds configuration options for the engine.
type Config struct {
	Location      *time.Location
	Now           func() time.Time
	Calendar      accrual.Calendar
	MinRosterSize int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Calendar:      accrual.DefaultCalendar(),
		Location:      settlement.DefaultConfig().Location,
		Now:           time.Now,
		MinRosterSize: 35,
	}
}

// New creates an engine. mirror, notifier and roster may be nil.
func New(store service.Storage, mirror Mirror, notifier Notifier, roster Roster, logger *slog.Logger, config Config) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if config.Location == nil {
		config.Location = def.Location
	}
	if config.Now == nil {
		config.Now = def.Now
	}
	if config.Calendar.Start.IsZero() {
		config.Calendar = def.Calendar
	}

	var settler settlement.MirrorSettler
	if mirror != nil {
		settler = mirror
	}
	var notifySettled settlement.Notifier
	if notifier != nil {
		notifySettled = notifier
	}

	return &Engine{
		store:    store,
		mirror:   mirror,
		notifier: notifier,
		roster:   roster,
		processor: settlement.NewProcessor(store, settler, notifySettled, logger, settlement.Config{
			Location: config.Location,
			Now:      config.Now,
		}),
		logger: logger,
		config: config,
	}
}

// Today is the current date in the configured location, at UTC midnight.
func (e *Engine) Today() time.Time {
	now := e.config.Now().In(e.config.Location)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// Calendar returns the period calendar in use.
func (e *Engine) Calendar() accrual.Calendar {
	return e.config.Calendar
}

// RecordRequest describes a new infraction. Amount overrides the computed
// amount for this record only.
type RecordRequest struct {
	Date       time.Time `json:"date" validate:"required"`
	Amount     *int64    `json:"amount,omitempty" validate:"omitempty,min=0"`
	Subject    string    `json:"student" validate:"notblank"`
	Code       string    `json:"error_code" validate:"notblank"`
	Reason     string    `json:"reason" validate:"max=500"`
	Notes      string    `json:"notes" validate:"max=500"`
	RecordedBy int64     `json:"recorded_by" validate:"min=0"`
}

// RecordOutcome is the stored record plus what happened in the mirror.
type RecordOutcome struct {
	Mirror     mirror.Result
	Infraction model.Infraction
}

// RecordInfraction prices and stores a new infraction, then mirrors it and
// notifies the subject's account and the recorder.
func (e *Engine) RecordInfraction(ctx context.Context, req RecordRequest) (*RecordOutcome, error) {
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}

	code := strings.ToUpper(strings.TrimSpace(req.Code))
	cat, err := e.store.GetCategory(ctx, code)
	if errors.Is(err, common.ErrNotFound) {
		return nil, common.Validationf("unknown category %q", code)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load category: %w", err)
	}

	date := time.Date(req.Date.Year(), req.Date.Month(), req.Date.Day(), 0, 0, 0, 0, time.UTC)
	inf := model.Infraction{
		Code:    code,
		Subject: model.NormalizeName(req.Subject),
		Date:    date,
		Period:  e.config.Calendar.Period(date),
		Reason:  strings.TrimSpace(req.Reason),
		Notes:   strings.TrimSpace(req.Notes),
	}
	if sheet, err := mirror.SheetFor(code); err == nil {
		inf.Sheet = sheet
	}

	// Pricing and insert run under the subject's settlement lock.
	unlock := e.processor.Locks().Lock(inf.Subject)
	if req.Amount != nil {
		inf.AmountDue = *req.Amount
		inf.Override = true
	} else {
		existing, err := e.store.ListInfractions(ctx, model.InfractionFilter{
			Subject: inf.Subject,
			Period:  inf.Period,
			Code:    inf.Code,
		})
		if err != nil {
			unlock()
			return nil, fmt.Errorf("failed to load group: %w", err)
		}
		inf.AmountDue = accrual.Quote(existing, inf.Key(), accrual.NewRegistry([]model.Category{*cat}))
	}
	err = e.store.CreateInfraction(ctx, &inf)
	unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to record infraction: %w", err)
	}

	metrics.InfractionsRecorded.WithLabelValues(code).Inc()
	e.logger.Info("recorded infraction",
		"id", inf.ID,
		"subject", inf.Subject,
		"code", inf.Code,
		"period", inf.Period,
		"amount", inf.AmountDue,
		"override", inf.Override)

	outcome := &RecordOutcome{Infraction: inf}
	if e.mirror != nil {
		outcome.Mirror = e.mirror.Created(ctx, inf)
	}
	if e.notifier != nil {
		if err := e.notifier.NotifyInfraction(ctx, inf, cat, req.RecordedBy); err != nil {
			e.logger.Warn("failed to send infraction notifications", "id", inf.ID, "error", err)
		}
	}

	return outcome, nil
}

// Quote prices a prospective record without storing it. Unknown codes
// price at zero.
func (e *Engine) Quote(ctx context.Context, subject string, date time.Time, code string) (int64, error) {
	subject = model.NormalizeName(subject)
	if subject == "" {
		return 0, common.Validationf("subject is required")
	}
	code = strings.ToUpper(strings.TrimSpace(code))

	categories, err := e.store.GetCategories(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load categories: %w", err)
	}
	reg := accrual.NewRegistry(categories)
	if _, ok := reg.Default(code); !ok {
		return 0, nil
	}

	key := model.GroupKey{Subject: subject, Period: e.config.Calendar.Period(date), Code: code}
	existing, err := e.store.ListInfractions(ctx, model.InfractionFilter{
		Subject: key.Subject,
		Period:  key.Period,
		Code:    key.Code,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to load group: %w", err)
	}

	return accrual.Quote(existing, key, reg), nil
}

// Balance computes one subject's dues over the whole store.
func (e *Engine) Balance(ctx context.Context, subject string) (accrual.Balance, error) {
	subject = model.NormalizeName(subject)
	if subject == "" {
		return accrual.Balance{}, common.Validationf("subject is required")
	}

	records, dues, err := e.computed(ctx)
	if err != nil {
		return accrual.Balance{}, err
	}
	return accrual.BalanceFor(subject, records, dues), nil
}

// Settle pays off everything the subject owes.
func (e *Engine) Settle(ctx context.Context, req settlement.Request) (*settlement.Outcome, error) {
	return e.processor.Settle(ctx, req)
}

// DeleteInfraction removes a record. The mirror row is removed first,
// since it is located by the record's data, but a mirror failure never
// stops the store delete.
func (e *Engine) DeleteInfraction(ctx context.Context, id int64) (mirror.Result, error) {
	inf, err := e.store.GetInfraction(ctx, id)
	if err != nil {
		return mirror.Result{}, err
	}

	unlock := e.processor.Locks().Lock(inf.Subject)
	defer unlock()

	var res mirror.Result
	if e.mirror != nil {
		res = e.mirror.Deleted(ctx, *inf)
	}

	if err := e.store.DeleteInfraction(ctx, id); err != nil {
		return res, fmt.Errorf("failed to delete infraction %d: %w", id, err)
	}

	e.logger.Info("deleted infraction", "id", id, "subject", inf.Subject, "code", inf.Code)
	return res, nil
}

// CreateAccount stores an account and sends it a welcome notice.
func (e *Engine) CreateAccount(ctx context.Context, acct *model.Account) error {
	if err := e.store.CreateAccount(ctx, acct); err != nil {
		return err
	}
	if e.notifier != nil {
		if err := e.notifier.NotifyWelcome(ctx, *acct); err != nil {
			e.logger.Warn("failed to send welcome notification", "account_id", acct.ID, "error", err)
		}
	}
	return nil
}

// computed loads every record with its computed due.
func (e *Engine) computed(ctx context.Context) ([]model.Infraction, map[int64]int64, error) {
	categories, err := e.store.GetCategories(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load categories: %w", err)
	}
	records, err := e.store.ListAllInfractions(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load infractions: %w", err)
	}
	return records, accrual.Calculate(records, accrual.NewRegistry(categories)), nil
}
