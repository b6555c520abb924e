// Package settlement marks a subject's outstanding penalties as paid and
// records the payment.
package settlement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/the-fines-must-flow/internal/accrual"
	"github.com/Veraticus/the-fines-must-flow/internal/common"
	"github.com/Veraticus/the-fines-must-flow/internal/metrics"
	"github.com/Veraticus/the-fines-must-flow/internal/mirror"
	"github.com/Veraticus/the-fines-must-flow/internal/model"
	"github.com/Veraticus/the-fines-must-flow/internal/service"
)

// MirrorSettler shadows a settlement into the spreadsheet mirror.
type MirrorSettler interface {
	Settled(ctx context.Context, subject string, today time.Time) mirror.Result
}

// Notifier fans a completed settlement out to interested accounts.
type Notifier interface {
	NotifySettlement(ctx context.Context, evt model.SettlementEvent) error
}

// Request identifies the subject to settle and the account paying.
type Request struct {
	Subject   string
	AccountID int64
}

// Outcome describes a settlement. NothingDue is a normal result, not an
// error.
type Outcome struct {
	Entry      *model.LedgerEntry
	Event      *model.SettlementEvent
	Mirror     mirror.Result
	Codes      []string
	Settled    []int64
	Total      int64
	NothingDue bool
}

// Config controls the processor's clock.
type Config struct {
	Location *time.Location
	Now      func() time.Time
}

// DefaultConfig uses the wall clock in UTC+7.
func DefaultConfig() Config {
	return Config{
		Location: time.FixedZone("ICT", 7*60*60),
		Now:      time.Now,
	}
}

// Processor settles subjects against their computed dues.
type Processor struct {
	store    service.Storage
	mirror   MirrorSettler
	notifier Notifier
	locks    *SubjectLocks
	logger   *slog.Logger
	config   Config
}

// NewProcessor creates a processor. mirror and notifier may be nil.
func NewProcessor(store service.Storage, mirror MirrorSettler, notifier Notifier, logger *slog.Logger, config Config) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Location == nil {
		config.Location = DefaultConfig().Location
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &Processor{
		store:    store,
		mirror:   mirror,
		notifier: notifier,
		locks:    NewSubjectLocks(),
		logger:   logger,
		config:   config,
	}
}

// Locks exposes the per-subject lock table so other writers for the same
// subject can share it.
func (p *Processor) Locks() *SubjectLocks {
	return p.locks
}

// Settle marks every outstanding record of the subject as paid at its
// computed amount and writes one ledger entry. The mirror update and the
// notifications that follow never fail the call.
func (p *Processor) Settle(ctx context.Context, req Request) (*Outcome, error) {
	subject := model.NormalizeName(req.Subject)
	if subject == "" {
		return nil, common.Validationf("subject is required")
	}

	if _, err := p.store.GetAccount(ctx, req.AccountID); err != nil {
		return nil, fmt.Errorf("settling account: %w", err)
	}

	unlock := p.locks.Lock(subject)
	defer unlock()

	now := p.config.Now().In(p.config.Location)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	outcome, updates, err := p.plan(ctx, subject, today)
	if err != nil {
		metrics.Settlements.WithLabelValues(metrics.OutcomeFailed).Inc()
		return nil, err
	}
	if outcome.NothingDue {
		metrics.Settlements.WithLabelValues(metrics.OutcomeNothingDue).Inc()
		p.logger.Info("nothing to settle", "subject", subject)
		return outcome, nil
	}

	entry := &model.LedgerEntry{
		ID:        uuid.NewString(),
		AccountID: req.AccountID,
		Subject:   subject,
		Amount:    outcome.Total,
		Codes:     outcome.Codes,
		PaidAt:    now,
		Note:      GeneratePaymentMessage(subject, outcome.Total, outcome.Codes),
	}

	if err := p.commit(ctx, updates, entry); err != nil {
		metrics.Settlements.WithLabelValues(metrics.OutcomeFailed).Inc()
		return nil, err
	}

	metrics.Settlements.WithLabelValues(metrics.OutcomeSettled).Inc()
	metrics.AmountSettled.Add(float64(outcome.Total))
	p.logger.Info("settled subject",
		"subject", subject,
		"total", outcome.Total,
		"codes", outcome.Codes,
		"records", len(outcome.Settled),
		"account_id", req.AccountID)

	outcome.Entry = entry
	outcome.Event = &model.SettlementEvent{
		Subject:   subject,
		Total:     outcome.Total,
		Codes:     outcome.Codes,
		Settled:   outcome.Settled,
		SettledAt: now,
		AccountID: req.AccountID,
	}

	if p.mirror != nil {
		outcome.Mirror = p.mirror.Settled(ctx, subject, today)
	}

	if p.notifier != nil {
		if err := p.notifier.NotifySettlement(ctx, *outcome.Event); err != nil {
			p.logger.Warn("failed to send settlement notifications", "subject", subject, "error", err)
		}
	}

	return outcome, nil
}

// plan computes dues over every record so escalation positions are exact,
// then selects the subject's records that still owe something.
func (p *Processor) plan(ctx context.Context, subject string, today time.Time) (*Outcome, []service.PaidUpdate, error) {
	categories, err := p.store.GetCategories(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load categories: %w", err)
	}

	records, err := p.store.ListAllInfractions(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load infractions: %w", err)
	}

	dues := accrual.Calculate(records, accrual.NewRegistry(categories))

	outcome := &Outcome{}
	codes := make(map[string]struct{})
	var updates []service.PaidUpdate

	for _, inf := range records {
		if inf.Subject != subject {
			continue
		}
		due := dues[inf.ID]
		out := accrual.Outstanding(due, inf.AmountPaid)
		if out <= 0 {
			continue
		}

		updates = append(updates, service.PaidUpdate{ID: inf.ID, AmountPaid: due, SettledOn: today})
		outcome.Total += out
		outcome.Settled = append(outcome.Settled, inf.ID)
		codes[inf.Code] = struct{}{}
	}

	if len(updates) == 0 {
		outcome.NothingDue = true
		return outcome, nil, nil
	}

	outcome.Codes = accrual.SortedCodes(codes)
	return outcome, updates, nil
}

// commit writes the paid amounts and the ledger entry together.
func (p *Processor) commit(ctx context.Context, updates []service.PaidUpdate, entry *model.LedgerEntry) error {
	tx, err := p.store.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin settlement: %w", err)
	}

	if err := tx.MarkInfractionsPaid(ctx, updates); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to mark infractions paid: %w", err)
	}

	if err := tx.SaveLedgerEntry(ctx, entry); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to save ledger entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit settlement: %w", err)
	}
	return nil
}
