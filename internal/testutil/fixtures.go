package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/the-fines-must-flow/internal/model"
)

// InfractionBuilder collects records and writes them in order.
//
//	testutil.NewInfractionBuilder(t).
//		Add("Jane Doe", "VP01", "2025-09-09", 1).
//		Add("Jane Doe", "VP01", "2025-09-10", 1).
//		Build(ctx, db.Storage)
type InfractionBuilder struct {
	t       *testing.T
	records []model.Infraction
}

// NewInfractionBuilder returns an empty builder.
func NewInfractionBuilder(t *testing.T) *InfractionBuilder {
	t.Helper()
	return &InfractionBuilder{t: t}
}

// Add appends a record with the category's usual base amount left at zero.
func (b *InfractionBuilder) Add(subject, code, date string, period int) *InfractionBuilder {
	b.t.Helper()
	b.records = append(b.records, model.Infraction{
		Subject: subject,
		Code:    code,
		Date:    MustDate(b.t, date),
		Period:  period,
	})
	return b
}

// AddOverride appends a record whose amount was set explicitly.
func (b *InfractionBuilder) AddOverride(subject, code, date string, period int, amount int64) *InfractionBuilder {
	b.t.Helper()
	b.records = append(b.records, model.Infraction{
		Subject:   subject,
		Code:      code,
		Date:      MustDate(b.t, date),
		Period:    period,
		AmountDue: amount,
		Override:  true,
	})
	return b
}

// Records returns the unsaved records.
func (b *InfractionBuilder) Records() []model.Infraction {
	out := make([]model.Infraction, len(b.records))
	copy(out, b.records)
	return out
}

// InfractionCreator is the part of storage the builder writes through.
type InfractionCreator interface {
	CreateInfraction(ctx context.Context, inf *model.Infraction) error
}

// Build writes every record and returns them with IDs assigned.
func (b *InfractionBuilder) Build(ctx context.Context, store InfractionCreator) []model.Infraction {
	b.t.Helper()
	out := b.Records()
	for i := range out {
		if err := store.CreateInfraction(ctx, &out[i]); err != nil {
			b.t.Fatalf("failed to seed infraction %d: %v", i, err)
		}
	}
	return out
}

// MustDate parses a YYYY-MM-DD date or fails the test.
func MustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(model.DateLayout, s)
	if err != nil {
		t.Fatalf("bad test date %q: %v", s, err)
	}
	return d
}
