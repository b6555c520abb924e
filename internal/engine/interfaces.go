package engine

import (
	"context"
	"time"

	"github.com/Veraticus/the-fines-must-flow/internal/mirror"
	"github.com/Veraticus/the-fines-must-flow/internal/model"
)

// Mirror shadows store writes into the spreadsheet. Results are reported,
// never returned as errors.
type Mirror interface {
	Created(ctx context.Context, inf model.Infraction) mirror.Result
	Settled(ctx context.Context, subject string, today time.Time) mirror.Result
	Deleted(ctx context.Context, inf model.Infraction) mirror.Result
}

// Notifier delivers in-app notifications.
type Notifier interface {
	NotifySettlement(ctx context.Context, evt model.SettlementEvent) error
	NotifyInfraction(ctx context.Context, inf model.Infraction, cat *model.Category, recorderID int64) error
	NotifyWelcome(ctx context.Context, acct model.Account) error
}

// Roster reports the reference list of subjects.
type Roster interface {
	Len() int
	Names() []string
}
