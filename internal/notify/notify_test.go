package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-fines-must-flow/internal/model"
	"github.com/Veraticus/the-fines-must-flow/internal/testutil"
)

var ict = time.FixedZone("ICT", 7*60*60)

func TestSettlementEvents(t *testing.T) {
	evt := model.SettlementEvent{
		Subject:   "Jane Doe",
		Total:     60000,
		Codes:     []string{"VP01", "VP04"},
		SettledAt: time.Date(2025, 10, 19, 20, 30, 0, 0, time.UTC),
		AccountID: 2,
	}
	payer := model.Account{ID: 2, DisplayName: "Jane's Parent", IsAdmin: true}
	admins := []model.Account{{ID: 1, IsAdmin: true}, payer, {ID: 3, IsAdmin: true}}

	events := SettlementEvents(evt, payer, admins, ict)
	require.Len(t, events, 3)

	assert.Equal(t, int64(2), events[0].AccountID)
	assert.Equal(t, "You paid 60.000 VND for Jane Doe (VP01; VP04) on 20/10/2025 03:30.", events[0].Message)
	assert.Equal(t, LinkHistory, events[0].Link)

	assert.Equal(t, int64(1), events[1].AccountID)
	assert.Equal(t, "Jane's Parent paid 60.000 VND for Jane Doe (VP01; VP04) on 20/10/2025 03:30.", events[1].Message)
	assert.Equal(t, int64(3), events[2].AccountID)
}

func TestInfractionEvents(t *testing.T) {
	inf := model.Infraction{Subject: "Jane Doe", Code: "VP01", Date: time.Date(2025, 10, 6, 0, 0, 0, 0, time.UTC)}
	cat := &model.Category{Code: "VP01", Description: "Late arrival"}

	events := InfractionEvents(inf, cat, &model.Account{ID: 1}, &model.Account{ID: 7})
	require.Len(t, events, 2)
	assert.Equal(t, int64(7), events[0].AccountID)
	assert.Equal(t, "You were recorded for VP01 - Late arrival on 06/10/2025.", events[0].Message)
	assert.Equal(t, "/summary?student=Jane+Doe", events[0].Link)
	assert.Equal(t, "You recorded VP01 for Jane Doe on 06/10/2025.", events[1].Message)

	assert.Len(t, InfractionEvents(inf, nil, nil, nil), 0)

	onlyTarget := InfractionEvents(inf, nil, nil, &model.Account{ID: 7})
	require.Len(t, onlyTarget, 1)
	assert.Contains(t, onlyTarget[0].Message, "VP01 - VP01")
}

func TestDispatcher_NotifySettlement(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	admin := &model.Account{Username: "monitor", DisplayName: "Class Monitor", IsAdmin: true}
	payer := &model.Account{Username: "jane", DisplayName: "Jane Doe"}
	require.NoError(t, db.Storage.CreateAccount(ctx, admin))
	require.NoError(t, db.Storage.CreateAccount(ctx, payer))

	d := NewDispatcher(db.Storage, nil, ict)
	err := d.NotifySettlement(ctx, model.SettlementEvent{
		Subject: "Jane Doe", Total: 10000, Codes: []string{"VP01"}, SettledAt: time.Now(), AccountID: payer.ID,
	})
	require.NoError(t, err)

	mine, err := db.Storage.ListNotifications(ctx, payer.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Contains(t, mine[0].Message, "You paid 10.000 VND for Jane Doe (VP01)")

	theirs, err := db.Storage.ListNotifications(ctx, admin.ID)
	require.NoError(t, err)
	require.Len(t, theirs, 1)
	assert.Contains(t, theirs[0].Message, "Jane Doe paid 10.000 VND")
}

func TestDispatcher_NotifyInfraction(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	admin := &model.Account{Username: "monitor", DisplayName: "Class Monitor", IsAdmin: true}
	student := &model.Account{Username: "jane", DisplayName: "Jane"}
	require.NoError(t, db.Storage.CreateAccount(ctx, admin))
	require.NoError(t, db.Storage.CreateAccount(ctx, student))
	require.NoError(t, db.Storage.LinkSubject(ctx, student.ID, "Jane Doe"))

	d := NewDispatcher(db.Storage, nil, ict)
	cat := db.MustGetCategory("VP01")
	inf := model.Infraction{Subject: "Jane Doe", Code: "VP01", Date: time.Date(2025, 10, 6, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, d.NotifyInfraction(ctx, inf, &cat, admin.ID))

	got, err := db.Storage.ListNotifications(ctx, student.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "You were recorded for VP01 - Late arrival on 06/10/2025.", got[0].Message)

	t.Run("subject without account", func(t *testing.T) {
		other := model.Infraction{Subject: "Nobody Here", Code: "VP04", Date: inf.Date}
		require.NoError(t, d.NotifyInfraction(ctx, other, nil, admin.ID))

		notes, err := db.Storage.ListNotifications(ctx, admin.ID)
		require.NoError(t, err)
		assert.Len(t, notes, 2)
	})
}

func TestDispatcher_NotifyWelcome(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	acct := &model.Account{Username: "jane", DisplayName: "Jane"}
	require.NoError(t, db.Storage.CreateAccount(ctx, acct))

	require.NoError(t, NewDispatcher(db.Storage, nil, nil).NotifyWelcome(ctx, *acct))
	notes, err := db.Storage.ListNotifications(ctx, acct.ID)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "Welcome Jane! Your account has been created.", notes[0].Message)
}
