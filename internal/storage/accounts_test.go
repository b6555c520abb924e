package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-fines-must-flow/internal/common"
	"github.com/Veraticus/the-fines-must-flow/internal/model"
)

func TestSQLiteStorage_Accounts(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	admin := &model.Account{Username: "Monitor", DisplayName: "Class Monitor", IsAdmin: true}
	student := &model.Account{Username: "jane", DisplayName: "Jane Doe"}
	require.NoError(t, store.CreateAccount(ctx, admin))
	require.NoError(t, store.CreateAccount(ctx, student))
	assert.Equal(t, "monitor", admin.Username)

	t.Run("duplicate username", func(t *testing.T) {
		err := store.CreateAccount(ctx, &model.Account{Username: "JANE", DisplayName: "Other"})
		assert.ErrorIs(t, err, common.ErrDuplicateEntry)
	})

	t.Run("lookup", func(t *testing.T) {
		got, err := store.GetAccountByUsername(ctx, "MONITOR")
		require.NoError(t, err)
		assert.Equal(t, admin.ID, got.ID)
		assert.True(t, got.IsAdmin)

		_, err = store.GetAccount(ctx, 9999)
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("admins", func(t *testing.T) {
		admins, err := store.ListAdmins(ctx)
		require.NoError(t, err)
		require.Len(t, admins, 1)
		assert.Equal(t, admin.ID, admins[0].ID)

		require.NoError(t, store.SetAdmin(ctx, student.ID, true))
		admins, err = store.ListAdmins(ctx)
		require.NoError(t, err)
		assert.Len(t, admins, 2)
		require.NoError(t, store.SetAdmin(ctx, student.ID, false))

		assert.ErrorIs(t, store.SetAdmin(ctx, 9999, true), common.ErrNotFound)
	})

	t.Run("subject by display name", func(t *testing.T) {
		got, err := store.FindAccountForSubject(ctx, "Jane Doe")
		require.NoError(t, err)
		assert.Equal(t, student.ID, got.ID)
	})

	t.Run("linked subject wins", func(t *testing.T) {
		require.NoError(t, store.LinkSubject(ctx, admin.ID, "  jane   doe "))
		got, err := store.FindAccountForSubject(ctx, "Jane Doe")
		require.NoError(t, err)
		assert.Equal(t, admin.ID, got.ID)

		_, err = store.FindAccountForSubject(ctx, "Nobody Here")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	all, err := store.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSQLiteStorage_Notifications(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	acct := &model.Account{Username: "jane", DisplayName: "Jane Doe"}
	require.NoError(t, store.CreateAccount(ctx, acct))

	base := time.Date(2025, 9, 10, 8, 0, 0, 0, time.UTC)
	first := &model.Notification{AccountID: acct.ID, Message: "first", CreatedAt: base}
	second := &model.Notification{AccountID: acct.ID, Message: "second", CreatedAt: base.Add(time.Hour)}
	require.NoError(t, store.SaveNotification(ctx, first))
	require.NoError(t, store.SaveNotification(ctx, second))

	notes, err := store.ListNotifications(ctx, acct.ID)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "second", notes[0].Message)
	assert.False(t, notes[0].Read)

	require.NoError(t, store.MarkNotificationRead(ctx, acct.ID, first.ID))
	assert.ErrorIs(t, store.MarkNotificationRead(ctx, acct.ID+1, second.ID), common.ErrNotFound)

	n, err := store.MarkAllNotificationsRead(ctx, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	notes, err = store.ListNotifications(ctx, acct.ID)
	require.NoError(t, err)
	for _, note := range notes {
		assert.True(t, note.Read)
	}

	assert.ErrorIs(t, store.SaveNotification(ctx, &model.Notification{AccountID: acct.ID}), common.ErrValidation)
}
