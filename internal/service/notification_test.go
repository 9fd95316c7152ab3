package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/heapoverflow/internal/apperror"
	"github.com/sakif/heapoverflow/internal/model"
)

func TestNotify_EmptyRecipientsIsNoop(t *testing.T) {
	env := newTestEnv(t)

	err := env.notes.Notify(context.Background(), NotifyInput{
		Sender:  "ann",
		Content: "hello",
		Type:    model.NotificationQuestion,
	})

	require.NoError(t, err)
	assert.Zero(t, env.store.insertBatches, "no store writes")
	assert.Zero(t, env.events.count(), "no broadcasts")
}

func TestNotify_OneBatchOneBroadcastPerRecipient(t *testing.T) {
	env := newTestEnv(t)
	env.seedUsers(t, "x", "y")

	err := env.notes.Notify(context.Background(), NotifyInput{
		Recipients: []string{"x", "y"},
		Sender:     "ann",
		Content:    "hi",
		Type:       model.NotificationQuestion,
		QuestionID: "q1",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, env.store.insertBatches)
	assert.Len(t, env.store.notifications, 2)

	updates := env.events.named(model.EventNotificationUpdate)
	require.Len(t, updates, 2)
	for i, want := range []string{"x", "y"} {
		p := updates[i].(model.NotificationUpdatePayload)
		assert.Equal(t, want, p.Recipient)
		assert.Equal(t, "ann", p.Sender)
		assert.Equal(t, "q1", p.QuestionID)
	}

	// Every record shares the batch timestamp and is linked to its recipient.
	first := updates[0].(model.NotificationUpdatePayload).CreatedAt
	for _, n := range env.store.notifications {
		assert.False(t, n.IsRead)
		assert.Equal(t, first, n.CreatedAt)
		assert.Contains(t, env.user(t, n.Recipient).Notifications, n.ID)
	}
}

func TestNotify_InsertFailureIsFanoutError(t *testing.T) {
	env := newTestEnv(t)
	env.store.insertErr = errStorage

	err := env.notes.Notify(context.Background(), NotifyInput{Recipients: []string{"x"}, Sender: "ann"})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrFanout)
	assert.ErrorIs(t, err, errStorage)
	assert.Zero(t, env.events.count(), "nothing is broadcast for a lost batch")
}

func TestNotify_LinkFailureStillBroadcasts(t *testing.T) {
	env := newTestEnv(t)
	env.seedUsers(t, "x")
	env.store.linkErr = errStorage

	err := env.notes.Notify(context.Background(), NotifyInput{Recipients: []string{"x", "ghost"}, Sender: "ann"})

	require.NoError(t, err)
	assert.Len(t, env.store.notifications, 2, "the batch is not rolled back")
	assert.Len(t, env.events.named(model.EventNotificationUpdate), 2)
}

func TestUnreadCount_AndMarkAsRead(t *testing.T) {
	env := newTestEnv(t)
	env.seedUsers(t, "u")
	ctx := context.Background()

	for range 3 {
		require.NoError(t, env.notes.Notify(ctx, NotifyInput{Recipients: []string{"u"}, Sender: "s"}))
	}

	count, err := env.notes.UnreadCount(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	notes, err := env.notes.GetNotifications(ctx, "u")
	require.NoError(t, err)
	require.NoError(t, env.notes.MarkAsRead(ctx, notes[0].ID))

	count, err = env.notes.UnreadCount(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "marking one read decreases the count by exactly one")

	reads := env.events.named(model.EventReadNotificationUpdate)
	require.Len(t, reads, 1)
	assert.Equal(t, notes[0].ID, reads[0], "the payload is the bare notification ID")
}

func TestMarkAsRead_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	err := env.notes.MarkAsRead(ctx, "")
	assert.True(t, errors.Is(err, apperror.ErrValidation))

	err = env.notes.MarkAsRead(ctx, "missing")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.EqualError(t, err, "Notification not found.")
	assert.Empty(t, env.events.named(model.EventReadNotificationUpdate))
}

func TestGetNotifications_RequiresUsername(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.notes.GetNotifications(context.Background(), "")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}
