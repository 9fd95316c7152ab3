package service

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/heapoverflow/internal/model"
	sqliteRepo "github.com/sakif/heapoverflow/internal/repository/sqlite"
)

// The fake store serialises everything behind a mutex. These tests run the
// concurrent fan-out against a real database file instead, where parallel
// writers contend for the SQLite lock.

func newFileStore(t *testing.T) *sqliteRepo.DB {
	t.Helper()
	db, err := sqliteRepo.New(filepath.Join(t.TempDir(), "fanout.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestAddAnswer_FileStoreKeepsEveryFanoutBatch(t *testing.T) {
	db := newFileStore(t)
	ctx := context.Background()
	events := &recordingBroadcaster{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	notes := NewNotificationService(db, db, events, logger, nil)
	answers := NewAnswerService(db, notes, events, logger)

	for _, name := range []string{"ann", "bob", "f1", "f2", "f3"} {
		require.NoError(t, db.CreateUser(ctx, &model.User{
			Username:        name,
			PrivacySettings: model.DefaultPrivacySettings(),
			Settings:        model.DefaultSettings(),
		}))
	}
	for _, f := range []string{"f1", "f2", "f3"} {
		require.NoError(t, db.AddFriend(ctx, "bob", f))
		require.NoError(t, db.AddFriend(ctx, f, "bob"))
	}
	q := &model.Question{Title: "Locks", Text: "why", Tags: []string{"sqlite"}, AskedBy: "ann"}
	require.NoError(t, db.CreateQuestion(ctx, q))

	// ann is not bob's friend, so every answer sends two batches at once:
	// one to the asker and one to bob's friends.
	const n = 30
	for i := 0; i < n; i++ {
		_, err := answers.AddAnswer(ctx, q.ID, newAnswer("bob"))
		require.NoError(t, err)
	}

	for _, user := range []string{"ann", "f1", "f2", "f3"} {
		stored, err := db.ListNotificationsByRecipient(ctx, user)
		require.NoError(t, err)
		assert.Len(t, stored, n, "notifications stored for %s", user)
		assert.Len(t, events.notificationsFor(user), n, "notificationUpdate broadcasts for %s", user)
	}
}

func TestCreateChat_FileStoreLinksBothParticipants(t *testing.T) {
	db := newFileStore(t)
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	chats := NewChatService(db, db, &recordingBroadcaster{}, logger)

	for _, name := range []string{"ann", "bob", "cy"} {
		require.NoError(t, db.CreateUser(ctx, &model.User{
			Username:        name,
			PrivacySettings: model.DefaultPrivacySettings(),
			Settings:        model.DefaultSettings(),
		}))
	}
	for _, f := range []string{"bob", "cy"} {
		require.NoError(t, db.AddFriend(ctx, "ann", f))
		require.NoError(t, db.AddFriend(ctx, f, "ann"))
	}

	chat, err := chats.CreateChat(ctx, []string{"ann", "bob", "cy"})
	require.NoError(t, err)

	for _, name := range []string{"ann", "bob", "cy"} {
		u, err := db.GetUserByUsername(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, []string{chat.ID}, u.Chats, "chat linked for %s", name)
	}
}
