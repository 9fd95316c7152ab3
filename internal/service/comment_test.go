package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/xid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/heapoverflow/internal/apperror"
	"github.com/sakif/heapoverflow/internal/model"
)

func newComment(by string) *NewComment {
	return &NewComment{Text: "nice", CommentBy: by, CommentDateTime: time.Now()}
}

func TestAddComment_OnQuestion(t *testing.T) {
	env := newTestEnv(t)
	env.seedUsers(t, "owner", "cc", "f1")
	env.befriend(t, "cc", "f1")
	env.befriend(t, "cc", "owner")
	q := env.seedQuestion(t, "owner", "Title")

	c, err := env.comment.AddComment(context.Background(), q.ID, "question", newComment("cc"))
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)

	updates := env.events.named(model.EventCommentUpdate)
	require.Len(t, updates, 1)
	p := updates[0].(model.CommentUpdatePayload)
	assert.Equal(t, model.TargetQuestion, p.Type)
	pq := p.Result.(*model.PopulatedQuestion)
	require.Len(t, pq.Comments, 1)
	assert.Equal(t, c.ID, pq.Comments[0].ID)

	owner := env.events.notificationsFor("owner")
	require.Len(t, owner, 1, "the owner is excluded from the friends send")
	assert.Equal(t, `cc just commented on your question: "Title" !`, owner[0].Content)

	f1 := env.events.notificationsFor("f1")
	require.Len(t, f1, 1)
	assert.Equal(t, `Your friend cc just posted a new comment to the question, "Title" !`, f1[0].Content)
	assert.Equal(t, q.ID, f1[0].QuestionID)
}

func TestAddComment_OnAnswer(t *testing.T) {
	env := newTestEnv(t)
	env.seedUsers(t, "asker", "ansr", "cc", "f1")
	env.befriend(t, "cc", "f1")
	q := env.seedQuestion(t, "asker", "Title")
	ctx := context.Background()
	a := &model.Answer{Text: "a", AnsBy: "ansr", AnsDateTime: time.Now()}
	require.NoError(t, env.store.CreateAnswer(ctx, a))
	require.NoError(t, env.store.AddAnswerToQuestion(ctx, q.ID, a.ID))

	_, err := env.comment.AddComment(ctx, a.ID, "answer", newComment("cc"))
	require.NoError(t, err)

	p := env.events.named(model.EventCommentUpdate)[0].(model.CommentUpdatePayload)
	assert.Equal(t, model.TargetAnswer, p.Type)
	pa := p.Result.(*model.PopulatedAnswer)
	assert.Len(t, pa.Comments, 1)

	owner := env.events.notificationsFor("ansr")
	require.Len(t, owner, 1)
	assert.Equal(t, `cc just commented on your answer to the question: "Title" !`, owner[0].Content)
	assert.Equal(t, q.ID, owner[0].QuestionID, "answer notifications point at the parent question")

	f1 := env.events.notificationsFor("f1")
	require.Len(t, f1, 1)
	assert.Equal(t, `Your friend cc just posted a new comment to an answer of the question, "Title" !`, f1[0].Content)
	assert.Empty(t, env.events.notificationsFor("asker"))
}

func TestAddComment_OwnTargetNoOwnerNotice(t *testing.T) {
	env := newTestEnv(t)
	env.seedUsers(t, "owner")
	q := env.seedQuestion(t, "owner", "Title")

	_, err := env.comment.AddComment(context.Background(), q.ID, "question", newComment("owner"))

	require.NoError(t, err)
	assert.Empty(t, env.events.named(model.EventNotificationUpdate))
	assert.Zero(t, env.store.insertBatches)
}

func TestAddComment_MissingOwnerRecordSkipsOnlyOwnerSend(t *testing.T) {
	env := newTestEnv(t)
	env.seedUsers(t, "cc", "f1")
	env.befriend(t, "cc", "f1")
	q := env.seedQuestion(t, "deleted-user", "Orphan")
	ctx := context.Background()

	_, err := env.comment.AddComment(ctx, q.ID, "question", newComment("cc"))
	require.NoError(t, err)

	assert.Empty(t, env.events.notificationsFor("deleted-user"))
	stored, err := env.store.ListNotificationsByRecipient(ctx, "deleted-user")
	require.NoError(t, err)
	assert.Empty(t, stored)
	assert.Len(t, env.events.notificationsFor("f1"), 1)
}

func TestAddComment_Validation(t *testing.T) {
	env := newTestEnv(t)
	id := xid.New().String()

	tests := []struct {
		name    string
		id      string
		kind    string
		comment *NewComment
		want    string
	}{
		{"missing id", "", "question", newComment("c"), "Invalid request"},
		{"bad type", id, "tag", newComment("c"), "Invalid request"},
		{"bad type beats bad id", "nope", "tag", newComment("c"), "Invalid request"},
		{"missing comment", id, "answer", nil, "Invalid request"},
		{"malformed id", "nope", "question", newComment("c"), "Invalid ID format"},
		{"empty text", id, "question", &NewComment{CommentBy: "c", CommentDateTime: time.Now()}, "Invalid comment body"},
		{"missing author", id, "question", &NewComment{Text: "t", CommentDateTime: time.Now()}, "Invalid comment body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.comment.AddComment(context.Background(), tt.id, tt.kind, tt.comment)
			assert.ErrorIs(t, err, apperror.ErrValidation)
			assert.EqualError(t, err, tt.want)
		})
	}
	assert.Empty(t, env.store.comments)
}

func TestAddComment_MissingTargetIsStorageFailure(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.comment.AddComment(context.Background(), xid.New().String(), "answer", newComment("c"))

	require.Error(t, err)
	assert.NotErrorIs(t, err, apperror.ErrNotFound, "reported as 500, not 404")
	assert.Len(t, env.store.comments, 1, "the orphaned comment stays")
}

func TestGetCommentsByAuthor(t *testing.T) {
	env := newTestEnv(t)
	q := env.seedQuestion(t, "ann", "Q")
	ctx := context.Background()
	_, err := env.comment.AddComment(ctx, q.ID, "question", newComment("zed"))
	require.NoError(t, err)

	got, err := env.comment.GetCommentsByAuthor(ctx, "zed")
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = env.comment.GetCommentsByAuthor(ctx, "")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}
