// Package repository defines the storage interfaces the service layer depends on.
//
// WHY INTERFACES?
// Services depend on these interfaces, never on a concrete store. The
// composition root (internal/server) picks SQLite or MongoDB at startup, and
// tests hand services small in-memory fakes.
//
// REFERENCE LISTS ARE MUTATED ONE ELEMENT AT A TIME:
// Methods such as AddFriend or AddAnswerToQuestion change a single entry
// atomically inside the store. No interface here accepts a whole list to
// write back, so two concurrent requests touching the same user's friends
// can never overwrite each other's change.
//
// ERRORS:
// Lookups return an error wrapping apperror.ErrNotFound when the entity does
// not exist. Every other failure is a storage error.
package repository

import (
	"context"

	"github.com/sakif/heapoverflow/internal/model"
)

// UserRepository persists users and their reference lists.
// Add* methods have add-to-set semantics; Remove* of an absent entry is a no-op.
// Both return ErrNotFound when the owning user does not exist.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error // ErrConflict on duplicate username
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	UpdateUserProfile(ctx context.Context, user *model.User) error

	AddFriend(ctx context.Context, username, friend string) error
	RemoveFriend(ctx context.Context, username, friend string) error
	AddRequest(ctx context.Context, username, requester string) error
	RemoveRequest(ctx context.Context, username, requester string) error
	AddNotification(ctx context.Context, username, notificationID string) error
	AddChat(ctx context.Context, username, chatID string) error
}

// QuestionRepository persists questions.
type QuestionRepository interface {
	CreateQuestion(ctx context.Context, q *model.Question) error
	GetQuestionByID(ctx context.Context, id string) (*model.Question, error)
	// ListQuestions returns newest first; an empty askedBy lists everything.
	ListQuestions(ctx context.Context, askedBy string) ([]model.Question, error)
	// FindQuestionByAnswer returns the question whose answer list holds answerID.
	FindQuestionByAnswer(ctx context.Context, answerID string) (*model.Question, error)
	AddAnswerToQuestion(ctx context.Context, questionID, answerID string) error
	AddCommentToQuestion(ctx context.Context, questionID, commentID string) error
	AddView(ctx context.Context, questionID, username string) error
	// Vote toggles username's vote in dir and clears any vote in the other
	// direction, keeping upVotes and downVotes disjoint. It returns the
	// question after the change.
	Vote(ctx context.Context, questionID, username string, dir model.VoteDirection) (*model.Question, error)
}

// AnswerRepository persists answers.
type AnswerRepository interface {
	CreateAnswer(ctx context.Context, a *model.Answer) error
	GetAnswerByID(ctx context.Context, id string) (*model.Answer, error)
	// GetAnswersByIDs returns the answers found, in the order of ids.
	GetAnswersByIDs(ctx context.Context, ids []string) ([]model.Answer, error)
	ListAnswersByAuthor(ctx context.Context, ansBy string) ([]model.Answer, error)
	AddCommentToAnswer(ctx context.Context, answerID, commentID string) error
}

// CommentRepository persists comments.
type CommentRepository interface {
	CreateComment(ctx context.Context, c *model.Comment) error
	// GetCommentsByIDs returns the comments found, in the order of ids.
	GetCommentsByIDs(ctx context.Context, ids []string) ([]model.Comment, error)
	ListCommentsByAuthor(ctx context.Context, commentBy string) ([]model.Comment, error)
}

// NotificationRepository persists notifications.
type NotificationRepository interface {
	// InsertNotifications stores the batch in one operation and fills in
	// each element's ID.
	InsertNotifications(ctx context.Context, batch []model.Notification) error
	// ListNotificationsByRecipient returns newest first.
	ListNotificationsByRecipient(ctx context.Context, recipient string) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
}

// ChatRepository persists chats.
type ChatRepository interface {
	CreateChat(ctx context.Context, c *model.Chat) error
	GetChatByID(ctx context.Context, id string) (*model.Chat, error)
	// FindChatByParticipants returns a chat whose participant list holds
	// exactly the given usernames, ignoring order.
	FindChatByParticipants(ctx context.Context, participants []string) (*model.Chat, error)
	ListChatsByParticipant(ctx context.Context, username string) ([]model.Chat, error)
	AddMessageToChat(ctx context.Context, chatID, messageID string) error
}

// MessageRepository persists chat messages.
type MessageRepository interface {
	CreateMessage(ctx context.Context, m *model.Message) error
	// ListMessagesByChat returns oldest first.
	ListMessagesByChat(ctx context.Context, chatID string) ([]model.Message, error)
}

// Store is a complete entity store. Both backends implement it.
type Store interface {
	UserRepository
	QuestionRepository
	AnswerRepository
	CommentRepository
	NotificationRepository
	ChatRepository
	MessageRepository
	Close() error
}
