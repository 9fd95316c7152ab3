package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/heapoverflow/internal/apperror"
	"github.com/sakif/heapoverflow/internal/model"
	"github.com/sakif/heapoverflow/internal/realtime"
	"github.com/sakif/heapoverflow/internal/repository"
)

// NewMessage is a sendMessage request.
type NewMessage struct {
	Sender  string `json:"sender"  validate:"required"`
	ChatID  string `json:"chatId"  validate:"required"`
	Message string `json:"message" validate:"required"`
}

// MessageService appends messages to chats. Messages never create
// notifications; clients learn about them from messageUpdate alone.
type MessageService struct {
	chats    repository.ChatRepository
	messages repository.MessageRepository
	events   realtime.Broadcaster
	logger   *slog.Logger
}

func NewMessageService(
	chats repository.ChatRepository,
	messages repository.MessageRepository,
	events realtime.Broadcaster,
	logger *slog.Logger,
) *MessageService {
	return &MessageService{
		chats:    chats,
		messages: messages,
		events:   events,
		logger:   logger,
	}
}

// SendMessage stores the message, appends it to its chat and broadcasts it.
func (s *MessageService) SendMessage(ctx context.Context, in *NewMessage) (*model.Message, error) {
	if in == nil || validate.Struct(in) != nil {
		return nil, apperror.ValidationFailed("message", "Invalid message data.")
	}

	if _, err := s.chats.GetChatByID(ctx, in.ChatID); err != nil {
		if isNotFound(err) {
			return nil, apperror.NotFound("Chat not found.")
		}
		return nil, fmt.Errorf("service/message: getting chat %s: %w", in.ChatID, err)
	}

	msg := &model.Message{
		Sender:    in.Sender,
		ChatID:    in.ChatID,
		Message:   in.Message,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.messages.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("service/message: saving message: %w", err)
	}
	if err := s.chats.AddMessageToChat(ctx, msg.ChatID, msg.ID); err != nil {
		return nil, fmt.Errorf("service/message: linking message %s to chat %s: %w", msg.ID, msg.ChatID, err)
	}

	s.events.Emit(ctx, model.EventMessageUpdate, msg)

	s.logger.Debug("message sent",
		slog.String("chatID", msg.ChatID),
		slog.String("sender", msg.Sender),
	)
	return msg, nil
}

// GetMessages returns the chat's messages oldest first.
func (s *MessageService) GetMessages(ctx context.Context, chatID string) ([]model.Message, error) {
	if chatID == "" {
		return nil, apperror.ValidationFailed("chatId", "Invalid chat ID.")
	}
	msgs, err := s.messages.ListMessagesByChat(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("service/message: listing messages for chat %s: %w", chatID, err)
	}
	return msgs, nil
}
