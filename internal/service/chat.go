package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sakif/heapoverflow/internal/apperror"
	"github.com/sakif/heapoverflow/internal/model"
	"github.com/sakif/heapoverflow/internal/realtime"
	"github.com/sakif/heapoverflow/internal/repository"
)

// ChatService manages chats. Creating one is gated on friendship: every
// participant after the first (the initiator) must be in the initiator's
// friends list at creation time.
type ChatService struct {
	users  repository.UserRepository
	chats  repository.ChatRepository
	events realtime.Broadcaster
	logger *slog.Logger
}

func NewChatService(
	users repository.UserRepository,
	chats repository.ChatRepository,
	events realtime.Broadcaster,
	logger *slog.Logger,
) *ChatService {
	return &ChatService{
		users:  users,
		chats:  chats,
		events: events,
		logger: logger,
	}
}

// uniqueParticipants drops repeated usernames, keeping first occurrences in
// order so the initiator stays first. Both stores then see the same set.
func uniqueParticipants(participants []string) []string {
	seen := make(map[string]struct{}, len(participants))
	out := make([]string, 0, len(participants))
	for _, p := range participants {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// CreateChat returns the chat between exactly these participants, creating
// it when none exists yet. Only a newly created chat is linked into the
// participants' chat lists and broadcast.
func (s *ChatService) CreateChat(ctx context.Context, participants []string) (*model.Chat, error) {
	participants = uniqueParticipants(participants)
	if len(participants) < 2 {
		return nil, apperror.ValidationFailed("participants", "At least two participants are required.")
	}

	initiator, err := s.users.GetUserByUsername(ctx, participants[0])
	if err != nil {
		if isNotFound(err) {
			return nil, apperror.NotFound("User not found.")
		}
		return nil, fmt.Errorf("service/chat: getting initiator %s: %w", participants[0], err)
	}
	for _, p := range participants[1:] {
		if !initiator.HasFriend(p) {
			return nil, apperror.Forbidden("You can only create chats with friends.")
		}
	}

	existing, err := s.chats.FindChatByParticipants(ctx, participants)
	if err == nil {
		return existing, nil
	}
	if !isNotFound(err) {
		return nil, fmt.Errorf("service/chat: looking up existing chat: %w", err)
	}

	chat := &model.Chat{
		Participants: participants,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.chats.CreateChat(ctx, chat); err != nil {
		return nil, fmt.Errorf("service/chat: saving chat: %w", err)
	}

	// Links are independent, so they run concurrently. A participant whose
	// record has gone missing is skipped rather than failing the chat.
	g, gctx := errgroup.WithContext(ctx)
	for _, p := range participants {
		g.Go(func() error {
			if err := s.users.AddChat(gctx, p, chat.ID); err != nil && !isNotFound(err) {
				return fmt.Errorf("linking chat %s to %s: %w", chat.ID, p, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("service/chat: %w", err)
	}

	s.events.Emit(ctx, model.EventChatUpdate, chat)

	s.logger.Info("chat created",
		slog.String("chatID", chat.ID),
		slog.Int("participants", len(participants)),
	)
	return chat, nil
}

// GetUserChats lists every chat the user takes part in.
func (s *ChatService) GetUserChats(ctx context.Context, username string) ([]model.Chat, error) {
	if username == "" {
		return nil, apperror.ValidationFailed("username", "Username is required.")
	}
	chats, err := s.chats.ListChatsByParticipant(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("service/chat: listing chats for %s: %w", username, err)
	}
	return chats, nil
}

func (s *ChatService) GetChat(ctx context.Context, chatID string) (*model.Chat, error) {
	if chatID == "" {
		return nil, apperror.ValidationFailed("chatId", "Chat ID is required.")
	}
	chat, err := s.chats.GetChatByID(ctx, chatID)
	if err != nil {
		if isNotFound(err) {
			return nil, apperror.NotFound("Chat not found.")
		}
		return nil, fmt.Errorf("service/chat: getting chat %s: %w", chatID, err)
	}
	return chat, nil
}
