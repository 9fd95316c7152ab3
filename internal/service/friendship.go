package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/heapoverflow/internal/apperror"
	"github.com/sakif/heapoverflow/internal/model"
	"github.com/sakif/heapoverflow/internal/realtime"
	"github.com/sakif/heapoverflow/internal/repository"
)

// FriendshipService owns the friendship lifecycle between two users:
//
//	NONE ──sendRequest──▶ PENDING ──acceptRequest──▶ FRIENDS ──deleteFriend──▶ NONE
//
// There is no reject transition. The state lives in two reference lists on
// User: Requests (pending incoming) and Friends (symmetric). Every change is
// a single-element add or remove, and every friendship edit is issued on
// both sides so b ∈ a.Friends ⇔ a ∈ b.Friends.
//
// The "already requested" check in SendRequest reads before it writes.
// Two simultaneous requests from the same pair can both pass it; the
// add-to-set on Requests keeps the list free of duplicates anyway.
type FriendshipService struct {
	users  repository.UserRepository
	notes  *NotificationService
	events realtime.Broadcaster
	logger *slog.Logger
}

func NewFriendshipService(
	users repository.UserRepository,
	notes *NotificationService,
	events realtime.Broadcaster,
	logger *slog.Logger,
) *FriendshipService {
	return &FriendshipService{
		users:  users,
		notes:  notes,
		events: events,
		logger: logger,
	}
}

// SendRequest records a pending request from requester to recipient (both
// usernames) and notifies the recipient.
func (s *FriendshipService) SendRequest(ctx context.Context, requester, recipient string) error {
	if requester == "" || recipient == "" {
		return apperror.ValidationFailed("requesterId", "Invalid user emails.")
	}
	if requester == recipient {
		return apperror.ValidationFailed("recipientId", "You cannot send a friend request to yourself.")
	}

	if _, err := s.lookup(ctx, requester, "Requester not found."); err != nil {
		return err
	}
	target, err := s.lookup(ctx, recipient, "Recipient not found.")
	if err != nil {
		return err
	}

	if target.HasFriend(requester) {
		return apperror.Conflict("You are already friends.")
	}
	if target.HasRequestFrom(requester) {
		return apperror.Conflict("Friend request already exists.")
	}

	if err := s.users.AddRequest(ctx, recipient, requester); err != nil {
		return fmt.Errorf("service/friendship: adding request %s → %s: %w", requester, recipient, err)
	}

	s.events.Emit(ctx, model.EventFriendRequestUpdate, model.FriendRequestUpdatePayload{
		Requester: requester,
		Recipient: recipient,
		Status:    model.FriendRequestPending,
	})

	s.logger.Info("friend request sent",
		slog.String("requester", requester),
		slog.String("recipient", recipient),
	)

	s.notes.NotifyAll(ctx, NotifyInput{
		Recipients: []string{recipient},
		Sender:     requester,
		Content:    fmt.Sprintf("You have a new friend request from %s.", requester),
		Type:       model.NotificationRequest,
	})
	return nil
}

// AcceptRequest makes requester and recipient friends and clears the
// pending request. Each side may be given as a user ID or a username.
//
// Both users are resolved before anything is written, so a missing user
// never leaves a one-sided friendship behind.
func (s *FriendshipService) AcceptRequest(ctx context.Context, requester, recipient string) error {
	if requester == "" || recipient == "" {
		return apperror.ValidationFailed("requester", "Requester and recipient are required.")
	}

	from, err := s.resolve(ctx, requester)
	if err != nil {
		return err
	}
	to, err := s.resolve(ctx, recipient)
	if err != nil {
		return err
	}
	if from.Username == to.Username {
		return apperror.ValidationFailed("recipient", "You cannot accept your own friend request.")
	}

	steps := []struct {
		name string
		run  func() error
	}{
		{"add " + to.Username + " to " + from.Username, func() error { return s.users.AddFriend(ctx, from.Username, to.Username) }},
		{"add " + from.Username + " to " + to.Username, func() error { return s.users.AddFriend(ctx, to.Username, from.Username) }},
		{"clear request", func() error { return s.users.RemoveRequest(ctx, to.Username, from.Username) }},
	}
	for _, step := range steps {
		if err := step.run(); err != nil {
			if isNotFound(err) {
				return apperror.NotFound("User not found.")
			}
			return fmt.Errorf("service/friendship: accept (%s): %w", step.name, err)
		}
	}

	// Re-read both sides so the broadcasts carry the full current lists.
	from, err = s.lookup(ctx, from.Username, "User not found.")
	if err != nil {
		return err
	}
	to, err = s.lookup(ctx, to.Username, "User not found.")
	if err != nil {
		return err
	}

	s.events.Emit(ctx, model.EventFriendRequestUpdate, model.FriendRequestUpdatePayload{
		Requester: from.Username,
		Recipient: to.Username,
		Status:    model.FriendRequestAccepted,
	})
	s.emitFriendList(ctx, from)
	s.emitFriendList(ctx, to)

	s.logger.Info("friend request accepted",
		slog.String("requester", from.Username),
		slog.String("recipient", to.Username),
	)

	s.notes.NotifyAll(ctx, NotifyInput{
		Recipients: []string{from.Username},
		Sender:     to.Username,
		Content:    fmt.Sprintf("%s accepted your friend request!", to.Username),
		Type:       model.NotificationRequest,
	})
	return nil
}

// DeleteFriend removes the friendship from both sides. No notification is
// sent for unfriending.
func (s *FriendshipService) DeleteFriend(ctx context.Context, current, friend string) error {
	if current == "" || friend == "" {
		return apperror.ValidationFailed("currentUsername", "Both user IDs are required.")
	}

	if _, err := s.lookup(ctx, current, "User not found."); err != nil {
		return err
	}
	if _, err := s.lookup(ctx, friend, "User not found."); err != nil {
		return err
	}

	if err := s.users.RemoveFriend(ctx, current, friend); err != nil {
		return fmt.Errorf("service/friendship: removing %s from %s: %w", friend, current, err)
	}
	if err := s.users.RemoveFriend(ctx, friend, current); err != nil {
		return fmt.Errorf("service/friendship: removing %s from %s: %w", current, friend, err)
	}

	for _, name := range []string{current, friend} {
		u, err := s.lookup(ctx, name, "User not found.")
		if err != nil {
			return err
		}
		s.emitFriendList(ctx, u)
	}

	s.logger.Info("friendship removed",
		slog.String("user", current),
		slog.String("friend", friend),
	)
	return nil
}

// GetFriends returns the user's friends.
//
// Reading also re-broadcasts a friendListUpdate for the user. Clients treat
// that event as an idempotent state refresh, so the echo is harmless, but
// it is the only read in the API with a push side effect. Don't copy it to
// other reads.
func (s *FriendshipService) GetFriends(ctx context.Context, username string) ([]string, error) {
	if username == "" {
		return nil, apperror.ValidationFailed("userId", "Invalid user id.")
	}

	u, err := s.lookup(ctx, username, "User not found.")
	if err != nil {
		return nil, err
	}

	s.emitFriendList(ctx, u)
	return u.Friends, nil
}

// GetRequests returns the usernames with a pending request to the user.
func (s *FriendshipService) GetRequests(ctx context.Context, username string) ([]string, error) {
	if username == "" {
		return nil, apperror.ValidationFailed("userId", "Invalid user ID.")
	}

	u, err := s.lookup(ctx, username, "User not found.")
	if err != nil {
		return nil, err
	}
	return u.Requests, nil
}

func (s *FriendshipService) emitFriendList(ctx context.Context, u *model.User) {
	s.events.Emit(ctx, model.EventFriendListUpdate, model.FriendListUpdatePayload{
		Username: u.Username,
		Friends:  u.Friends,
	})
}

// lookup fetches a user by username and turns a miss into a NotFound with
// the given client message.
func (s *FriendshipService) lookup(ctx context.Context, username, missing string) (*model.User, error) {
	u, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if isNotFound(err) {
			return nil, apperror.NotFound(missing)
		}
		return nil, fmt.Errorf("service/friendship: getting user %s: %w", username, err)
	}
	return u, nil
}

// resolve accepts either a user ID or a username. A string that looks like
// an ID but matches no user is retried as a username.
func (s *FriendshipService) resolve(ctx context.Context, ref string) (*model.User, error) {
	if model.IsValidID(ref) {
		u, err := s.users.GetUserByID(ctx, ref)
		if err == nil {
			return u, nil
		}
		if !isNotFound(err) {
			return nil, fmt.Errorf("service/friendship: getting user %s: %w", ref, err)
		}
	}
	return s.lookup(ctx, ref, "User not found.")
}
