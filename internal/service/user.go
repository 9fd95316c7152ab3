package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/sakif/heapoverflow/internal/apperror"
	"github.com/sakif/heapoverflow/internal/model"
	"github.com/sakif/heapoverflow/internal/repository"
)

// NewUser is an addUser request.
type NewUser struct {
	Username  string `json:"username"  validate:"required,max=50,excludesall=/"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Picture   string `json:"picture"   validate:"omitempty,url"`
	Biography string `json:"biography" validate:"max=500"`
}

// UserUpdate is an updateUser request. Nil fields are left unchanged.
type UserUpdate struct {
	FirstName       *string                `json:"firstName"`
	LastName        *string                `json:"lastName"`
	Picture         *string                `json:"picture"   validate:"omitempty,url"`
	Biography       *string                `json:"biography" validate:"omitempty,max=500"`
	PrivacySettings *model.PrivacySettings `json:"privacySettings"`
	Settings        *model.Settings        `json:"settings"`
}

// UserService manages profiles. Relationship lists are owned by
// FriendshipService and ChatService, never written here.
type UserService struct {
	users  repository.UserRepository
	logger *slog.Logger
}

func NewUserService(users repository.UserRepository, logger *slog.Logger) *UserService {
	return &UserService{users: users, logger: logger}
}

// AddUser registers a user with default privacy and display settings.
func (s *UserService) AddUser(ctx context.Context, in *NewUser) (*model.User, error) {
	if in == nil {
		return nil, apperror.ValidationFailed("username", "Invalid user")
	}
	in.Username = strings.TrimSpace(in.Username)
	// Usernames are cross-reference keys and chat participant keys, so no
	// whitespace or control characters.
	if strings.ContainsFunc(in.Username, func(r rune) bool { return unicode.IsSpace(r) || unicode.IsControl(r) }) {
		return nil, apperror.ValidationFailed("username", "Invalid user")
	}
	if err := validate.Struct(in); err != nil {
		return nil, apperror.ValidationFailed("username", "Invalid user")
	}

	u := &model.User{
		Username:        in.Username,
		FirstName:       in.FirstName,
		LastName:        in.LastName,
		Picture:         in.Picture,
		Biography:       in.Biography,
		PrivacySettings: model.DefaultPrivacySettings(),
		Settings:        model.DefaultSettings(),
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("service/user: creating %s: %w", in.Username, err)
	}

	s.logger.Info("user registered", slog.String("username", u.Username))
	return u, nil
}

func (s *UserService) GetUser(ctx context.Context, username string) (*model.User, error) {
	if username == "" {
		return nil, apperror.ValidationFailed("username", "User not found.")
	}
	u, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if isNotFound(err) {
			return nil, apperror.NotFound("User not found.")
		}
		return nil, fmt.Errorf("service/user: getting %s: %w", username, err)
	}
	return u, nil
}

func (s *UserService) GetAllUsers(ctx context.Context) ([]model.User, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/user: listing users: %w", err)
	}
	return users, nil
}

// UpdateUser applies the non-nil fields of upd and returns the new profile.
func (s *UserService) UpdateUser(ctx context.Context, username string, upd *UserUpdate) (*model.User, error) {
	if upd == nil {
		return nil, apperror.ValidationFailed("user", "Invalid user")
	}
	if err := validate.Struct(upd); err != nil {
		return nil, apperror.ValidationFailed("user", "Invalid user")
	}

	u, err := s.GetUser(ctx, username)
	if err != nil {
		return nil, err
	}

	if upd.FirstName != nil {
		u.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		u.LastName = *upd.LastName
	}
	if upd.Picture != nil {
		u.Picture = *upd.Picture
	}
	if upd.Biography != nil {
		u.Biography = *upd.Biography
	}
	if upd.PrivacySettings != nil {
		u.PrivacySettings = *upd.PrivacySettings
	}
	if upd.Settings != nil {
		u.Settings = *upd.Settings
	}

	if err := s.users.UpdateUserProfile(ctx, u); err != nil {
		if isNotFound(err) {
			return nil, apperror.NotFound("User not found.")
		}
		return nil, fmt.Errorf("service/user: updating %s: %w", username, err)
	}
	return u, nil
}
