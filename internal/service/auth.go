package service

// AuthService is the business logic layer for sign-in:
//
//	AuthHandler (HTTP) → AuthService (business rules) → UserRepository (DB)
//	                   ↘ TokenService (JWT)
//
// KEY RESPONSIBILITIES:
//   - Turn a GitHub profile into a HeapOverflow user (create, link or reuse)
//   - Issue the session token
//
// IDENTITY IS INFORMATIONAL:
// The token tells the client who it is and lets the websocket tag a
// connection with a username. No endpoint checks it before acting.

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/heapoverflow/internal/apperror"
	"github.com/sakif/heapoverflow/internal/auth"
	"github.com/sakif/heapoverflow/internal/model"
	"github.com/sakif/heapoverflow/internal/repository"
)

// AuthService handles GitHub sign-in.
//
// DEPENDENCIES (injected via NewAuthService):
//   - users   repository.UserRepository → read/write user records
//   - tokens  *auth.TokenService        → generate JWTs
//   - logger  *slog.Logger              → structured logging
type AuthService struct {
	users  repository.UserRepository
	tokens *auth.TokenService
	logger *slog.Logger
}

func NewAuthService(users repository.UserRepository, tokens *auth.TokenService, logger *slog.Logger) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		logger: logger,
	}
}

// AuthResult bundles the user record and the issued JWT so the handler can
// set the cookie and redirect in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// LoginOrRegisterGitHub resolves a GitHub profile to a user:
//
//  1. An account already linked to this GitHub ID is reused.
//  2. Otherwise an unlinked account whose username equals the GitHub login
//     is linked (it was created through addUser before the first sign-in).
//  3. Otherwise a new account is created with the login as its username.
//
// A username that is taken by an account linked to a different GitHub ID
// is a Conflict.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, gh *auth.GitHubUser) (*AuthResult, error) {
	if gh == nil || gh.ID == 0 || gh.Login == "" {
		return nil, fmt.Errorf("service/auth: incomplete GitHub profile")
	}

	user, err := s.findOrCreate(ctx, gh)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user authenticated via GitHub",
		slog.String("username", user.Username),
		slog.Int64("githubID", gh.ID),
	)

	token, err := s.tokens.Generate(user.Username)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for %s: %w", user.Username, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

func (s *AuthService) findOrCreate(ctx context.Context, gh *auth.GitHubUser) (*model.User, error) {
	u, err := s.users.GetUserByGitHubID(ctx, gh.ID)
	if err == nil {
		return u, nil
	}
	if !isNotFound(err) {
		return nil, fmt.Errorf("service/auth: finding GitHub user %d: %w", gh.ID, err)
	}

	u, err = s.users.GetUserByUsername(ctx, gh.Login)
	switch {
	case err == nil && u.GitHubID != 0:
		return nil, apperror.Conflict("Username already taken.")
	case err == nil:
		u.GitHubID = gh.ID
		fillProfile(u, gh)
		if err := s.users.UpdateUserProfile(ctx, u); err != nil {
			return nil, fmt.Errorf("service/auth: linking %s to GitHub: %w", u.Username, err)
		}
		return u, nil
	case !isNotFound(err):
		return nil, fmt.Errorf("service/auth: finding user %s: %w", gh.Login, err)
	}

	u = &model.User{
		Username:        gh.Login,
		GitHubID:        gh.ID,
		PrivacySettings: model.DefaultPrivacySettings(),
		Settings:        model.DefaultSettings(),
	}
	fillProfile(u, gh)
	if err := s.users.CreateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("service/auth: creating %s: %w", gh.Login, err)
	}
	return u, nil
}

// fillProfile copies GitHub profile data into empty profile fields only, so
// edits made in the app are never overwritten.
func fillProfile(u *model.User, gh *auth.GitHubUser) {
	first, last, _ := strings.Cut(strings.TrimSpace(gh.Name), " ")
	if u.FirstName == "" {
		u.FirstName = first
	}
	if u.LastName == "" {
		u.LastName = strings.TrimSpace(last)
	}
	if u.Picture == "" {
		u.Picture = gh.AvatarURL
	}
	if u.Biography == "" {
		u.Biography = gh.Bio
	}
}

// CurrentUser returns the profile behind a validated token's username.
func (s *AuthService) CurrentUser(ctx context.Context, username string) (*model.User, error) {
	if username == "" {
		return nil, fmt.Errorf("service/auth: username must not be empty")
	}
	u, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if isNotFound(err) {
			return nil, apperror.NotFound("User not found.")
		}
		return nil, fmt.Errorf("service/auth: fetching %s: %w", username, err)
	}
	return u, nil
}

// TokenTTL is how long an issued session stays valid.
func (s *AuthService) TokenTTL() time.Duration {
	return s.tokens.TTL()
}
