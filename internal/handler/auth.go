package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/heapoverflow/internal/auth"
	"github.com/sakif/heapoverflow/internal/model"
	"github.com/sakif/heapoverflow/internal/service"
)

// GitHubOAuth is the OAuth half of auth.GitHubProvider.
type GitHubOAuth interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GitHubUser, error)
}

// Sessions is the part of service.AuthService the handler needs.
type Sessions interface {
	LoginOrRegisterGitHub(ctx context.Context, gh *auth.GitHubUser) (*service.AuthResult, error)
	CurrentUser(ctx context.Context, username string) (*model.User, error)
	TokenTTL() time.Duration
}

const stateCookie = "oauth_state"

// AuthHandler manages the GitHub OAuth login flow and the session cookie.
//
// HANDLER RESPONSIBILITIES:
//   - HandleGitHubLogin    → redirect the browser to GitHub's authorization page
//   - HandleGitHubCallback → receive the code, resolve the user, issue the JWT
//   - HandleLogout         → clear the JWT cookie
//   - HandleMe             → return the signed-in user's profile
//
// IDENTITY IS INFORMATIONAL:
// The other routes do not check the session. The token lets the client
// know who it is and lets the websocket tag a connection with a username.
type AuthHandler struct {
	github    GitHubOAuth
	sessions  Sessions
	clientURL string // where the browser lands after sign-in
	logger    *slog.Logger
}

// NewAuthHandler creates an AuthHandler. All dependencies are injected here;
// the handler has no knowledge of how they're constructed.
func NewAuthHandler(github GitHubOAuth, sessions Sessions, clientURL string, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		github:    github,
		sessions:  sessions,
		clientURL: clientURL,
		logger:    logger,
	}
}

var meReply = errorReply{action: "fetching current user"}

// HandleGitHubLogin redirects the user to GitHub's authorization page.
//
// HTTP: GET /auth/github
//
// CSRF PROTECTION VIA STATE:
// A random state goes into a short-lived cookie and into the GitHub URL.
// The callback only proceeds when both match, which proves this server
// started the flow.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes to approve
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth login flow.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter (CSRF check)
//  2. Exchange the code for a GitHub profile
//  3. Resolve the profile to a user (reuse, link or create)
//  4. Store the JWT in an HttpOnly cookie
//  5. Redirect to the web client
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	// --- Step 1: Validate CSRF state ---
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" {
		h.logger.Warn("auth callback: missing state cookie")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}
	if r.URL.Query().Get("state") != cookie.Value {
		h.logger.Warn("auth callback: state mismatch",
			slog.String("expected", cookie.Value),
			slog.String("got", r.URL.Query().Get("state")),
		)
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// Single use.
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/", MaxAge: -1})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, h.clientURL+"/?auth=denied", http.StatusSeeOther)
		return
	}

	// --- Step 2: Exchange code for GitHub profile ---
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	gh, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	// --- Step 3: Resolve the user ---
	result, err := h.sessions.LoginOrRegisterGitHub(r.Context(), gh)
	if err != nil {
		h.logger.Error("auth callback: sign-in failed",
			slog.Int64("githubID", gh.ID),
			slog.String("error", err.Error()),
		)
		status, msg := errorReply{action: "signing in"}.status(err)
		http.Error(w, msg, status)
		return
	}

	// --- Step 4: Issue JWT cookie ---
	// Secure should be true behind HTTPS; local development runs plain HTTP.
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    result.Token,
		Path:     "/",
		MaxAge:   int(h.sessions.TokenTTL().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	// --- Step 5: Back to the app ---
	http.Redirect(w, r, h.clientURL, http.StatusSeeOther)
}

// HandleLogout clears the JWT cookie.
//
// HTTP: POST /auth/logout
//
// Tokens are stateless, so "logout" only deletes the cookie. The token
// itself stays valid until it expires.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, MessageResponse{Message: "logged out"})
}

// HandleMe returns the signed-in user's profile.
//
// HTTP: GET /auth/me
// Auth: Required (RequireAuth puts the username in the context)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	username, ok := auth.UsernameFromContext(r.Context())
	if !ok {
		// Only reachable if the route is mounted without RequireAuth.
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	u, err := h.sessions.CurrentUser(r.Context(), username)
	if err != nil {
		writeError(w, h.logger, meReply, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
