package realtime

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// EventConnected is sent once to every new connection.
const EventConnected = "connected"

// TokenValidator turns a session token into a username.
type TokenValidator interface {
	Validate(token string) (string, error)
}

// ConnectedPayload is the data of the initial EventConnected envelope.
type ConnectedPayload struct {
	ConnectionID string `json:"connectionId"`
	Username     string `json:"username,omitempty"`
}

// Handler upgrades GET /ws to a websocket and attaches it to the hub.
//
// Identity is optional. A valid token (query "token", bearer header or the
// session cookie) only labels the connection in logs; every connection gets
// every event either way.
type Handler struct {
	hub      *Hub
	tokens   TokenValidator
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHandler builds the upgrade handler. tokens may be nil. An origin list
// containing "*" accepts any origin.
func NewHandler(hub *Hub, tokens TokenValidator, allowedOrigins []string, logger *slog.Logger) *Handler {
	return &Handler{
		hub:    hub,
		tokens: tokens,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.hub.stopped() {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}

	username := h.identify(r)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error response.
		h.logger.Warn("websocket upgrade failed",
			slog.String("remote_addr", r.RemoteAddr),
			slog.Any("error", err),
		)
		return
	}

	c := newClient(h.hub, conn, username)

	if hello, err := encodeEnvelope(EventConnected, ConnectedPayload{ConnectionID: c.id, Username: username}, time.Now()); err == nil {
		c.send <- hello
	}

	if !h.hub.join(c) {
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

func (h *Handler) identify(r *http.Request) string {
	if h.tokens == nil {
		return ""
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	if token == "" {
		if cookie, err := r.Cookie("token"); err == nil {
			token = cookie.Value
		}
	}
	if token == "" {
		return ""
	}

	username, err := h.tokens.Validate(token)
	if err != nil {
		h.logger.Debug("ignoring invalid push token", slog.Any("error", err))
		return ""
	}
	return username
}

func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		return slices.Contains(allowed, "*") || slices.Contains(allowed, origin)
	}
}
