package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/heapoverflow/internal/config"
	"github.com/sakif/heapoverflow/internal/model"
)

func testConfig() *config.Config {
	return &config.Config{
		Env:      "test",
		HTTP:     config.HTTPConfig{Port: "0", AllowedOrigins: []string{"http://localhost:3000"}, ShutdownTimeout: time.Second},
		Storage:  config.StorageConfig{Driver: config.StorageSQLite, SQLitePath: ":memory:"},
		Relay:    config.RelayConfig{Driver: config.RelayNone},
		Auth:     config.AuthConfig{ClientURL: "http://localhost:3000"},
		Realtime: config.RealtimeConfig{SendBuffer: 16, PingInterval: time.Minute},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	s, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { s.store.Close() })
	return s
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestServer_FriendsThenChat(t *testing.T) {
	h := newTestServer(t, testConfig()).Handler()

	for _, name := range []string{"ann", "bob"} {
		rr := do(t, h, http.MethodPost, "/user/addUser", `{"username":"`+name+`"}`)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	}

	// Strangers cannot chat.
	rr := do(t, h, http.MethodPost, "/chat/createChat", `{"participants":["ann","bob"]}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, h, http.MethodPost, "/friendship/sendFriendRequest", `{"requesterId":"ann","recipientId":"bob"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = do(t, h, http.MethodGet, "/notification/getUnreadCount?username=bob", "")
	assert.JSONEq(t, `{"count":1}`, rr.Body.String())

	rr = do(t, h, http.MethodPost, "/friendship/acceptFriendRequest", `{"requester":"ann","recipient":"bob"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = do(t, h, http.MethodGet, "/friendship/getFriends?userId=bob", "")
	assert.JSONEq(t, `{"userFriends":["ann"]}`, rr.Body.String())

	rr = do(t, h, http.MethodPost, "/chat/createChat", `{"participants":["ann","bob"]}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var chat model.Chat
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&chat))
	require.NotEmpty(t, chat.ID)

	for _, text := range []string{"hi", "hello"} {
		rr = do(t, h, http.MethodPost, "/message/sendMessage",
			`{"sender":"ann","chatId":"`+chat.ID+`","message":"`+text+`"}`)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	}

	rr = do(t, h, http.MethodGet, "/message/getMessages?chatId="+chat.ID, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var got struct {
		Messages []model.Message `json:"messages"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "hi", got.Messages[0].Message)
	assert.Equal(t, "hello", got.Messages[1].Message)
}

func TestServer_UpdateUserRoute(t *testing.T) {
	h := newTestServer(t, testConfig()).Handler()

	do(t, h, http.MethodPost, "/user/addUser", `{"username":"ann"}`)

	rr := do(t, h, http.MethodPut, "/user/updateUser/ann", `{"biography":"vim person"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), `"biography":"vim person"`)

	rr = do(t, h, http.MethodPut, "/user/updateUser/ghost", `{"biography":"x"}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestServer_AuthRoutesNeedSecret(t *testing.T) {
	h := newTestServer(t, testConfig()).Handler()
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/auth/me", "").Code)

	cfg := testConfig()
	cfg.Auth.JWTSecret = "test-secret-at-least-16-chars!!"
	cfg.Auth.TokenTTL = time.Hour
	h = newTestServer(t, cfg).Handler()

	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, "/auth/me", "").Code)
	assert.Equal(t, http.StatusTemporaryRedirect, do(t, h, http.MethodGet, "/auth/github", "").Code)
}

func TestServer_CORSAndMetrics(t *testing.T) {
	h := newTestServer(t, testConfig()).Handler()

	req := httptest.NewRequest(http.MethodOptions, "/user/getAllUsers", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "http://localhost:3000", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))

	do(t, h, http.MethodGet, "/user/getAllUsers", "")
	rr = do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "/user/getAllUsers")
}
