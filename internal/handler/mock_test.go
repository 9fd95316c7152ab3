package handler_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/sakif/heapoverflow/internal/auth"
	"github.com/sakif/heapoverflow/internal/model"
	"github.com/sakif/heapoverflow/internal/service"
)

// Mocks record what the handler passed in and return canned results, so
// these tests cover decoding, status mapping and body shape only. The
// domain rules are tested in the service package.

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func post(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

type MockAnswers struct {
	CapturedQID string
	CapturedAns *service.NewAnswer
	ReturnAns   *model.Answer
	ReturnErr   error
}

func (m *MockAnswers) AddAnswer(_ context.Context, qid string, ans *service.NewAnswer) (*model.Answer, error) {
	m.CapturedQID, m.CapturedAns = qid, ans
	return m.ReturnAns, m.ReturnErr
}

func (m *MockAnswers) GetAnswersByAuthor(_ context.Context, _ string) ([]model.Answer, error) {
	return []model.Answer{}, m.ReturnErr
}

type MockComments struct {
	CapturedID   string
	CapturedKind string
	ReturnErr    error
}

func (m *MockComments) AddComment(_ context.Context, id, kind string, c *service.NewComment) (*model.Comment, error) {
	m.CapturedID, m.CapturedKind = id, kind
	if m.ReturnErr != nil {
		return nil, m.ReturnErr
	}
	return &model.Comment{ID: "c1", Text: c.Text, CommentBy: c.CommentBy}, nil
}

func (m *MockComments) GetCommentsByAuthor(_ context.Context, _ string) ([]model.Comment, error) {
	return []model.Comment{}, m.ReturnErr
}

type MockQuestions struct {
	CapturedViewer string
	CapturedDir    model.VoteDirection
	ReturnErr      error
}

func (m *MockQuestions) AddQuestion(_ context.Context, in *service.NewQuestion) (*model.Question, error) {
	return &model.Question{ID: "q1", Title: in.Title}, m.ReturnErr
}

func (m *MockQuestions) GetQuestion(_ context.Context, qid, viewer string) (*model.PopulatedQuestion, error) {
	m.CapturedViewer = viewer
	if m.ReturnErr != nil {
		return nil, m.ReturnErr
	}
	return &model.PopulatedQuestion{ID: qid, Answers: []model.PopulatedAnswer{}, Comments: []model.Comment{}}, nil
}

func (m *MockQuestions) GetQuestions(_ context.Context, _ string) ([]model.Question, error) {
	return []model.Question{}, m.ReturnErr
}

func (m *MockQuestions) Vote(_ context.Context, qid, username string, dir model.VoteDirection) (*model.Question, error) {
	m.CapturedDir = dir
	if m.ReturnErr != nil {
		return nil, m.ReturnErr
	}
	return &model.Question{ID: qid, UpVotes: []string{username}, DownVotes: []string{}}, nil
}

type MockFriendships struct {
	Captured  [2]string
	Friends   []string
	ReturnErr error
}

func (m *MockFriendships) SendRequest(_ context.Context, a, b string) error {
	m.Captured = [2]string{a, b}
	return m.ReturnErr
}

func (m *MockFriendships) AcceptRequest(_ context.Context, a, b string) error {
	m.Captured = [2]string{a, b}
	return m.ReturnErr
}

func (m *MockFriendships) DeleteFriend(_ context.Context, a, b string) error {
	m.Captured = [2]string{a, b}
	return m.ReturnErr
}

func (m *MockFriendships) GetFriends(_ context.Context, _ string) ([]string, error) {
	return m.Friends, m.ReturnErr
}

func (m *MockFriendships) GetRequests(_ context.Context, _ string) ([]string, error) {
	return m.Friends, m.ReturnErr
}

type MockChats struct {
	CapturedParticipants []string
	ReturnErr            error
}

func (m *MockChats) CreateChat(_ context.Context, participants []string) (*model.Chat, error) {
	m.CapturedParticipants = participants
	if m.ReturnErr != nil {
		return nil, m.ReturnErr
	}
	return &model.Chat{ID: "chat1", Participants: participants, Messages: []string{}}, nil
}

func (m *MockChats) GetUserChats(_ context.Context, _ string) ([]model.Chat, error) {
	return []model.Chat{{ID: "chat1"}}, m.ReturnErr
}

func (m *MockChats) GetChat(_ context.Context, id string) (*model.Chat, error) {
	if m.ReturnErr != nil {
		return nil, m.ReturnErr
	}
	return &model.Chat{ID: id}, nil
}

type MockMessages struct {
	Captured  *service.NewMessage
	ReturnErr error
}

func (m *MockMessages) SendMessage(_ context.Context, in *service.NewMessage) (*model.Message, error) {
	m.Captured = in
	if m.ReturnErr != nil {
		return nil, m.ReturnErr
	}
	return &model.Message{ID: "m1", Sender: in.Sender, ChatID: in.ChatID, Message: in.Message}, nil
}

func (m *MockMessages) GetMessages(_ context.Context, _ string) ([]model.Message, error) {
	return []model.Message{{ID: "m1"}, {ID: "m2"}}, m.ReturnErr
}

type MockNotifications struct {
	CapturedNID string
	Unread      int
	ReturnErr   error
}

func (m *MockNotifications) GetNotifications(_ context.Context, _ string) ([]model.Notification, error) {
	return []model.Notification{}, m.ReturnErr
}

func (m *MockNotifications) MarkAsRead(_ context.Context, nid string) error {
	m.CapturedNID = nid
	return m.ReturnErr
}

func (m *MockNotifications) UnreadCount(_ context.Context, _ string) (int, error) {
	return m.Unread, m.ReturnErr
}

type MockUsers struct {
	CapturedUsername string
	CapturedUpdate   *service.UserUpdate
	ReturnErr        error
}

func (m *MockUsers) AddUser(_ context.Context, in *service.NewUser) (*model.User, error) {
	if m.ReturnErr != nil {
		return nil, m.ReturnErr
	}
	return &model.User{ID: "u1", Username: in.Username}, nil
}

func (m *MockUsers) GetUser(_ context.Context, username string) (*model.User, error) {
	m.CapturedUsername = username
	if m.ReturnErr != nil {
		return nil, m.ReturnErr
	}
	return &model.User{ID: "u1", Username: username}, nil
}

func (m *MockUsers) GetAllUsers(_ context.Context) ([]model.User, error) {
	return []model.User{}, m.ReturnErr
}

func (m *MockUsers) UpdateUser(_ context.Context, username string, upd *service.UserUpdate) (*model.User, error) {
	m.CapturedUsername, m.CapturedUpdate = username, upd
	if m.ReturnErr != nil {
		return nil, m.ReturnErr
	}
	return &model.User{ID: "u1", Username: username}, nil
}

type MockGitHub struct {
	Profile   *auth.GitHubUser
	ReturnErr error
}

func (m *MockGitHub) AuthURL(state string) string {
	return "https://github.example/login?state=" + state
}

func (m *MockGitHub) Exchange(_ context.Context, code string) (*auth.GitHubUser, error) {
	return m.Profile, m.ReturnErr
}

type MockSessions struct {
	Result    *service.AuthResult
	ReturnErr error
}

func (m *MockSessions) LoginOrRegisterGitHub(_ context.Context, _ *auth.GitHubUser) (*service.AuthResult, error) {
	return m.Result, m.ReturnErr
}

func (m *MockSessions) CurrentUser(_ context.Context, username string) (*model.User, error) {
	if m.ReturnErr != nil {
		return nil, m.ReturnErr
	}
	return &model.User{Username: username}, nil
}

func (m *MockSessions) TokenTTL() time.Duration { return time.Hour }
