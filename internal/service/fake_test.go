package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/heapoverflow/internal/apperror"
	"github.com/sakif/heapoverflow/internal/model"
	"github.com/sakif/heapoverflow/internal/repository"
)

// =========================================================================
// FAKE STORE
// =========================================================================
//
// fakeStore is an in-memory repository.Store. It keeps the same contracts
// as the real stores (add-to-set lists, NotFound for missing owners) and
// counts the calls the fan-out properties are stated in terms of.
//
// The notification services run sends concurrently, so every method takes
// the mutex.

var _ repository.Store = (*fakeStore)(nil)

type fakeStore struct {
	mu sync.Mutex

	users         map[string]*model.User // by username
	questions     map[string]*model.Question
	answers       map[string]*model.Answer
	comments      map[string]*model.Comment
	notifications map[string]*model.Notification
	chats         map[string]*model.Chat
	messages      map[string]*model.Message

	insertBatches  int   // InsertNotifications calls
	insertErr      error // returned by InsertNotifications when set
	linkErr        error // returned by AddNotification when set
	addAnswerLnErr error // returned by AddAnswerToQuestion when set
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:         map[string]*model.User{},
		questions:     map[string]*model.Question{},
		answers:       map[string]*model.Answer{},
		comments:      map[string]*model.Comment{},
		notifications: map[string]*model.Notification{},
		chats:         map[string]*model.Chat{},
		messages:      map[string]*model.Message{},
	}
}

func (f *fakeStore) Close() error { return nil }

// --- users ---

func (f *fakeStore) CreateUser(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[u.Username]; ok {
		return apperror.Conflict("User already exists.")
	}
	u.ID = xid.New().String()
	u.CreatedAt = time.Now().UTC()
	u.Normalize()
	stored := cloneUser(u)
	f.users[u.Username] = stored
	return nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			return cloneUser(u), nil
		}
	}
	return nil, apperror.NotFound("user not found")
}

func (f *fakeStore) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[username]
	if !ok {
		return nil, apperror.NotFound("user not found")
	}
	return cloneUser(u), nil
}

func (f *fakeStore) GetUserByGitHubID(_ context.Context, githubID int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.GitHubID == githubID && githubID != 0 {
			return cloneUser(u), nil
		}
	}
	return nil, apperror.NotFound("user not found")
}

func (f *fakeStore) ListUsers(_ context.Context) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.User{}
	for _, u := range f.users {
		out = append(out, *cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (f *fakeStore) UpdateUserProfile(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.users[u.Username]
	if !ok {
		return apperror.NotFound("user not found")
	}
	stored.FirstName = u.FirstName
	stored.LastName = u.LastName
	stored.Picture = u.Picture
	stored.Biography = u.Biography
	stored.GitHubID = u.GitHubID
	stored.PrivacySettings = u.PrivacySettings
	stored.Settings = u.Settings
	return nil
}

func (f *fakeStore) AddFriend(_ context.Context, username, friend string) error {
	return f.editUser(username, func(u *model.User) { u.Friends = addToSet(u.Friends, friend) })
}

func (f *fakeStore) RemoveFriend(_ context.Context, username, friend string) error {
	return f.editUser(username, func(u *model.User) { u.Friends = pull(u.Friends, friend) })
}

func (f *fakeStore) AddRequest(_ context.Context, username, requester string) error {
	return f.editUser(username, func(u *model.User) { u.Requests = addToSet(u.Requests, requester) })
}

func (f *fakeStore) RemoveRequest(_ context.Context, username, requester string) error {
	return f.editUser(username, func(u *model.User) { u.Requests = pull(u.Requests, requester) })
}

func (f *fakeStore) AddNotification(_ context.Context, username, nid string) error {
	f.mu.Lock()
	err := f.linkErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.editUser(username, func(u *model.User) { u.Notifications = addToSet(u.Notifications, nid) })
}

func (f *fakeStore) AddChat(_ context.Context, username, chatID string) error {
	return f.editUser(username, func(u *model.User) { u.Chats = addToSet(u.Chats, chatID) })
}

func (f *fakeStore) editUser(username string, edit func(*model.User)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[username]
	if !ok {
		return apperror.NotFound("user not found")
	}
	edit(u)
	return nil
}

// --- questions ---

func (f *fakeStore) CreateQuestion(_ context.Context, q *model.Question) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	q.ID = xid.New().String()
	if q.AskDateTime.IsZero() {
		q.AskDateTime = time.Now().UTC()
	}
	q.Normalize()
	stored := *q
	stored.Tags = slices.Clone(q.Tags)
	f.questions[q.ID] = &stored
	return nil
}

func (f *fakeStore) GetQuestionByID(_ context.Context, id string) (*model.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.questions[id]
	if !ok {
		return nil, apperror.NotFound("question not found")
	}
	return cloneQuestion(q), nil
}

func (f *fakeStore) ListQuestions(_ context.Context, askedBy string) ([]model.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Question{}
	for _, q := range f.questions {
		if askedBy == "" || q.AskedBy == askedBy {
			out = append(out, *cloneQuestion(q))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AskDateTime.After(out[j].AskDateTime) })
	return out, nil
}

func (f *fakeStore) FindQuestionByAnswer(_ context.Context, answerID string) (*model.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, q := range f.questions {
		if slices.Contains(q.Answers, answerID) {
			return cloneQuestion(q), nil
		}
	}
	return nil, apperror.NotFound("question not found")
}

func (f *fakeStore) AddAnswerToQuestion(_ context.Context, qid, answerID string) error {
	f.mu.Lock()
	err := f.addAnswerLnErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.editQuestion(qid, func(q *model.Question) { q.Answers = addToSet(q.Answers, answerID) })
}

func (f *fakeStore) AddCommentToQuestion(_ context.Context, qid, commentID string) error {
	return f.editQuestion(qid, func(q *model.Question) { q.Comments = addToSet(q.Comments, commentID) })
}

func (f *fakeStore) AddView(_ context.Context, qid, username string) error {
	return f.editQuestion(qid, func(q *model.Question) { q.Views = addToSet(q.Views, username) })
}

func (f *fakeStore) Vote(_ context.Context, qid, username string, dir model.VoteDirection) (*model.Question, error) {
	var out *model.Question
	err := f.editQuestion(qid, func(q *model.Question) {
		same, other := &q.UpVotes, &q.DownVotes
		if dir == model.VoteDown {
			same, other = other, same
		}
		if slices.Contains(*same, username) {
			*same = pull(*same, username)
		} else {
			*same = addToSet(*same, username)
			*other = pull(*other, username)
		}
		out = cloneQuestion(q)
	})
	return out, err
}

func (f *fakeStore) editQuestion(id string, edit func(*model.Question)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.questions[id]
	if !ok {
		return apperror.NotFound("question not found")
	}
	edit(q)
	return nil
}

// --- answers and comments ---

func (f *fakeStore) CreateAnswer(_ context.Context, a *model.Answer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a.ID = xid.New().String()
	a.Comments = []string{}
	stored := *a
	f.answers[a.ID] = &stored
	return nil
}

func (f *fakeStore) GetAnswerByID(_ context.Context, id string) (*model.Answer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.answers[id]
	if !ok {
		return nil, apperror.NotFound("answer not found")
	}
	c := *a
	c.Comments = slices.Clone(a.Comments)
	return &c, nil
}

func (f *fakeStore) GetAnswersByIDs(ctx context.Context, ids []string) ([]model.Answer, error) {
	out := []model.Answer{}
	for _, id := range ids {
		a, err := f.GetAnswerByID(ctx, id)
		if err != nil {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func (f *fakeStore) ListAnswersByAuthor(_ context.Context, ansBy string) ([]model.Answer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Answer{}
	for _, a := range f.answers {
		if a.AnsBy == ansBy {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeStore) AddCommentToAnswer(_ context.Context, answerID, commentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.answers[answerID]
	if !ok {
		return apperror.NotFound("answer not found")
	}
	a.Comments = addToSet(a.Comments, commentID)
	return nil
}

func (f *fakeStore) CreateComment(_ context.Context, c *model.Comment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.ID = xid.New().String()
	stored := *c
	f.comments[c.ID] = &stored
	return nil
}

func (f *fakeStore) GetCommentsByIDs(_ context.Context, ids []string) ([]model.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Comment{}
	for _, id := range ids {
		if c, ok := f.comments[id]; ok {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeStore) ListCommentsByAuthor(_ context.Context, commentBy string) ([]model.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Comment{}
	for _, c := range f.comments {
		if c.CommentBy == commentBy {
			out = append(out, *c)
		}
	}
	return out, nil
}

// --- notifications ---

func (f *fakeStore) InsertNotifications(_ context.Context, batch []model.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertBatches++
	if f.insertErr != nil {
		return f.insertErr
	}
	for i := range batch {
		batch[i].ID = xid.New().String()
		n := batch[i]
		f.notifications[n.ID] = &n
	}
	return nil
}

func (f *fakeStore) ListNotificationsByRecipient(_ context.Context, recipient string) ([]model.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Notification{}
	for _, n := range f.notifications {
		if n.Recipient == recipient {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) MarkNotificationRead(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.notifications[id]
	if !ok {
		return apperror.NotFound("notification not found")
	}
	n.IsRead = true
	return nil
}

// --- chats and messages ---

func (f *fakeStore) CreateChat(_ context.Context, c *model.Chat) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.ID = xid.New().String()
	c.Messages = []string{}
	stored := *c
	stored.Participants = slices.Clone(c.Participants)
	f.chats[c.ID] = &stored
	return nil
}

func (f *fakeStore) GetChatByID(_ context.Context, id string) (*model.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.chats[id]
	if !ok {
		return nil, apperror.NotFound("chat not found")
	}
	out := *c
	out.Messages = slices.Clone(c.Messages)
	return &out, nil
}

func (f *fakeStore) FindChatByParticipants(_ context.Context, participants []string) (*model.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	want := slices.Sorted(slices.Values(participants))
	for _, c := range f.chats {
		if slices.Equal(slices.Sorted(slices.Values(c.Participants)), want) {
			out := *c
			return &out, nil
		}
	}
	return nil, apperror.NotFound("chat not found")
}

func (f *fakeStore) ListChatsByParticipant(_ context.Context, username string) ([]model.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Chat{}
	for _, c := range f.chats {
		if slices.Contains(c.Participants, username) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeStore) AddMessageToChat(_ context.Context, chatID, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.chats[chatID]
	if !ok {
		return apperror.NotFound("chat not found")
	}
	c.Messages = addToSet(c.Messages, messageID)
	return nil
}

func (f *fakeStore) CreateMessage(_ context.Context, m *model.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m.ID = xid.New().String()
	stored := *m
	f.messages[m.ID] = &stored
	return nil
}

func (f *fakeStore) ListMessagesByChat(_ context.Context, chatID string) ([]model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Message{}
	for _, m := range f.messages {
		if m.ChatID == chatID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// --- helpers ---

func addToSet(list []string, v string) []string {
	if slices.Contains(list, v) {
		return list
	}
	return append(list, v)
}

func pull(list []string, v string) []string {
	return slices.DeleteFunc(slices.Clone(list), func(s string) bool { return s == v })
}

func cloneUser(u *model.User) *model.User {
	c := *u
	c.Friends = slices.Clone(u.Friends)
	c.Requests = slices.Clone(u.Requests)
	c.Notifications = slices.Clone(u.Notifications)
	c.Chats = slices.Clone(u.Chats)
	c.Normalize()
	return &c
}

func cloneQuestion(q *model.Question) *model.Question {
	c := *q
	c.Tags = slices.Clone(q.Tags)
	c.Answers = slices.Clone(q.Answers)
	c.Comments = slices.Clone(q.Comments)
	c.Views = slices.Clone(q.Views)
	c.UpVotes = slices.Clone(q.UpVotes)
	c.DownVotes = slices.Clone(q.DownVotes)
	c.Normalize()
	return &c
}

// =========================================================================
// RECORDING BROADCASTER
// =========================================================================

type emitted struct {
	event   string
	payload any
}

// recordingBroadcaster captures every Emit for assertions.
type recordingBroadcaster struct {
	mu     sync.Mutex
	events []emitted
}

func (r *recordingBroadcaster) Emit(_ context.Context, event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, emitted{event: event, payload: payload})
}

// named returns the payloads of every emission of event, in order.
func (r *recordingBroadcaster) named(event string) []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []any
	for _, e := range r.events {
		if e.event == event {
			out = append(out, e.payload)
		}
	}
	return out
}

func (r *recordingBroadcaster) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// notificationsFor returns the notificationUpdate payloads addressed to user.
func (r *recordingBroadcaster) notificationsFor(user string) []model.NotificationUpdatePayload {
	var out []model.NotificationUpdatePayload
	for _, p := range r.named(model.EventNotificationUpdate) {
		n := p.(model.NotificationUpdatePayload)
		if n.Recipient == user {
			out = append(out, n)
		}
	}
	return out
}

// =========================================================================
// WIRING
// =========================================================================

type testEnv struct {
	store   *fakeStore
	events  *recordingBroadcaster
	notes   *NotificationService
	friends *FriendshipService
	answers *AnswerService
	comment *CommentService
	chats   *ChatService
	msgs    *MessageService
	qs      *QuestionService
	users   *UserService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := newFakeStore()
	events := &recordingBroadcaster{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	notes := NewNotificationService(store, store, events, logger, nil)
	return &testEnv{
		store:   store,
		events:  events,
		notes:   notes,
		friends: NewFriendshipService(store, notes, events, logger),
		answers: NewAnswerService(store, notes, events, logger),
		comment: NewCommentService(store, notes, events, logger),
		chats:   NewChatService(store, store, events, logger),
		msgs:    NewMessageService(store, store, events, logger),
		qs:      NewQuestionService(store, events, logger),
		users:   NewUserService(store, logger),
	}
}

// seedUsers creates users by username.
func (e *testEnv) seedUsers(t *testing.T, names ...string) {
	t.Helper()
	for _, n := range names {
		if err := e.store.CreateUser(context.Background(), &model.User{Username: n}); err != nil {
			t.Fatalf("seeding user %s: %v", n, err)
		}
	}
}

// befriend makes a and b mutual friends directly in the store.
func (e *testEnv) befriend(t *testing.T, a, b string) {
	t.Helper()
	ctx := context.Background()
	if err := e.store.AddFriend(ctx, a, b); err != nil {
		t.Fatalf("befriend: %v", err)
	}
	if err := e.store.AddFriend(ctx, b, a); err != nil {
		t.Fatalf("befriend: %v", err)
	}
}

func (e *testEnv) seedQuestion(t *testing.T, askedBy, title string) *model.Question {
	t.Helper()
	q := &model.Question{Title: title, Text: "body", AskedBy: askedBy}
	if err := e.store.CreateQuestion(context.Background(), q); err != nil {
		t.Fatalf("seeding question: %v", err)
	}
	return q
}

func (e *testEnv) user(t *testing.T, name string) *model.User {
	t.Helper()
	u, err := e.store.GetUserByUsername(context.Background(), name)
	if err != nil {
		t.Fatalf("getting %s: %v", name, err)
	}
	return u
}

var errStorage = errors.New("disk on fire")
