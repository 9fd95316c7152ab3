package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sakif/heapoverflow/internal/apperror"
	"github.com/sakif/heapoverflow/internal/model"
)

func (s *Store) CreateChat(ctx context.Context, c *model.Chat) error {
	c.ID = xid.New().String()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	c.Messages = []string{}

	if _, err := s.chats.InsertOne(ctx, c); err != nil {
		return fmt.Errorf("mongo: inserting chat: %w", err)
	}
	return nil
}

func (s *Store) GetChatByID(ctx context.Context, id string) (*model.Chat, error) {
	var c model.Chat
	if err := findOne(ctx, s.chats, bson.D{{Key: "_id", Value: id}}, &c, "chat"); err != nil {
		return nil, err
	}
	normalizeChat(&c)
	return &c, nil
}

// FindChatByParticipants matches the exact participant set: $all requires
// every username, $size rules out chats with extra members.
func (s *Store) FindChatByParticipants(ctx context.Context, participants []string) (*model.Chat, error) {
	set := distinct(participants)
	filter := bson.D{{Key: "participants", Value: bson.D{
		{Key: "$all", Value: set},
		{Key: "$size", Value: len(set)},
	}}}

	var c model.Chat
	err := s.chats.FindOne(ctx, filter, options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: 1}})).Decode(&c)
	if errors.Is(err, mongodriver.ErrNoDocuments) {
		return nil, apperror.NotFound("chat not found")
	}
	if err != nil {
		return nil, fmt.Errorf("mongo: finding chat by participants: %w", err)
	}
	normalizeChat(&c)
	return &c, nil
}

func (s *Store) ListChatsByParticipant(ctx context.Context, username string) ([]model.Chat, error) {
	chats := []model.Chat{}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	if err := findAll(ctx, s.chats, bson.D{{Key: "participants", Value: username}}, &chats, opts); err != nil {
		return nil, err
	}
	for i := range chats {
		normalizeChat(&chats[i])
	}
	return chats, nil
}

func (s *Store) AddMessageToChat(ctx context.Context, chatID, messageID string) error {
	return updateList(ctx, s.chats,
		bson.D{{Key: "_id", Value: chatID}},
		bson.D{{Key: "$addToSet", Value: bson.D{{Key: "messages", Value: messageID}}}},
		"chat")
}

func (s *Store) CreateMessage(ctx context.Context, m *model.Message) error {
	m.ID = xid.New().String()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	if _, err := s.messages.InsertOne(ctx, m); err != nil {
		return fmt.Errorf("mongo: inserting message: %w", err)
	}
	return nil
}

// ListMessagesByChat returns oldest first.
func (s *Store) ListMessagesByChat(ctx context.Context, chatID string) ([]model.Message, error) {
	out := []model.Message{}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	if err := findAll(ctx, s.messages, bson.D{{Key: "chatId", Value: chatID}}, &out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func normalizeChat(c *model.Chat) {
	if c.Participants == nil {
		c.Participants = []string{}
	}
	if c.Messages == nil {
		c.Messages = []string{}
	}
}

func distinct(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
