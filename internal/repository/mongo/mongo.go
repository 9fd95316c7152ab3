// Package mongo implements repository.Store on MongoDB.
//
// Documents keep their reference lists inline (User.friends, Question.answers,
// ...). Every list change is a single-document update with $addToSet or $pull,
// so concurrent requests never overwrite each other's list edits. IDs are xid
// strings stored directly in _id, the same IDs the SQLite store uses.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/sakif/heapoverflow/internal/apperror"
	"github.com/sakif/heapoverflow/internal/repository"
)

const (
	usersCollection         = "users"
	questionsCollection     = "questions"
	answersCollection       = "answers"
	commentsCollection      = "comments"
	notificationsCollection = "notifications"
	chatsCollection         = "chats"
	messagesCollection      = "messages"

	defaultDBName = "heapoverflow"
	closeTimeout  = 10 * time.Second
)

var _ repository.Store = (*Store)(nil)

// Store is a thin adapter over the driver's client and collections.
type Store struct {
	client        *mongodriver.Client
	db            *mongodriver.Database
	users         *mongodriver.Collection
	questions     *mongodriver.Collection
	answers       *mongodriver.Collection
	comments      *mongodriver.Collection
	notifications *mongodriver.Collection
	chats         *mongodriver.Collection
	messages      *mongodriver.Collection
}

// New connects, pings the primary and ensures indexes. The database name is
// taken from the URI path, e.g. mongodb://host:27017/heapoverflow.
func New(ctx context.Context, uri string) (*Store, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo: empty connection URI")
	}

	cli, err := mongodriver.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := cli.Ping(ctx, readpref.Primary()); err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := cli.Database(databaseFromURI(uri))
	s := &Store{
		client:        cli,
		db:            db,
		users:         db.Collection(usersCollection),
		questions:     db.Collection(questionsCollection),
		answers:       db.Collection(answersCollection),
		comments:      db.Collection(commentsCollection),
		notifications: db.Collection(notificationsCollection),
		chats:         db.Collection(chatsCollection),
		messages:      db.Collection(messagesCollection),
	}

	if err := s.ensureIndexes(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// ensureIndexes creates the indexes the queries below rely on:
//   - users.username unique (primary cross-reference key)
//   - users.githubId unique, sparse (only linked accounts)
//   - questions.answers for the answer → question lookup
//   - notifications by recipient, newest first
//   - chats by participant
//   - messages by chat, oldest first
func (s *Store) ensureIndexes(ctx context.Context) error {
	specs := []struct {
		coll   *mongodriver.Collection
		models []mongodriver.IndexModel
	}{
		{s.users, []mongodriver.IndexModel{
			{
				Keys:    bson.D{{Key: "username", Value: 1}},
				Options: options.Index().SetName("username_unique").SetUnique(true),
			},
			{
				Keys:    bson.D{{Key: "githubId", Value: 1}},
				Options: options.Index().SetName("github_id_unique").SetUnique(true).SetSparse(true),
			},
		}},
		{s.questions, []mongodriver.IndexModel{
			{Keys: bson.D{{Key: "answers", Value: 1}}, Options: options.Index().SetName("answers")},
			{Keys: bson.D{{Key: "askedBy", Value: 1}, {Key: "askDateTime", Value: -1}}, Options: options.Index().SetName("asked_by_date_desc")},
		}},
		{s.answers, []mongodriver.IndexModel{
			{Keys: bson.D{{Key: "ansBy", Value: 1}}, Options: options.Index().SetName("ans_by")},
		}},
		{s.comments, []mongodriver.IndexModel{
			{Keys: bson.D{{Key: "commentBy", Value: 1}}, Options: options.Index().SetName("comment_by")},
		}},
		{s.notifications, []mongodriver.IndexModel{
			{Keys: bson.D{{Key: "recipient", Value: 1}, {Key: "createdAt", Value: -1}}, Options: options.Index().SetName("recipient_created_desc")},
		}},
		{s.chats, []mongodriver.IndexModel{
			{Keys: bson.D{{Key: "participants", Value: 1}}, Options: options.Index().SetName("participants")},
		}},
		{s.messages, []mongodriver.IndexModel{
			{Keys: bson.D{{Key: "chatId", Value: 1}, {Key: "createdAt", Value: 1}}, Options: options.Index().SetName("chat_created_asc")},
		}},
	}

	for _, spec := range specs {
		if _, err := spec.coll.Indexes().CreateMany(ctx, spec.models); err != nil {
			return fmt.Errorf("mongo ensure indexes on %s: %w", spec.coll.Name(), err)
		}
	}
	return nil
}

// databaseFromURI extracts the database name from the URI path, falling
// back to defaultDBName.
func databaseFromURI(uri string) string {
	u, err := url.Parse(uri)
	if err == nil {
		if name := strings.Trim(u.Path, "/"); name != "" {
			return name
		}
	}
	return defaultDBName
}

// findOne decodes a single document, mapping ErrNoDocuments to NotFound.
func findOne(ctx context.Context, coll *mongodriver.Collection, filter any, out any, entity string) error {
	err := coll.FindOne(ctx, filter).Decode(out)
	if errors.Is(err, mongodriver.ErrNoDocuments) {
		return apperror.NotFound(entity + " not found")
	}
	if err != nil {
		return fmt.Errorf("mongo: finding %s: %w", entity, err)
	}
	return nil
}

// updateList applies a single-element list update to the document with id
// and reports NotFound when no document matched.
func updateList(ctx context.Context, coll *mongodriver.Collection, filter bson.D, update bson.D, entity string) error {
	res, err := coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("mongo: updating %s: %w", entity, err)
	}
	if res.MatchedCount == 0 {
		return apperror.NotFound(entity + " not found")
	}
	return nil
}

// findAll decodes every document matched by filter into out (a slice pointer).
func findAll(ctx context.Context, coll *mongodriver.Collection, filter any, out any, opts ...*options.FindOptions) error {
	cur, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return fmt.Errorf("mongo: querying %s: %w", coll.Name(), err)
	}
	if err := cur.All(ctx, out); err != nil {
		return fmt.Errorf("mongo: decoding %s: %w", coll.Name(), err)
	}
	return nil
}

// orderByIDs reorders docs to follow ids, dropping ids that were not found.
func orderByIDs[T any](ids []string, docs []T, idOf func(T) string) []T {
	index := make(map[string]T, len(docs))
	for _, d := range docs {
		index[idOf(d)] = d
	}
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if d, ok := index[id]; ok {
			out = append(out, d)
		}
	}
	return out
}
