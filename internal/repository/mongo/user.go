package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"
	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sakif/heapoverflow/internal/apperror"
	"github.com/sakif/heapoverflow/internal/model"
)

// CreateUser inserts a new user. Lists are stored as empty arrays, never
// null, so later $addToSet updates always target an array field.
func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	user.CreatedAt = time.Now().UTC()
	user.Normalize()

	if _, err := s.users.InsertOne(ctx, user); err != nil {
		if mongodriver.IsDuplicateKeyError(err) {
			return apperror.Conflict("User already exists.")
		}
		return fmt.Errorf("mongo: inserting user %s: %w", user.Username, err)
	}
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return s.getUser(ctx, bson.D{{Key: "_id", Value: id}})
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.getUser(ctx, bson.D{{Key: "username", Value: username}})
}

func (s *Store) GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	return s.getUser(ctx, bson.D{{Key: "githubId", Value: githubID}})
}

func (s *Store) getUser(ctx context.Context, filter bson.D) (*model.User, error) {
	var u model.User
	if err := findOne(ctx, s.users, filter, &u, "user"); err != nil {
		return nil, err
	}
	u.Normalize()
	return &u, nil
}

// ListUsers returns every user, oldest account first.
func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	users := []model.User{}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	if err := findAll(ctx, s.users, bson.D{}, &users, opts); err != nil {
		return nil, err
	}
	for i := range users {
		users[i].Normalize()
	}
	return users, nil
}

// UpdateUserProfile overwrites display fields and preferences with $set.
// Reference lists are left alone.
func (s *Store) UpdateUserProfile(ctx context.Context, user *model.User) error {
	set := bson.D{
		{Key: "firstName", Value: user.FirstName},
		{Key: "lastName", Value: user.LastName},
		{Key: "picture", Value: user.Picture},
		{Key: "biography", Value: user.Biography},
		{Key: "privacySettings", Value: user.PrivacySettings},
		{Key: "settings", Value: user.Settings},
	}
	if user.GitHubID != 0 {
		set = append(set, bson.E{Key: "githubId", Value: user.GitHubID})
	}
	return updateList(ctx, s.users,
		bson.D{{Key: "username", Value: user.Username}},
		bson.D{{Key: "$set", Value: set}},
		"user")
}

func (s *Store) AddFriend(ctx context.Context, username, friend string) error {
	return s.addToUserList(ctx, username, "friends", friend)
}

func (s *Store) RemoveFriend(ctx context.Context, username, friend string) error {
	return s.pullFromUserList(ctx, username, "friends", friend)
}

func (s *Store) AddRequest(ctx context.Context, username, requester string) error {
	return s.addToUserList(ctx, username, "requests", requester)
}

func (s *Store) RemoveRequest(ctx context.Context, username, requester string) error {
	return s.pullFromUserList(ctx, username, "requests", requester)
}

func (s *Store) AddNotification(ctx context.Context, username, notificationID string) error {
	return s.addToUserList(ctx, username, "notifications", notificationID)
}

func (s *Store) AddChat(ctx context.Context, username, chatID string) error {
	return s.addToUserList(ctx, username, "chats", chatID)
}

func (s *Store) addToUserList(ctx context.Context, username, field, value string) error {
	return updateList(ctx, s.users,
		bson.D{{Key: "username", Value: username}},
		bson.D{{Key: "$addToSet", Value: bson.D{{Key: field, Value: value}}}},
		"user")
}

func (s *Store) pullFromUserList(ctx context.Context, username, field, value string) error {
	return updateList(ctx, s.users,
		bson.D{{Key: "username", Value: username}},
		bson.D{{Key: "$pull", Value: bson.D{{Key: field, Value: value}}}},
		"user")
}
