package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sakif/heapoverflow/internal/model"
)

func (s *Store) CreateComment(ctx context.Context, c *model.Comment) error {
	c.ID = xid.New().String()
	if c.CommentDateTime.IsZero() {
		c.CommentDateTime = time.Now().UTC()
	}
	if _, err := s.comments.InsertOne(ctx, c); err != nil {
		return fmt.Errorf("mongo: inserting comment: %w", err)
	}
	return nil
}

func (s *Store) GetCommentsByIDs(ctx context.Context, ids []string) ([]model.Comment, error) {
	if len(ids) == 0 {
		return []model.Comment{}, nil
	}

	var found []model.Comment
	if err := findAll(ctx, s.comments, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}}, &found); err != nil {
		return nil, err
	}
	return orderByIDs(ids, found, func(c model.Comment) string { return c.ID }), nil
}

func (s *Store) ListCommentsByAuthor(ctx context.Context, commentBy string) ([]model.Comment, error) {
	comments := []model.Comment{}
	opts := options.Find().SetSort(bson.D{{Key: "commentDateTime", Value: -1}, {Key: "_id", Value: -1}})
	if err := findAll(ctx, s.comments, bson.D{{Key: "commentBy", Value: commentBy}}, &comments, opts); err != nil {
		return nil, err
	}
	return comments, nil
}
