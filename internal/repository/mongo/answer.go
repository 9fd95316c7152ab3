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

func (s *Store) CreateAnswer(ctx context.Context, a *model.Answer) error {
	a.ID = xid.New().String()
	if a.AnsDateTime.IsZero() {
		a.AnsDateTime = time.Now().UTC()
	}
	if a.Comments == nil {
		a.Comments = []string{}
	}

	if _, err := s.answers.InsertOne(ctx, a); err != nil {
		return fmt.Errorf("mongo: inserting answer: %w", err)
	}
	return nil
}

func (s *Store) GetAnswerByID(ctx context.Context, id string) (*model.Answer, error) {
	var a model.Answer
	if err := findOne(ctx, s.answers, bson.D{{Key: "_id", Value: id}}, &a, "answer"); err != nil {
		return nil, err
	}
	if a.Comments == nil {
		a.Comments = []string{}
	}
	return &a, nil
}

// GetAnswersByIDs fetches with $in and restores the caller's order.
func (s *Store) GetAnswersByIDs(ctx context.Context, ids []string) ([]model.Answer, error) {
	if len(ids) == 0 {
		return []model.Answer{}, nil
	}

	var found []model.Answer
	if err := findAll(ctx, s.answers, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}}, &found); err != nil {
		return nil, err
	}
	out := orderByIDs(ids, found, func(a model.Answer) string { return a.ID })
	for i := range out {
		if out[i].Comments == nil {
			out[i].Comments = []string{}
		}
	}
	return out, nil
}

func (s *Store) ListAnswersByAuthor(ctx context.Context, ansBy string) ([]model.Answer, error) {
	answers := []model.Answer{}
	opts := options.Find().SetSort(bson.D{{Key: "ansDateTime", Value: -1}, {Key: "_id", Value: -1}})
	if err := findAll(ctx, s.answers, bson.D{{Key: "ansBy", Value: ansBy}}, &answers, opts); err != nil {
		return nil, err
	}
	return answers, nil
}

func (s *Store) AddCommentToAnswer(ctx context.Context, answerID, commentID string) error {
	return updateList(ctx, s.answers,
		bson.D{{Key: "_id", Value: answerID}},
		bson.D{{Key: "$addToSet", Value: bson.D{{Key: "comments", Value: commentID}}}},
		"answer")
}
