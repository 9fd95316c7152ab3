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

func (s *Store) CreateQuestion(ctx context.Context, q *model.Question) error {
	q.ID = xid.New().String()
	if q.AskDateTime.IsZero() {
		q.AskDateTime = time.Now().UTC()
	}
	q.Normalize()

	if _, err := s.questions.InsertOne(ctx, q); err != nil {
		return fmt.Errorf("mongo: inserting question: %w", err)
	}
	return nil
}

func (s *Store) GetQuestionByID(ctx context.Context, id string) (*model.Question, error) {
	return s.getQuestion(ctx, bson.D{{Key: "_id", Value: id}})
}

// FindQuestionByAnswer matches the array element directly; the "answers"
// index serves the lookup.
func (s *Store) FindQuestionByAnswer(ctx context.Context, answerID string) (*model.Question, error) {
	return s.getQuestion(ctx, bson.D{{Key: "answers", Value: answerID}})
}

func (s *Store) getQuestion(ctx context.Context, filter bson.D) (*model.Question, error) {
	var q model.Question
	if err := findOne(ctx, s.questions, filter, &q, "question"); err != nil {
		return nil, err
	}
	q.Normalize()
	return &q, nil
}

func (s *Store) ListQuestions(ctx context.Context, askedBy string) ([]model.Question, error) {
	filter := bson.D{}
	if askedBy != "" {
		filter = bson.D{{Key: "askedBy", Value: askedBy}}
	}
	opts := options.Find().SetSort(bson.D{{Key: "askDateTime", Value: -1}, {Key: "_id", Value: -1}})

	questions := []model.Question{}
	if err := findAll(ctx, s.questions, filter, &questions, opts); err != nil {
		return nil, err
	}
	for i := range questions {
		questions[i].Normalize()
	}
	return questions, nil
}

func (s *Store) AddAnswerToQuestion(ctx context.Context, questionID, answerID string) error {
	return s.addToQuestionList(ctx, questionID, "answers", answerID)
}

func (s *Store) AddCommentToQuestion(ctx context.Context, questionID, commentID string) error {
	return s.addToQuestionList(ctx, questionID, "comments", commentID)
}

func (s *Store) AddView(ctx context.Context, questionID, username string) error {
	return s.addToQuestionList(ctx, questionID, "views", username)
}

func (s *Store) addToQuestionList(ctx context.Context, questionID, field, value string) error {
	return updateList(ctx, s.questions,
		bson.D{{Key: "_id", Value: questionID}},
		bson.D{{Key: "$addToSet", Value: bson.D{{Key: field, Value: value}}}},
		"question")
}

// Vote toggles a vote with two conditional updates instead of a
// read-modify-write:
//
//  1. pull username from the target list, but only if it is already there
//     (second vote in the same direction cancels the first);
//  2. otherwise add username to the target list and pull it from the
//     opposite one in the same update.
func (s *Store) Vote(ctx context.Context, questionID, username string, dir model.VoteDirection) (*model.Question, error) {
	field, opposite := "upVotes", "downVotes"
	if dir == model.VoteDown {
		field, opposite = opposite, field
	}

	res, err := s.questions.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: questionID}, {Key: field, Value: username}},
		bson.D{{Key: "$pull", Value: bson.D{{Key: field, Value: username}}}},
	)
	if err != nil {
		return nil, fmt.Errorf("mongo: withdrawing vote on %s: %w", questionID, err)
	}

	if res.MatchedCount == 0 {
		err := updateList(ctx, s.questions,
			bson.D{{Key: "_id", Value: questionID}},
			bson.D{
				{Key: "$addToSet", Value: bson.D{{Key: field, Value: username}}},
				{Key: "$pull", Value: bson.D{{Key: opposite, Value: username}}},
			},
			"question")
		if err != nil {
			return nil, err
		}
	}

	return s.GetQuestionByID(ctx, questionID)
}
