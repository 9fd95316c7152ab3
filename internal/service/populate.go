package service

import (
	"context"
	"fmt"

	"github.com/sakif/heapoverflow/internal/model"
	"github.com/sakif/heapoverflow/internal/repository"
)

// populator resolves reference lists into embedded documents for broadcast
// payloads and question pages. It goes one level down: a question's
// answers carry their own comments, and nothing deeper exists.
type populator struct {
	questions repository.QuestionRepository
	answers   repository.AnswerRepository
	comments  repository.CommentRepository
}

func (p populator) questionByID(ctx context.Context, id string) (*model.PopulatedQuestion, error) {
	q, err := p.questions.GetQuestionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return p.question(ctx, q)
}

func (p populator) question(ctx context.Context, q *model.Question) (*model.PopulatedQuestion, error) {
	comments, err := p.commentList(ctx, q.Comments)
	if err != nil {
		return nil, err
	}

	answers := []model.PopulatedAnswer{}
	if len(q.Answers) > 0 {
		flat, err := p.answers.GetAnswersByIDs(ctx, q.Answers)
		if err != nil {
			return nil, fmt.Errorf("populating answers of question %s: %w", q.ID, err)
		}
		for i := range flat {
			pa, err := p.answer(ctx, &flat[i])
			if err != nil {
				return nil, err
			}
			answers = append(answers, *pa)
		}
	}

	q.Normalize()
	return &model.PopulatedQuestion{
		ID:          q.ID,
		Title:       q.Title,
		Text:        q.Text,
		Tags:        q.Tags,
		AskedBy:     q.AskedBy,
		AskDateTime: q.AskDateTime,
		Answers:     answers,
		Comments:    comments,
		Views:       q.Views,
		UpVotes:     q.UpVotes,
		DownVotes:   q.DownVotes,
	}, nil
}

func (p populator) answerByID(ctx context.Context, id string) (*model.PopulatedAnswer, error) {
	a, err := p.answers.GetAnswerByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return p.answer(ctx, a)
}

func (p populator) answer(ctx context.Context, a *model.Answer) (*model.PopulatedAnswer, error) {
	comments, err := p.commentList(ctx, a.Comments)
	if err != nil {
		return nil, err
	}
	return &model.PopulatedAnswer{
		ID:          a.ID,
		Text:        a.Text,
		AnsBy:       a.AnsBy,
		AnsDateTime: a.AnsDateTime,
		Comments:    comments,
	}, nil
}

// commentList always returns a non-nil slice so payloads encode [] not null.
func (p populator) commentList(ctx context.Context, ids []string) ([]model.Comment, error) {
	if len(ids) == 0 {
		return []model.Comment{}, nil
	}
	comments, err := p.comments.GetCommentsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("populating comments: %w", err)
	}
	if comments == nil {
		comments = []model.Comment{}
	}
	return comments, nil
}
