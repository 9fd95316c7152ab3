package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/heapoverflow/internal/apperror"
	"github.com/sakif/heapoverflow/internal/model"
	"github.com/sakif/heapoverflow/internal/realtime"
	"github.com/sakif/heapoverflow/internal/repository"
)

// NewQuestion is an addQuestion request.
type NewQuestion struct {
	Title       string    `json:"title"       validate:"required,max=100"`
	Text        string    `json:"text"        validate:"required"`
	Tags        []string  `json:"tags"        validate:"dive,required"`
	AskedBy     string    `json:"askedBy"     validate:"required"`
	AskDateTime time.Time `json:"askDateTime"`
}

// QuestionService owns questions: asking, reading (which records a view)
// and voting.
type QuestionService struct {
	questions repository.QuestionRepository
	populate  populator
	events    realtime.Broadcaster
	logger    *slog.Logger
}

func NewQuestionService(store repository.Store, events realtime.Broadcaster, logger *slog.Logger) *QuestionService {
	return &QuestionService{
		questions: store,
		populate:  populator{questions: store, answers: store, comments: store},
		events:    events,
		logger:    logger,
	}
}

// AddQuestion stores a question and broadcasts it populated (all lists empty).
func (s *QuestionService) AddQuestion(ctx context.Context, in *NewQuestion) (*model.Question, error) {
	if in == nil {
		return nil, apperror.ValidationFailed("question", "Invalid question")
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Text = strings.TrimSpace(in.Text)
	if err := validate.Struct(in); err != nil {
		return nil, apperror.ValidationFailed("question", "Invalid question")
	}

	q := &model.Question{
		Title:       in.Title,
		Text:        in.Text,
		Tags:        normalizeTags(in.Tags),
		AskedBy:     in.AskedBy,
		AskDateTime: in.AskDateTime,
	}
	if err := s.questions.CreateQuestion(ctx, q); err != nil {
		return nil, fmt.Errorf("service/question: saving question: %w", err)
	}

	populated, err := s.populate.question(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("service/question: populating question %s: %w", q.ID, err)
	}
	s.events.Emit(ctx, model.EventQuestionUpdate, populated)

	s.logger.Info("question added", slog.String("qid", q.ID), slog.String("askedBy", q.AskedBy))
	return q, nil
}

// GetQuestion returns the populated question. A non-empty viewer is added
// to the question's views (at most once per user) and the new view list is
// broadcast.
func (s *QuestionService) GetQuestion(ctx context.Context, qid, viewer string) (*model.PopulatedQuestion, error) {
	if qid == "" {
		return nil, apperror.ValidationFailed("qid", "Invalid request")
	}
	if !model.IsValidID(qid) {
		return nil, apperror.ValidationFailed("qid", "Invalid ID format")
	}

	if viewer != "" {
		if err := s.questions.AddView(ctx, qid, viewer); err != nil {
			return nil, s.questionErr(err, "recording view on", qid)
		}
	}

	q, err := s.populate.questionByID(ctx, qid)
	if err != nil {
		return nil, s.questionErr(err, "populating", qid)
	}

	if viewer != "" {
		s.events.Emit(ctx, model.EventViewsUpdate, model.ViewsUpdatePayload{QID: q.ID, Views: q.Views})
	}
	return q, nil
}

// GetQuestions lists questions newest first, optionally by one author.
func (s *QuestionService) GetQuestions(ctx context.Context, askedBy string) ([]model.Question, error) {
	qs, err := s.questions.ListQuestions(ctx, askedBy)
	if err != nil {
		return nil, fmt.Errorf("service/question: listing questions: %w", err)
	}
	return qs, nil
}

// Vote toggles username's vote on qid in dir. Voting the same way twice
// withdraws the vote; voting the other way moves it.
func (s *QuestionService) Vote(ctx context.Context, qid, username string, dir model.VoteDirection) (*model.Question, error) {
	if qid == "" || username == "" {
		return nil, apperror.ValidationFailed("qid", "Invalid request")
	}

	q, err := s.questions.Vote(ctx, qid, username, dir)
	if err != nil {
		return nil, s.questionErr(err, "voting on", qid)
	}

	s.events.Emit(ctx, model.EventVoteUpdate, model.VoteUpdatePayload{
		QID:       q.ID,
		UpVotes:   q.UpVotes,
		DownVotes: q.DownVotes,
	})
	return q, nil
}

func (s *QuestionService) questionErr(err error, op, qid string) error {
	if isNotFound(err) {
		return apperror.NotFound("Question not found")
	}
	return fmt.Errorf("service/question: %s question %s: %w", op, qid, err)
}

// normalizeTags lowercases, trims and de-duplicates tag names.
func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
