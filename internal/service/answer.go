package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/heapoverflow/internal/apperror"
	"github.com/sakif/heapoverflow/internal/model"
	"github.com/sakif/heapoverflow/internal/realtime"
	"github.com/sakif/heapoverflow/internal/repository"
)

// NewAnswer is the answer body of an addAnswer request.
type NewAnswer struct {
	Text        string    `json:"text"        validate:"required"`
	AnsBy       string    `json:"ansBy"       validate:"required"`
	AnsDateTime time.Time `json:"ansDateTime" validate:"required"`
}

// AnswerService coordinates posting an answer: persist, link to the
// question, broadcast the populated answer, then notify.
type AnswerService struct {
	users     repository.UserRepository
	questions repository.QuestionRepository
	answers   repository.AnswerRepository
	populate  populator
	notes     *NotificationService
	events    realtime.Broadcaster
	logger    *slog.Logger
}

func NewAnswerService(
	store repository.Store,
	notes *NotificationService,
	events realtime.Broadcaster,
	logger *slog.Logger,
) *AnswerService {
	return &AnswerService{
		users:     store,
		questions: store,
		answers:   store,
		populate:  populator{questions: store, answers: store, comments: store},
		notes:     notes,
		events:    events,
		logger:    logger,
	}
}

// AddAnswer appends a new answer to question qid and returns the stored
// answer without populated comments.
//
// If linking fails after the answer was stored, the answer stays behind as
// an orphan and the error is returned. Nothing is rolled back.
func (s *AnswerService) AddAnswer(ctx context.Context, qid string, ans *NewAnswer) (*model.Answer, error) {
	if qid == "" || ans == nil {
		return nil, apperror.ValidationFailed("qid", "Invalid request")
	}
	if err := validate.Struct(ans); err != nil {
		return nil, apperror.ValidationFailed("ans", "Invalid answer")
	}

	a := &model.Answer{
		Text:        ans.Text,
		AnsBy:       ans.AnsBy,
		AnsDateTime: ans.AnsDateTime,
	}
	if err := s.answers.CreateAnswer(ctx, a); err != nil {
		return nil, fmt.Errorf("service/answer: saving answer: %w", err)
	}

	if err := s.questions.AddAnswerToQuestion(ctx, qid, a.ID); err != nil {
		if isNotFound(err) {
			return nil, apperror.NotFound("Question not found")
		}
		return nil, fmt.Errorf("service/answer: linking answer %s to question %s: %w", a.ID, qid, err)
	}

	populated, err := s.populate.answerByID(ctx, a.ID)
	if err != nil {
		return nil, fmt.Errorf("service/answer: populating answer %s: %w", a.ID, err)
	}
	s.events.Emit(ctx, model.EventAnswerUpdate, model.AnswerUpdatePayload{
		QID:    qid,
		Answer: *populated,
	})

	s.logger.Info("answer added",
		slog.String("answerID", a.ID),
		slog.String("qid", qid),
		slog.String("ansBy", a.AnsBy),
	)

	s.notify(ctx, qid, a.AnsBy)
	return a, nil
}

// notify decides who hears about a new answer by answerer on question qid:
//
//   - the answerer's friends, unless the asker is one of them (the asker
//     gets the more specific message below instead)
//   - the asker, unless they answered their own question
//
// The two sends are independent. A missing asker record skips the asker
// send only.
func (s *AnswerService) notify(ctx context.Context, qid, answerer string) {
	q, err := s.questions.GetQuestionByID(ctx, qid)
	if err != nil {
		s.logger.Warn("answer notifications skipped", slog.String("qid", qid), errAttr(err))
		return
	}
	author, err := findOptionalUser(ctx, s.users, answerer)
	if err != nil {
		s.logger.Warn("answer notifications skipped", slog.String("qid", qid), errAttr(err))
		return
	}
	asker, err := findOptionalUser(ctx, s.users, q.AskedBy)
	if err != nil {
		s.logger.Warn("answer notifications skipped", slog.String("qid", qid), errAttr(err))
		return
	}

	var sends []NotifyInput
	askerIsFriend := asker.HasFriend(answerer)

	if author != nil && len(author.Friends) > 0 && !askerIsFriend {
		sends = append(sends, NotifyInput{
			Recipients: author.Friends,
			Sender:     answerer,
			Content:    fmt.Sprintf(`Your friend %s just posted a new answer to the question, "%s" !`, answerer, q.Title),
			Type:       model.NotificationQuestion,
			QuestionID: qid,
		})
	}

	if q.AskedBy != answerer && asker != nil {
		content := fmt.Sprintf(`%s just answered your question: "%s" !`, answerer, q.Title)
		if askerIsFriend {
			content = fmt.Sprintf(`Your friend %s just answered your question: "%s" !`, answerer, q.Title)
		}
		sends = append(sends, NotifyInput{
			Recipients: []string{q.AskedBy},
			Sender:     answerer,
			Content:    content,
			Type:       model.NotificationQuestion,
			QuestionID: qid,
		})
	}

	s.notes.NotifyAll(ctx, sends...)
}

// GetAnswersByAuthor lists the flat answers written by ansBy.
func (s *AnswerService) GetAnswersByAuthor(ctx context.Context, ansBy string) ([]model.Answer, error) {
	if ansBy == "" {
		return nil, apperror.ValidationFailed("ansBy", "Invalid request")
	}
	answers, err := s.answers.ListAnswersByAuthor(ctx, ansBy)
	if err != nil {
		return nil, fmt.Errorf("service/answer: listing answers by %s: %w", ansBy, err)
	}
	return answers, nil
}

// findOptionalUser returns nil without error when the user does not exist.
func findOptionalUser(ctx context.Context, users repository.UserRepository, username string) (*model.User, error) {
	u, err := users.GetUserByUsername(ctx, username)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}
