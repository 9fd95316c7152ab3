package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/heapoverflow/internal/apperror"
	"github.com/sakif/heapoverflow/internal/model"
	"github.com/sakif/heapoverflow/internal/realtime"
	"github.com/sakif/heapoverflow/internal/repository"
)

// NewComment is the comment body of an addComment request.
type NewComment struct {
	Text            string    `json:"text"            validate:"required"`
	CommentBy       string    `json:"commentBy"       validate:"required"`
	CommentDateTime time.Time `json:"commentDateTime" validate:"required"`
}

// CommentService coordinates posting a comment on a question or an answer.
type CommentService struct {
	users     repository.UserRepository
	questions repository.QuestionRepository
	answers   repository.AnswerRepository
	comments  repository.CommentRepository
	populate  populator
	notes     *NotificationService
	events    realtime.Broadcaster
	logger    *slog.Logger
}

func NewCommentService(
	store repository.Store,
	notes *NotificationService,
	events realtime.Broadcaster,
	logger *slog.Logger,
) *CommentService {
	return &CommentService{
		users:     store,
		questions: store,
		answers:   store,
		comments:  store,
		populate:  populator{questions: store, answers: store, comments: store},
		notes:     notes,
		events:    events,
		logger:    logger,
	}
}

// commentParent is a resolved comment target. Every target kind answers
// the same three questions, so AddComment never branches on the kind.
type commentParent struct {
	// link appends the comment to the parent's comment list.
	link func(ctx context.Context, commentID string) error
	// populated is the parent as broadcast in commentUpdate.
	populated func(ctx context.Context) (any, error)
	// audience is who owns the parent and which question it sits under.
	audience func(ctx context.Context) (commentAudience, error)
}

type commentAudience struct {
	owner    string
	qid      string
	title    string
	onAnswer bool
}

func (s *CommentService) resolve(t model.CommentTarget) commentParent {
	switch t.Kind {
	case model.TargetAnswer:
		return commentParent{
			link: func(ctx context.Context, cid string) error {
				return s.answers.AddCommentToAnswer(ctx, t.ID, cid)
			},
			populated: func(ctx context.Context) (any, error) {
				return s.populate.answerByID(ctx, t.ID)
			},
			audience: func(ctx context.Context) (commentAudience, error) {
				a, err := s.answers.GetAnswerByID(ctx, t.ID)
				if err != nil {
					return commentAudience{}, err
				}
				q, err := s.questions.FindQuestionByAnswer(ctx, a.ID)
				if err != nil {
					return commentAudience{}, err
				}
				return commentAudience{owner: a.AnsBy, qid: q.ID, title: q.Title, onAnswer: true}, nil
			},
		}
	default:
		return commentParent{
			link: func(ctx context.Context, cid string) error {
				return s.questions.AddCommentToQuestion(ctx, t.ID, cid)
			},
			populated: func(ctx context.Context) (any, error) {
				return s.populate.questionByID(ctx, t.ID)
			},
			audience: func(ctx context.Context) (commentAudience, error) {
				q, err := s.questions.GetQuestionByID(ctx, t.ID)
				if err != nil {
					return commentAudience{}, err
				}
				return commentAudience{owner: q.AskedBy, qid: q.ID, title: q.Title}, nil
			},
		}
	}
}

// AddComment attaches a new comment to the question or answer identified
// by (id, kind) and returns the flat stored comment.
//
// A target that does not exist is a storage failure here, not a 404: the
// comment has already been saved by the time the link step finds out.
func (s *CommentService) AddComment(ctx context.Context, id, kind string, c *NewComment) (*model.Comment, error) {
	if id == "" || c == nil {
		return nil, apperror.ValidationFailed("id", "Invalid request")
	}
	target, err := model.ParseCommentTarget(id, kind)
	if err != nil {
		if errors.Is(err, model.ErrInvalidTargetID) {
			return nil, apperror.ValidationFailed("id", "Invalid ID format")
		}
		return nil, apperror.ValidationFailed("type", "Invalid request")
	}
	if err := validate.Struct(c); err != nil {
		return nil, apperror.ValidationFailed("comment", "Invalid comment body")
	}

	comment := &model.Comment{
		Text:            c.Text,
		CommentBy:       c.CommentBy,
		CommentDateTime: c.CommentDateTime,
	}
	if err := s.comments.CreateComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("service/comment: saving comment: %w", err)
	}

	parent := s.resolve(target)

	// %v drops the NotFound class on purpose so a missing parent reports 500.
	if err := parent.link(ctx, comment.ID); err != nil {
		return nil, fmt.Errorf("service/comment: linking comment to %s %s: %v", target.Kind, target.ID, err)
	}

	result, err := parent.populated(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/comment: populating %s %s: %v", target.Kind, target.ID, err)
	}
	s.events.Emit(ctx, model.EventCommentUpdate, model.CommentUpdatePayload{
		Result: result,
		Type:   target.Kind,
	})

	s.logger.Info("comment added",
		slog.String("commentID", comment.ID),
		slog.String("target", string(target.Kind)),
		slog.String("targetID", target.ID),
	)

	s.notify(ctx, parent, comment.CommentBy)
	return comment, nil
}

// notify tells the parent's owner (unless they wrote the comment) and the
// commenter's friends (minus the owner, who already got a message).
func (s *CommentService) notify(ctx context.Context, parent commentParent, commenter string) {
	aud, err := parent.audience(ctx)
	if err != nil {
		s.logger.Warn("comment notifications skipped", slog.String("commentBy", commenter), errAttr(err))
		return
	}
	author, err := findOptionalUser(ctx, s.users, commenter)
	if err != nil {
		s.logger.Warn("comment notifications skipped", slog.String("commentBy", commenter), errAttr(err))
		return
	}
	// An owner without a user record gets no notification at all.
	owner, err := findOptionalUser(ctx, s.users, aud.owner)
	if err != nil {
		s.logger.Warn("comment notifications skipped", slog.String("owner", aud.owner), errAttr(err))
		return
	}

	ownerMsg := `%s just commented on your question: "%s" !`
	friendMsg := `Your friend %s just posted a new comment to the question, "%s" !`
	if aud.onAnswer {
		ownerMsg = `%s just commented on your answer to the question: "%s" !`
		friendMsg = `Your friend %s just posted a new comment to an answer of the question, "%s" !`
	}

	var sends []NotifyInput
	if owner != nil && aud.owner != commenter {
		sends = append(sends, NotifyInput{
			Recipients: []string{aud.owner},
			Sender:     commenter,
			Content:    fmt.Sprintf(ownerMsg, commenter, aud.title),
			Type:       model.NotificationQuestion,
			QuestionID: aud.qid,
		})
	}
	if author != nil && len(author.Friends) > 0 {
		friends := make([]string, 0, len(author.Friends))
		for _, f := range author.Friends {
			if f != aud.owner {
				friends = append(friends, f)
			}
		}
		sends = append(sends, NotifyInput{
			Recipients: friends,
			Sender:     commenter,
			Content:    fmt.Sprintf(friendMsg, commenter, aud.title),
			Type:       model.NotificationQuestion,
			QuestionID: aud.qid,
		})
	}

	s.notes.NotifyAll(ctx, sends...)
}

// GetCommentsByAuthor lists the comments written by commentBy.
func (s *CommentService) GetCommentsByAuthor(ctx context.Context, commentBy string) ([]model.Comment, error) {
	if commentBy == "" {
		return nil, apperror.ValidationFailed("commentBy", "Invalid request")
	}
	comments, err := s.comments.ListCommentsByAuthor(ctx, commentBy)
	if err != nil {
		return nil, fmt.Errorf("service/comment: listing comments by %s: %w", commentBy, err)
	}
	return comments, nil
}
