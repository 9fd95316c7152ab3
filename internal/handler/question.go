package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/heapoverflow/internal/model"
	"github.com/sakif/heapoverflow/internal/service"
)

// Questions is the part of service.QuestionService the handler needs.
type Questions interface {
	AddQuestion(ctx context.Context, in *service.NewQuestion) (*model.Question, error)
	GetQuestion(ctx context.Context, qid, viewer string) (*model.PopulatedQuestion, error)
	GetQuestions(ctx context.Context, askedBy string) ([]model.Question, error)
	Vote(ctx context.Context, qid, username string, dir model.VoteDirection) (*model.Question, error)
}

// QuestionHandler serves /question, the parents that answers and comments
// hang off.
type QuestionHandler struct {
	questions Questions
	logger    *slog.Logger
}

func NewQuestionHandler(questions Questions, logger *slog.Logger) *QuestionHandler {
	return &QuestionHandler{questions: questions, logger: logger}
}

var (
	addQuestionReply  = errorReply{action: "saving question", plain: true}
	getQuestionReply  = errorReply{action: "fetching question by id", plain: true}
	getQuestionsReply = errorReply{action: "fetching questions", plain: true}
	voteReply         = errorReply{action: "voting", plain: true}
)

// HandleAddQuestion serves POST /question/addQuestion.
func (h *QuestionHandler) HandleAddQuestion(w http.ResponseWriter, r *http.Request) {
	var in service.NewQuestion
	if err := decodeJSON(w, r, &in); err != nil {
		badBody(w, r, h.logger, addQuestionReply, err, "Invalid question")
		return
	}

	q, err := h.questions.AddQuestion(r.Context(), &in)
	if err != nil {
		writeError(w, h.logger, addQuestionReply, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// HandleGetQuestion returns a question with its answers and comments.
//
// HTTP: GET /question/getQuestion?qid=&username=
//
// username is optional. When present, reading counts as a view.
func (h *QuestionHandler) HandleGetQuestion(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	q, err := h.questions.GetQuestion(r.Context(), query.Get("qid"), query.Get("username"))
	if err != nil {
		writeError(w, h.logger, getQuestionReply, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// HandleGetQuestions serves GET /question/getQuestions?askedBy=
func (h *QuestionHandler) HandleGetQuestions(w http.ResponseWriter, r *http.Request) {
	qs, err := h.questions.GetQuestions(r.Context(), r.URL.Query().Get("askedBy"))
	if err != nil {
		writeError(w, h.logger, getQuestionsReply, err)
		return
	}
	writeJSON(w, http.StatusOK, qs)
}

type voteRequest struct {
	QID      string `json:"qid"`
	Username string `json:"username"`
}

// HandleUpvote serves POST /question/upvote.
func (h *QuestionHandler) HandleUpvote(w http.ResponseWriter, r *http.Request) {
	h.vote(w, r, model.VoteUp)
}

// HandleDownvote serves POST /question/downvote.
func (h *QuestionHandler) HandleDownvote(w http.ResponseWriter, r *http.Request) {
	h.vote(w, r, model.VoteDown)
}

func (h *QuestionHandler) vote(w http.ResponseWriter, r *http.Request, dir model.VoteDirection) {
	var req voteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badBody(w, r, h.logger, voteReply, err, "Invalid request")
		return
	}

	q, err := h.questions.Vote(r.Context(), req.QID, req.Username, dir)
	if err != nil {
		writeError(w, h.logger, voteReply, err)
		return
	}
	writeJSON(w, http.StatusOK, model.VoteUpdatePayload{
		QID:       q.ID,
		UpVotes:   q.UpVotes,
		DownVotes: q.DownVotes,
	})
}
