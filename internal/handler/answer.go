package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/heapoverflow/internal/model"
	"github.com/sakif/heapoverflow/internal/service"
)

// Answers is the part of service.AnswerService the handler needs.
type Answers interface {
	AddAnswer(ctx context.Context, qid string, ans *service.NewAnswer) (*model.Answer, error)
	GetAnswersByAuthor(ctx context.Context, ansBy string) ([]model.Answer, error)
}

// AnswerHandler serves /answer.
type AnswerHandler struct {
	answers Answers
	logger  *slog.Logger
}

func NewAnswerHandler(answers Answers, logger *slog.Logger) *AnswerHandler {
	return &AnswerHandler{answers: answers, logger: logger}
}

var (
	addAnswerReply  = errorReply{action: "adding answer", plain: true}
	answersByAuthor = errorReply{action: "fetching answers", plain: true}
)

type addAnswerRequest struct {
	QID string             `json:"qid"`
	Ans *service.NewAnswer `json:"ans"`
}

// HandleAddAnswer stores an answer under a question.
//
// HTTP: POST /answer/addAnswer
// REQUEST BODY: {"qid": "...", "ans": {"text": "...", "ansBy": "...", "ansDateTime": "..."}}
//
// The response is the flat answer (comment IDs, not comments). The
// populated version goes out over the push channel as answerUpdate.
func (h *AnswerHandler) HandleAddAnswer(w http.ResponseWriter, r *http.Request) {
	var req addAnswerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badBody(w, r, h.logger, addAnswerReply, err, "Invalid request")
		return
	}

	ans, err := h.answers.AddAnswer(r.Context(), req.QID, req.Ans)
	if err != nil {
		writeError(w, h.logger, addAnswerReply, err)
		return
	}
	writeJSON(w, http.StatusOK, ans)
}

// HandleGetAnswersByAuthor lists a user's answers.
//
// HTTP: GET /answer/getAnswerByAuthor?ansBy=
func (h *AnswerHandler) HandleGetAnswersByAuthor(w http.ResponseWriter, r *http.Request) {
	answers, err := h.answers.GetAnswersByAuthor(r.Context(), r.URL.Query().Get("ansBy"))
	if err != nil {
		writeError(w, h.logger, answersByAuthor, err)
		return
	}
	writeJSON(w, http.StatusOK, answers)
}
