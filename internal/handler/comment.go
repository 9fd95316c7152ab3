package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/heapoverflow/internal/model"
	"github.com/sakif/heapoverflow/internal/service"
)

// Comments is the part of service.CommentService the handler needs.
type Comments interface {
	AddComment(ctx context.Context, id, kind string, c *service.NewComment) (*model.Comment, error)
	GetCommentsByAuthor(ctx context.Context, commentBy string) ([]model.Comment, error)
}

type CommentHandler struct {
	comments Comments
	logger   *slog.Logger
}

func NewCommentHandler(comments Comments, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{comments: comments, logger: logger}
}

var (
	addCommentReply  = errorReply{action: "adding comment", plain: true}
	commentsByAuthor = errorReply{action: "fetching comments", plain: true}
)

type addCommentRequest struct {
	ID      string              `json:"id"`
	Type    string              `json:"type"` // "question" or "answer"
	Comment *service.NewComment `json:"comment"`
}

// HandleAddComment attaches a comment to a question or an answer.
//
// HTTP: POST /comment/addComment
// REQUEST BODY: {"id": "...", "type": "question", "comment": {"text", "commentBy", "commentDateTime"}}
func (h *CommentHandler) HandleAddComment(w http.ResponseWriter, r *http.Request) {
	var req addCommentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badBody(w, r, h.logger, addCommentReply, err, "Invalid request")
		return
	}

	c, err := h.comments.AddComment(r.Context(), req.ID, req.Type, req.Comment)
	if err != nil {
		writeError(w, h.logger, addCommentReply, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// HandleGetCommentsByAuthor serves GET /comment/getCommentByAuthor?commentBy=
func (h *CommentHandler) HandleGetCommentsByAuthor(w http.ResponseWriter, r *http.Request) {
	comments, err := h.comments.GetCommentsByAuthor(r.Context(), r.URL.Query().Get("commentBy"))
	if err != nil {
		writeError(w, h.logger, commentsByAuthor, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}
