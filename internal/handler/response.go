package handler

// RESPONSE HELPERS:
// These functions standardise how we send responses and errors.
//
// TWO BODY SHAPES:
// The web client grew up against two styles of endpoint and parses both:
//   - plain text:  400 "Invalid answer"                 (answers, comments, notifications, chat reads)
//   - JSON:        400 {"error": "Friend request already exists."}  (friendship, createChat, messages, users)
//
// Each handler declares its style (and its status quirks) once in an
// errorReply value, and every failure path goes through writeError.
//
// STATUS QUIRKS ARE PER ENDPOINT:
// "Not found" is a 404 on some endpoints and a 400 on others. Clients
// depend on the exact code, so the mapping is configured, not normalised.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/heapoverflow/internal/apperror"
)

// maxBodyBytes caps request bodies; the largest legitimate body is a
// question with its text.
const maxBodyBytes = 1 << 20

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse is the JSON success body of endpoints that only confirm.
type MessageResponse struct {
	Message string `json:"message"`
}

// errorReply describes how one endpoint reports failures.
type errorReply struct {
	action    string // completes "Error when <action>: <cause>" on 500
	notFound  int    // status for apperror.ErrNotFound; 0 means 404
	forbidden int    // status for apperror.ErrForbidden; 0 means 403
	plain     bool   // text body instead of ErrorResponse
}

// status maps a service error to the endpoint's HTTP status and the
// client-facing message.
//
// errors.As walks the chain, so a service error wrapped with %w
//
//	fmt.Errorf("service/user: creating ann: %w", apperror.Conflict(...))
//
// still classifies as a Conflict. Anything without an AppError in its
// chain is a storage failure.
func (e errorReply) status(err error) (int, string) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError, fmt.Sprintf("Error when %s: %v", e.action, err)
	}

	switch {
	case errors.Is(err, apperror.ErrValidation), errors.Is(err, apperror.ErrConflict):
		return http.StatusBadRequest, appErr.Message
	case errors.Is(err, apperror.ErrNotFound):
		return orDefault(e.notFound, http.StatusNotFound), appErr.Message
	case errors.Is(err, apperror.ErrForbidden):
		return orDefault(e.forbidden, http.StatusForbidden), appErr.Message
	}
	return http.StatusInternalServerError, fmt.Sprintf("Error when %s: %v", e.action, err)
}

func orDefault(status, def int) int {
	if status == 0 {
		return def
	}
	return status
}

// writeError sends err in the endpoint's style. 500s are logged with the
// full cause; client errors are not, they are routine.
func writeError(w http.ResponseWriter, logger *slog.Logger, reply errorReply, err error) {
	status, msg := reply.status(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			slog.String("action", reply.action),
			slog.String("error", err.Error()),
		)
	}

	if reply.plain {
		writeText(w, status, msg)
		return
	}
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// Headers and status must be set BEFORE the body. Once Encode writes,
// the headers are on the wire and later changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, msg)
}

// decodeJSON reads a single JSON value from the request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("decoding request body: %w", err)
	}
	return nil
}

// badBody logs a body that could not be decoded and answers 400 with the
// endpoint's own wording for a malformed request.
func badBody(w http.ResponseWriter, r *http.Request, logger *slog.Logger, reply errorReply, err error, msg string) {
	logger.Warn("invalid request body",
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	writeError(w, logger, reply, apperror.ValidationFailed("body", msg))
}
