package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/heapoverflow/internal/model"
)

// Notifications is the read side of service.NotificationService. The
// write side (fan-out) is only reachable through the other services.
type Notifications interface {
	GetNotifications(ctx context.Context, username string) ([]model.Notification, error)
	MarkAsRead(ctx context.Context, nid string) error
	UnreadCount(ctx context.Context, username string) (int, error)
}

type NotificationHandler struct {
	notes  Notifications
	logger *slog.Logger
}

func NewNotificationHandler(notes Notifications, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{notes: notes, logger: logger}
}

var (
	getNotificationsReply = errorReply{action: "retrieving notifications", plain: true}
	markAsReadReply       = errorReply{action: "marking notification as read", plain: true}
	unreadCountReply      = errorReply{action: "counting unread notifications", plain: true}
)

// HandleGetNotifications serves GET /notification/getNotifications?username=,
// newest first.
func (h *NotificationHandler) HandleGetNotifications(w http.ResponseWriter, r *http.Request) {
	notes, err := h.notes.GetNotifications(r.Context(), r.URL.Query().Get("username"))
	if err != nil {
		writeError(w, h.logger, getNotificationsReply, err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

type markAsReadBody struct {
	NID string `json:"nid"`
}

// HandleMarkAsRead serves POST /notification/markAsRead {"nid": "..."}.
func (h *NotificationHandler) HandleMarkAsRead(w http.ResponseWriter, r *http.Request) {
	var body markAsReadBody
	if err := decodeJSON(w, r, &body); err != nil {
		badBody(w, r, h.logger, markAsReadReply, err, "Notification ID is required.")
		return
	}

	if err := h.notes.MarkAsRead(r.Context(), body.NID); err != nil {
		writeError(w, h.logger, markAsReadReply, err)
		return
	}
	writeText(w, http.StatusOK, "Notification marked as read")
}

// HandleGetUnreadCount serves GET /notification/getUnreadCount?username=
func (h *NotificationHandler) HandleGetUnreadCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.notes.UnreadCount(r.Context(), r.URL.Query().Get("username"))
	if err != nil {
		writeError(w, h.logger, unreadCountReply, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Count int `json:"count"`
	}{n})
}
