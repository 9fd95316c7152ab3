package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sakif/heapoverflow/internal/apperror"
	"github.com/sakif/heapoverflow/internal/metrics"
	"github.com/sakif/heapoverflow/internal/model"
	"github.com/sakif/heapoverflow/internal/realtime"
	"github.com/sakif/heapoverflow/internal/repository"
)

// NotificationService is the notification fan-out engine. Coordinators
// decide who should hear about an action; this service turns that decision
// into stored notifications, per-user links and push events.
type NotificationService struct {
	users   repository.UserRepository
	notes   repository.NotificationRepository
	events  realtime.Broadcaster
	logger  *slog.Logger
	metrics *metrics.Collector
	now     func() time.Time
}

func NewNotificationService(
	users repository.UserRepository,
	notes repository.NotificationRepository,
	events realtime.Broadcaster,
	logger *slog.Logger,
	m *metrics.Collector,
) *NotificationService {
	return &NotificationService{
		users:   users,
		notes:   notes,
		events:  events,
		logger:  logger,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// NotifyInput is one fan-out: the same content sent to every recipient.
type NotifyInput struct {
	Recipients []string
	Sender     string
	Content    string
	Type       model.NotificationType
	QuestionID string // empty for friend-request notifications
}

// Notify stores one notification per recipient, links each into the
// recipient's notification list and broadcasts one notificationUpdate per
// recipient.
//
// An empty recipient list is a no-op: no store calls and no broadcasts.
//
// The batch insert is the only step whose failure is returned (wrapped as
// apperror.ErrFanout). A failed link for one recipient is logged and the
// others proceed; the broadcasts go out regardless of link outcomes.
func (s *NotificationService) Notify(ctx context.Context, in NotifyInput) error {
	if len(in.Recipients) == 0 {
		return nil
	}

	createdAt := s.now()
	batch := make([]model.Notification, len(in.Recipients))
	for i, r := range in.Recipients {
		batch[i] = model.Notification{
			Sender:     in.Sender,
			Recipient:  r,
			Content:    in.Content,
			Type:       in.Type,
			QuestionID: in.QuestionID,
			IsRead:     false,
			CreatedAt:  createdAt,
		}
	}

	if err := s.notes.InsertNotifications(ctx, batch); err != nil {
		s.metrics.IncFanoutFailure("insert")
		return apperror.Fanout("insert", err)
	}
	s.metrics.AddNotifications(len(batch))

	for _, n := range batch {
		if err := s.users.AddNotification(ctx, n.Recipient, n.ID); err != nil {
			s.metrics.IncFanoutFailure("link")
			s.logger.Warn("notification not linked to recipient",
				slog.String("recipient", n.Recipient),
				slog.String("notificationID", n.ID),
				errAttr(err),
			)
		}
	}

	for _, n := range batch {
		s.events.Emit(ctx, model.EventNotificationUpdate, model.NotificationUpdatePayload{
			Sender:     n.Sender,
			Recipient:  n.Recipient,
			Content:    n.Content,
			Type:       n.Type,
			QuestionID: n.QuestionID,
			CreatedAt:  n.CreatedAt,
		})
	}

	s.logger.Debug("notifications sent",
		slog.String("sender", in.Sender),
		slog.Int("recipients", len(batch)),
	)
	return nil
}

// NotifyAll runs independent fan-outs concurrently and waits for all of
// them. Failures are logged; the triggering action has already committed.
func (s *NotificationService) NotifyAll(ctx context.Context, sends ...NotifyInput) {
	var g errgroup.Group
	for _, in := range sends {
		g.Go(func() error {
			if err := s.Notify(ctx, in); err != nil {
				s.logger.Error("notification fan-out failed",
					slog.String("sender", in.Sender),
					slog.Int("recipients", len(in.Recipients)),
					errAttr(err),
				)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// GetNotifications returns the user's notifications, newest first.
func (s *NotificationService) GetNotifications(ctx context.Context, username string) ([]model.Notification, error) {
	if username == "" {
		return nil, apperror.ValidationFailed("username", "Username is required.")
	}

	notes, err := s.notes.ListNotificationsByRecipient(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("service/notification: listing for %s: %w", username, err)
	}
	return notes, nil
}

// MarkAsRead flags one notification as read and tells every client, so
// open unread badges can refresh.
func (s *NotificationService) MarkAsRead(ctx context.Context, nid string) error {
	if nid == "" {
		return apperror.ValidationFailed("nid", "Notification ID is required.")
	}

	if err := s.notes.MarkNotificationRead(ctx, nid); err != nil {
		if isNotFound(err) {
			return apperror.NotFound("Notification not found.")
		}
		return fmt.Errorf("service/notification: marking %s read: %w", nid, err)
	}

	// The payload is the bare notification ID, not an object.
	s.events.Emit(ctx, model.EventReadNotificationUpdate, nid)
	return nil
}

// UnreadCount is recomputed from scratch on every call by scanning all of
// the user's notifications, so it costs O(notifications). There is no
// stored counter to drift out of sync.
func (s *NotificationService) UnreadCount(ctx context.Context, username string) (int, error) {
	notes, err := s.GetNotifications(ctx, username)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, n := range notes {
		if !n.IsRead {
			count++
		}
	}
	return count, nil
}
