package model

import "time"

// NotificationType groups notifications for the client's icon and routing.
type NotificationType string

const (
	NotificationQuestion NotificationType = "question"
	NotificationRequest  NotificationType = "request"
)

// Notification is created only as a side effect of another domain event.
type Notification struct {
	ID         string           `json:"_id"                  bson:"_id"`
	Sender     string           `json:"sender"               bson:"sender"`
	Recipient  string           `json:"recipient"            bson:"recipient"`
	Content    string           `json:"content"              bson:"content"`
	Type       NotificationType `json:"type"                 bson:"type"`
	QuestionID string           `json:"questionId,omitempty" bson:"questionId,omitempty"`
	IsRead     bool             `json:"isRead"               bson:"isRead"`
	CreatedAt  time.Time        `json:"createdAt"            bson:"createdAt"`
}
