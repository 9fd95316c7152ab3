package model

import "time"

// Push event names. Every connected client receives every event and filters
// on the embedded recipient or participant fields itself.
const (
	EventAnswerUpdate           = "answerUpdate"
	EventCommentUpdate          = "commentUpdate"
	EventFriendRequestUpdate    = "friendRequestUpdate"
	EventFriendListUpdate       = "friendListUpdate"
	EventNotificationUpdate     = "notificationUpdate"
	EventReadNotificationUpdate = "readNotificationUpdate"
	EventChatUpdate             = "chatUpdate"
	EventMessageUpdate          = "messageUpdate"
	EventQuestionUpdate         = "questionUpdate"
	EventViewsUpdate            = "viewsUpdate"
	EventVoteUpdate             = "voteUpdate"
)

// FriendRequestStatus is carried by friendRequestUpdate.
type FriendRequestStatus string

const (
	FriendRequestPending  FriendRequestStatus = "pending"
	FriendRequestAccepted FriendRequestStatus = "accepted"
)

type AnswerUpdatePayload struct {
	QID    string          `json:"qid"`
	Answer PopulatedAnswer `json:"answer"`
}

// CommentUpdatePayload carries either a *PopulatedQuestion or a
// *PopulatedAnswer in Result, discriminated by Type.
type CommentUpdatePayload struct {
	Result any        `json:"result"`
	Type   TargetKind `json:"type"`
}

type FriendRequestUpdatePayload struct {
	Requester string              `json:"requester"`
	Recipient string              `json:"recipient"`
	Status    FriendRequestStatus `json:"status"`
}

type FriendListUpdatePayload struct {
	Username string   `json:"username"`
	Friends  []string `json:"friends"`
}

type NotificationUpdatePayload struct {
	Sender     string           `json:"sender"`
	Recipient  string           `json:"recipient"`
	Content    string           `json:"content"`
	Type       NotificationType `json:"type"`
	QuestionID string           `json:"questionId,omitempty"`
	CreatedAt  time.Time        `json:"createdAt"`
}

type ViewsUpdatePayload struct {
	QID   string   `json:"qid"`
	Views []string `json:"views"`
}

type VoteUpdatePayload struct {
	QID       string   `json:"qid"`
	UpVotes   []string `json:"upVotes"`
	DownVotes []string `json:"downVotes"`
}
