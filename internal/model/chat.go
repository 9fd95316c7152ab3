package model

import "time"

// Chat is a conversation between mutual friends. Participants are fixed at
// creation; the first participant is the initiator.
type Chat struct {
	ID           string    `json:"_id"          bson:"_id"`
	Participants []string  `json:"participants" bson:"participants"`
	Messages     []string  `json:"messages"     bson:"messages"` // message IDs
	CreatedAt    time.Time `json:"createdAt"    bson:"createdAt"`
}

// Message is append-only and ordered by CreatedAt.
type Message struct {
	ID        string    `json:"_id"       bson:"_id"`
	Sender    string    `json:"sender"    bson:"sender"`
	ChatID    string    `json:"chatId"    bson:"chatId"`
	Message   string    `json:"message"   bson:"message"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}
