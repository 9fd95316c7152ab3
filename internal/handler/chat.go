package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/heapoverflow/internal/model"
	"github.com/sakif/heapoverflow/internal/service"
)

// Chats is the part of service.ChatService the handler needs.
type Chats interface {
	CreateChat(ctx context.Context, participants []string) (*model.Chat, error)
	GetUserChats(ctx context.Context, username string) ([]model.Chat, error)
	GetChat(ctx context.Context, chatID string) (*model.Chat, error)
}

// Messages is the part of service.MessageService the handler needs.
type Messages interface {
	SendMessage(ctx context.Context, in *service.NewMessage) (*model.Message, error)
	GetMessages(ctx context.Context, chatID string) ([]model.Message, error)
}

// ChatHandler serves /chat and /message.
//
// createChat and the /message routes answer in JSON; the two chat reads
// answer in plain text. Every "not found" and the friends-only rule are
// 400s here.
type ChatHandler struct {
	chats    Chats
	messages Messages
	logger   *slog.Logger
}

func NewChatHandler(chats Chats, messages Messages, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{chats: chats, messages: messages, logger: logger}
}

var (
	createChatReply = errorReply{
		action:    "creating chat",
		notFound:  http.StatusBadRequest,
		forbidden: http.StatusBadRequest,
	}
	getUserChatsReply = errorReply{action: "retrieving chats", plain: true}
	getChatReply      = errorReply{action: "retrieving chat", notFound: http.StatusBadRequest, plain: true}
	sendMessageReply  = errorReply{action: "sending message", notFound: http.StatusBadRequest}
	getMessagesReply  = errorReply{action: "retrieving messages"}
)

type createChatBody struct {
	Participants []string `json:"participants"`
}

// HandleCreateChat returns the chat between the participants, creating it
// on first use.
//
// HTTP: POST /chat/createChat
// REQUEST BODY: {"participants": ["initiator", "friend", ...]}
func (h *ChatHandler) HandleCreateChat(w http.ResponseWriter, r *http.Request) {
	var body createChatBody
	if err := decodeJSON(w, r, &body); err != nil {
		badBody(w, r, h.logger, createChatReply, err, "At least two participants are required.")
		return
	}

	chat, err := h.chats.CreateChat(r.Context(), body.Participants)
	if err != nil {
		writeError(w, h.logger, createChatReply, err)
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

// HandleGetUserChats serves GET /chat/getUserChats?username=
func (h *ChatHandler) HandleGetUserChats(w http.ResponseWriter, r *http.Request) {
	chats, err := h.chats.GetUserChats(r.Context(), r.URL.Query().Get("username"))
	if err != nil {
		writeError(w, h.logger, getUserChatsReply, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Chats []model.Chat `json:"chats"`
	}{chats})
}

// HandleGetChat serves GET /chat/getChat?chatId=
func (h *ChatHandler) HandleGetChat(w http.ResponseWriter, r *http.Request) {
	chat, err := h.chats.GetChat(r.Context(), r.URL.Query().Get("chatId"))
	if err != nil {
		writeError(w, h.logger, getChatReply, err)
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

// HandleSendMessage appends a message to a chat.
//
// HTTP: POST /message/sendMessage
// REQUEST BODY: {"sender": "...", "chatId": "...", "message": "..."}
//
// The stored message is not returned; clients render it from messageUpdate.
func (h *ChatHandler) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	var in service.NewMessage
	if err := decodeJSON(w, r, &in); err != nil {
		badBody(w, r, h.logger, sendMessageReply, err, "Invalid message data.")
		return
	}

	if _, err := h.messages.SendMessage(r.Context(), &in); err != nil {
		writeError(w, h.logger, sendMessageReply, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Message sent."})
}

// HandleGetMessages serves GET /message/getMessages?chatId=, oldest first.
func (h *ChatHandler) HandleGetMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.messages.GetMessages(r.Context(), r.URL.Query().Get("chatId"))
	if err != nil {
		writeError(w, h.logger, getMessagesReply, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Messages []model.Message `json:"messages"`
	}{msgs})
}
