package handler

import (
	"context"
	"log/slog"
	"net/http"
)

// Friendships is the part of service.FriendshipService the handler needs.
type Friendships interface {
	SendRequest(ctx context.Context, requester, recipient string) error
	AcceptRequest(ctx context.Context, requester, recipient string) error
	DeleteFriend(ctx context.Context, current, friend string) error
	GetFriends(ctx context.Context, username string) ([]string, error)
	GetRequests(ctx context.Context, username string) ([]string, error)
}

// FriendshipHandler serves /friendship. Every response is JSON, with
// failures as {"error": "..."}.
//
// STATUS QUIRKS:
// A missing user is a 400 on send and accept but a 404 on delete. Existing
// clients branch on those codes, so they stay.
type FriendshipHandler struct {
	friends Friendships
	logger  *slog.Logger
}

func NewFriendshipHandler(friends Friendships, logger *slog.Logger) *FriendshipHandler {
	return &FriendshipHandler{friends: friends, logger: logger}
}

var (
	sendRequestReply   = errorReply{action: "sending friend request", notFound: http.StatusBadRequest}
	acceptRequestReply = errorReply{action: "accepting friend request", notFound: http.StatusBadRequest}
	deleteFriendReply  = errorReply{action: "deleting friend"}
	getFriendsReply    = errorReply{action: "retrieving friends"}
	getRequestsReply   = errorReply{action: "retrieving requests"}
)

type sendRequestBody struct {
	RequesterID string `json:"requesterId"`
	RecipientID string `json:"recipientId"`
}

// HandleSendRequest serves POST /friendship/sendFriendRequest.
//
// The fields are named *Id for compatibility but carry usernames.
func (h *FriendshipHandler) HandleSendRequest(w http.ResponseWriter, r *http.Request) {
	var body sendRequestBody
	if err := decodeJSON(w, r, &body); err != nil {
		badBody(w, r, h.logger, sendRequestReply, err, "Invalid user emails.")
		return
	}

	if err := h.friends.SendRequest(r.Context(), body.RequesterID, body.RecipientID); err != nil {
		writeError(w, h.logger, sendRequestReply, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Friend request sent."})
}

type acceptRequestBody struct {
	Requester string `json:"requester"`
	Recipient string `json:"recipient"`
}

// HandleAcceptRequest serves POST /friendship/acceptFriendRequest.
// Either side may be given as a user ID or a username.
func (h *FriendshipHandler) HandleAcceptRequest(w http.ResponseWriter, r *http.Request) {
	var body acceptRequestBody
	if err := decodeJSON(w, r, &body); err != nil {
		badBody(w, r, h.logger, acceptRequestReply, err, "Requester and recipient are required.")
		return
	}

	if err := h.friends.AcceptRequest(r.Context(), body.Requester, body.Recipient); err != nil {
		writeError(w, h.logger, acceptRequestReply, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Friend request accepted."})
}

type deleteFriendBody struct {
	CurrentUsername string `json:"currentUsername"`
	FriendUsername  string `json:"friendUsername"`
}

// HandleDeleteFriend serves POST /friendship/deleteFriend.
func (h *FriendshipHandler) HandleDeleteFriend(w http.ResponseWriter, r *http.Request) {
	var body deleteFriendBody
	if err := decodeJSON(w, r, &body); err != nil {
		badBody(w, r, h.logger, deleteFriendReply, err, "Both user IDs are required.")
		return
	}

	if err := h.friends.DeleteFriend(r.Context(), body.CurrentUsername, body.FriendUsername); err != nil {
		writeError(w, h.logger, deleteFriendReply, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Friend deleted successfully."})
}

// HandleGetFriends serves GET /friendship/getFriends?userId=
func (h *FriendshipHandler) HandleGetFriends(w http.ResponseWriter, r *http.Request) {
	friends, err := h.friends.GetFriends(r.Context(), r.URL.Query().Get("userId"))
	if err != nil {
		writeError(w, h.logger, getFriendsReply, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		UserFriends []string `json:"userFriends"`
	}{friends})
}

// HandleGetRequests serves GET /friendship/getRequests?userId=
func (h *FriendshipHandler) HandleGetRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.friends.GetRequests(r.Context(), r.URL.Query().Get("userId"))
	if err != nil {
		writeError(w, h.logger, getRequestsReply, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		UserRequests []string `json:"userRequests"`
	}{requests})
}
