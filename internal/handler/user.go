package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/heapoverflow/internal/model"
	"github.com/sakif/heapoverflow/internal/service"
)

// Users is the part of service.UserService the handler needs.
type Users interface {
	AddUser(ctx context.Context, in *service.NewUser) (*model.User, error)
	GetUser(ctx context.Context, username string) (*model.User, error)
	GetAllUsers(ctx context.Context) ([]model.User, error)
	UpdateUser(ctx context.Context, username string, upd *service.UserUpdate) (*model.User, error)
}

// UserHandler serves /user profiles.
type UserHandler struct {
	users  Users
	logger *slog.Logger
}

func NewUserHandler(users Users, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

var (
	addUserReply    = errorReply{action: "adding user"}
	getUserReply    = errorReply{action: "finding user"}
	getAllUsers     = errorReply{action: "retrieving users"}
	updateUserReply = errorReply{action: "updating user"}
)

// HandleAddUser serves POST /user/addUser. A taken username is a 400.
func (h *UserHandler) HandleAddUser(w http.ResponseWriter, r *http.Request) {
	var in service.NewUser
	if err := decodeJSON(w, r, &in); err != nil {
		badBody(w, r, h.logger, addUserReply, err, "Invalid user")
		return
	}

	u, err := h.users.AddUser(r.Context(), &in)
	if err != nil {
		writeError(w, h.logger, addUserReply, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// HandleGetUser serves GET /user/getUser?username=
func (h *UserHandler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.GetUser(r.Context(), r.URL.Query().Get("username"))
	if err != nil {
		writeError(w, h.logger, getUserReply, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// HandleGetAllUsers serves GET /user/getAllUsers.
func (h *UserHandler) HandleGetAllUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.GetAllUsers(r.Context())
	if err != nil {
		writeError(w, h.logger, getAllUsers, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// HandleUpdateUser applies a partial profile update.
//
// HTTP: PUT /user/updateUser/{username}
//
// URL PARAMETERS:
// chi.URLParam reads {username} from the matched route pattern.
func (h *UserHandler) HandleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var upd service.UserUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		badBody(w, r, h.logger, updateUserReply, err, "Invalid user")
		return
	}

	u, err := h.users.UpdateUser(r.Context(), chi.URLParam(r, "username"), &upd)
	if err != nil {
		writeError(w, h.logger, updateUserReply, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
