package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/chamber/internal/auth"
	"github.com/chamber/internal/logger"
	"github.com/chamber/internal/model"
	"github.com/chamber/internal/repository"
)

type UserHandler struct {
	users    *repository.UserRepository
	verifier *auth.Verifier
}

func NewUserHandler(users *repository.UserRepository, verifier *auth.Verifier) *UserHandler {
	return &UserHandler{users: users, verifier: verifier}
}

type createUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

type createUserResponse struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

// Create handles POST /api/users. Token issuance belongs to an external auth
// service in production; handing one out here keeps local setups and tests
// self-contained.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" {
		writeError(w, http.StatusBadRequest, "username required")
		return
	}

	user := &model.User{
		ID:        uuid.New().String(),
		Username:  req.Username,
		Email:     req.Email,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.users.Create(r.Context(), user); err != nil {
		logger.Errorf("user create %s: %v", req.Username, err)
		writeError(w, http.StatusConflict, "could not create user")
		return
	}
	token, err := h.verifier.Sign(user.ID)
	if err != nil {
		logger.Errorf("user token %s: %v", user.ID, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusCreated, createUserResponse{User: user, Token: token})
}
