package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/chamber/internal/logger"
	"github.com/chamber/internal/middleware"
	"github.com/chamber/internal/model"
	"github.com/chamber/internal/repository"
	"github.com/chamber/internal/ws"
)

type ChamberHandler struct {
	chambers *repository.ChamberRepository
	users    *repository.UserRepository
	messages *repository.MessageRepository
	hub      *ws.Hub
}

func NewChamberHandler(chambers *repository.ChamberRepository, users *repository.UserRepository, messages *repository.MessageRepository, hub *ws.Hub) *ChamberHandler {
	return &ChamberHandler{chambers: chambers, users: users, messages: messages, hub: hub}
}

type createChamberRequest struct {
	ChamberName string `json:"chamber_name"`
}

// Create handles POST /api/chambers. An empty chamber_name gets a random
// tag. The creator is privileged by creator_id, not by a row in the member
// set: membership stays explicit via AddMembers.
func (h *ChamberHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req createChamberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	chamber := &model.Chamber{
		ID:          uuid.New().String(),
		ChamberName: req.ChamberName,
		CreatorID:   userID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.chambers.Create(r.Context(), chamber); err != nil {
		logger.Errorf("chamber create: %v", err)
		writeError(w, http.StatusInternalServerError, "could not create chamber")
		return
	}
	writeJSON(w, http.StatusCreated, chamber)
}

// Get handles GET /api/chambers/{chamberID}, members and creator only.
func (h *ChamberHandler) Get(w http.ResponseWriter, r *http.Request) {
	chamber, ok := h.requireAccess(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, chamber)
}

type addMembersRequest struct {
	Usernames []string `json:"usernames"`
}

// AddMembers handles POST /api/chambers/{chamberID}/members. Each added
// username is announced to the chamber's live sessions right away, so the
// notification precedes any message the new member could send.
func (h *ChamberHandler) AddMembers(w http.ResponseWriter, r *http.Request) {
	chamber, ok := h.requireAccess(w, r)
	if !ok {
		return
	}
	chamberID := chamber.ID

	var req addMembersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Usernames) == 0 {
		writeError(w, http.StatusBadRequest, "usernames required")
		return
	}

	added := make([]string, 0, len(req.Usernames))
	for _, username := range req.Usernames {
		user, err := h.users.GetByUsername(r.Context(), username)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			logger.Errorf("member lookup %s: %v", username, err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		if err := h.chambers.AddMember(r.Context(), &model.ChamberMember{
			ChamberID: chamberID, UserID: user.ID, AddedAt: time.Now().UTC(),
		}); err != nil {
			logger.Errorf("member add %s: %v", username, err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		h.hub.Broadcast(chamberID, ws.NotificationEvent{
			Type:    ws.EventNotification,
			Content: user.Username + " was added to the chat.",
		})
		added = append(added, user.Username)
	}
	writeJSON(w, http.StatusOK, map[string]any{"added": added})
}

// Members handles GET /api/chambers/{chamberID}/members.
func (h *ChamberHandler) Members(w http.ResponseWriter, r *http.Request) {
	chamber, ok := h.requireAccess(w, r)
	if !ok {
		return
	}
	chamberID := chamber.ID
	users, err := h.chambers.Members(r.Context(), chamberID)
	if err != nil {
		logger.Errorf("chamber members %s: %v", chamberID, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// History handles GET /api/chambers/{chamberID}/messages?limit=&offset=,
// newest first.
func (h *ChamberHandler) History(w http.ResponseWriter, r *http.Request) {
	chamber, ok := h.requireAccess(w, r)
	if !ok {
		return
	}
	chamberID := chamber.ID

	limit := queryInt(r, "limit", 50)
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	messages, err := h.messages.ListByChamber(r.Context(), chamberID, limit, offset)
	if err != nil {
		logger.Errorf("chamber history %s: %v", chamberID, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

// requireAccess resolves the chamber and gates the request on membership.
// The creator is privileged without a row in the member set.
func (h *ChamberHandler) requireAccess(w http.ResponseWriter, r *http.Request) (*model.Chamber, bool) {
	chamberID := chi.URLParam(r, "chamberID")
	userID := middleware.GetUserID(r.Context())

	chamber, err := h.chambers.GetByID(r.Context(), chamberID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "chamber not found")
			return nil, false
		}
		logger.Errorf("chamber lookup %s: %v", chamberID, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return nil, false
	}
	if chamber.CreatorID == userID {
		return chamber, true
	}
	member, err := h.chambers.IsMember(r.Context(), chamberID, userID)
	if err != nil {
		logger.Errorf("membership check chamber=%s user=%s: %v", chamberID, userID, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return nil, false
	}
	if !member {
		writeError(w, http.StatusForbidden, "not a chamber member")
		return nil, false
	}
	return chamber, true
}
