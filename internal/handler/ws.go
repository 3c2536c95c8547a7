package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/chamber/internal/auth"
	"github.com/chamber/internal/logger"
	"github.com/chamber/internal/model"
	"github.com/chamber/internal/repository"
	"github.com/chamber/internal/ws"
)

// closeNotMember is sent after the handshake when an authenticated user is
// not a member of the chamber. A pre-upgrade HTTP status would not reach
// browser javascript, the close code does.
const closeNotMember = 4001

// ChamberGate answers the two questions the connect sequence asks: does the
// chamber exist, and is this user a member of it.
type ChamberGate interface {
	GetByID(ctx context.Context, id string) (*model.Chamber, error)
	IsMember(ctx context.Context, chamberID, userID string) (bool, error)
}

type WSHandler struct {
	hub            *ws.Hub
	verifier       *auth.Verifier
	chambers       ChamberGate
	allowedOrigins string
}

// NewWSHandler builds the websocket entry point. allowedOrigins matches the
// CORS setting (comma separated, or "*").
func NewWSHandler(hub *ws.Hub, verifier *auth.Verifier, chambers ChamberGate, allowedOrigins string) *WSHandler {
	return &WSHandler{hub: hub, verifier: verifier, chambers: chambers, allowedOrigins: strings.TrimSpace(allowedOrigins)}
}

func (h *WSHandler) checkOrigin(r *http.Request) bool {
	if h.allowedOrigins == "*" || h.allowedOrigins == "" {
		return true
	}
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	for _, o := range strings.Split(h.allowedOrigins, ",") {
		if strings.TrimSpace(o) == origin {
			return true
		}
	}
	return false
}

// ServeWS runs the connect sequence for GET /ws/chambers/{chamberID}:
// chamber lookup and authentication fail before the upgrade (404/401),
// the membership gate fails after it with close code 4001.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	chamberID := chi.URLParam(r, "chamberID")
	chamber, err := h.chambers.GetByID(r.Context(), chamberID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "chamber not found")
		} else {
			logger.Errorf("ws chamber lookup %s: %v", chamberID, err)
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	user, err := h.verifier.Authenticate(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if !h.checkOrigin(r) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	member, err := h.chambers.IsMember(r.Context(), chamber.ID, user.ID)
	if err != nil {
		logger.Errorf("ws membership check chamber=%s user=%s: %v", chamber.ID, user.ID, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	// The creator is a member in all but the stored set.
	if chamber.CreatorID == user.ID {
		member = true
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return h.checkOrigin(r) },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Errorf("ws upgrade: %v", err)
		return
	}

	if !member {
		msg := websocket.FormatCloseMessage(closeNotMember, "not a chamber member")
		if err := conn.WriteMessage(websocket.CloseMessage, msg); err != nil {
			logger.Errorf("ws close 4001 user=%s: %v", user.ID, err)
		}
		conn.Close()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := ws.NewClient(h.hub, conn, user, chamber)
	client.Start(ctx, cancel)
	h.hub.Register(client)
}
