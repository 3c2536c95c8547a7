package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chamber/internal/auth"
	"github.com/chamber/internal/handler"
	"github.com/chamber/internal/model"
	"github.com/chamber/internal/presence"
	"github.com/chamber/internal/repository"
	"github.com/chamber/internal/ws"
)

type stubUsers struct {
	byID map[string]*model.User
}

func (s *stubUsers) GetByID(ctx context.Context, id string) (*model.User, error) {
	if u, ok := s.byID[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

type stubGate struct {
	chambers map[string]*model.Chamber
	members  map[string]bool // chamberID+":"+userID
}

func (s *stubGate) GetByID(ctx context.Context, id string) (*model.Chamber, error) {
	if c, ok := s.chambers[id]; ok {
		return c, nil
	}
	return nil, repository.ErrNotFound
}

func (s *stubGate) IsMember(ctx context.Context, chamberID, userID string) (bool, error) {
	return s.members[chamberID+":"+userID], nil
}

type stubLedger struct{}

func (stubLedger) CreateText(ctx context.Context, senderID, chamberID, content string) (*model.Message, error) {
	return &model.Message{ID: "m", CreatedAt: time.Now()}, nil
}
func (stubLedger) CreateReply(ctx context.Context, senderID, chamberID string, kind model.MessageType, content string, prevID, prevSender, prevContent string) (*model.Message, error) {
	return &model.Message{ID: "m", CreatedAt: time.Now()}, nil
}
func (stubLedger) CreateMediaPlaceholder(ctx context.Context, senderID, chamberID string, kind model.MessageType) (*model.Message, error) {
	return &model.Message{ID: "m", CreatedAt: time.Now()}, nil
}
func (stubLedger) FinalizeMedia(ctx context.Context, id string, kind model.MessageType, contentPath string) error {
	return nil
}
func (stubLedger) GetByID(ctx context.Context, id, chamberID string) (*model.Message, error) {
	return nil, repository.ErrNotFound
}

type stubRoster struct{ ids []string }

func (s *stubRoster) MemberIDs(ctx context.Context, chamberID string) ([]string, error) {
	return s.ids, nil
}

type stubBlobs struct{}

func (stubBlobs) Save(ctx context.Context, kind model.MessageType, filename string, data []byte) (string, error) {
	return "images/" + filename, nil
}

func newWSTestServer(t *testing.T) (*httptest.Server, *auth.Verifier) {
	t.Helper()
	alice := &model.User{ID: "u-alice", Username: "alice"}
	mallory := &model.User{ID: "u-mallory", Username: "mallory"}
	users := &stubUsers{byID: map[string]*model.User{alice.ID: alice, mallory.ID: mallory}}
	gate := &stubGate{
		chambers: map[string]*model.Chamber{"ch-1": {ID: "ch-1", ChamberName: "test"}},
		members:  map[string]bool{"ch-1:u-alice": true},
	}
	verifier := auth.NewVerifier("test-secret", users)

	hub := ws.NewHub(stubLedger{}, &stubRoster{ids: []string{alice.ID}}, presence.NewMemory(), stubBlobs{}, 10, 1<<20, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		hub.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	wsH := handler.NewWSHandler(hub, verifier, gate, "*")
	r := chi.NewRouter()
	r.Get("/ws/chambers/{chamberID}", wsH.ServeWS)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, verifier
}

func wsURL(srv *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + path
}

func TestServeWS_UnknownChamber(t *testing.T) {
	srv, verifier := newWSTestServer(t)
	token, err := verifier.Sign("u-alice")
	require.NoError(t, err)

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/chambers/ch-nope?token="+token), nil)
	require.Error(t, err)
	require.Nil(t, conn)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServeWS_NoCredentials(t *testing.T) {
	srv, _ := newWSTestServer(t)

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/chambers/ch-1"), nil)
	require.Error(t, err)
	require.Nil(t, conn)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServeWS_NonMemberGetsCloseCode(t *testing.T) {
	srv, verifier := newWSTestServer(t)
	token, err := verifier.Sign("u-mallory")
	require.NoError(t, err)

	// Authenticated but not a member: the handshake completes and the gate
	// answers with an application close code instead of an HTTP status.
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/chambers/ch-1?token="+token), nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, 4001), "expected close code 4001, got %v", err)
}

func TestServeWS_MemberJoins(t *testing.T) {
	srv, verifier := newWSTestServer(t)
	token, err := verifier.Sign("u-alice")
	require.NoError(t, err)

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/chambers/ch-1?token="+token), nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev map[string]any
	require.NoError(t, json.Unmarshal(raw, &ev))
	assert.Equal(t, "chat.active", ev["type"])
	assert.Equal(t, float64(1), ev["content"])
}
