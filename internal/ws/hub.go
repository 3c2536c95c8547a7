package ws

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"time"

	"github.com/chamber/internal/logger"
	"github.com/chamber/internal/media"
	"github.com/chamber/internal/model"
	"github.com/chamber/internal/presence"
	"github.com/chamber/internal/repository"
)

// Ledger is the message store the hub writes through. Implemented by
// repository.MessageRepository; mocked in tests.
type Ledger interface {
	CreateText(ctx context.Context, senderID, chamberID, content string) (*model.Message, error)
	CreateReply(ctx context.Context, senderID, chamberID string, kind model.MessageType, content string, prevID, prevSender, prevContent string) (*model.Message, error)
	CreateMediaPlaceholder(ctx context.Context, senderID, chamberID string, kind model.MessageType) (*model.Message, error)
	FinalizeMedia(ctx context.Context, id string, kind model.MessageType, contentPath string) error
	GetByID(ctx context.Context, id, chamberID string) (*model.Message, error)
}

// Roster answers membership queries for a chamber.
type Roster interface {
	MemberIDs(ctx context.Context, chamberID string) ([]string, error)
}

// BlobStore persists decoded media payloads; the returned path goes into the
// ledger row's content slot.
type BlobStore interface {
	Save(ctx context.Context, kind model.MessageType, filename string, data []byte) (string, error)
}

// PushNotifier sends push notifications. Nil disables pushes.
type PushNotifier interface {
	Notify(ctx context.Context, userID, title, body string, data map[string]string)
}

// Hub is the room registry: it maps chamber ids to live client sets and fans
// events out to them. It also owns the inbound frame handlers, so all ledger
// writes and broadcasts for a session flow through one place.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
	total int

	maxConns       int
	maxMessageSize int64

	ledger   Ledger
	roster   Roster
	presence presence.Store
	blobs    BlobStore
	push     PushNotifier

	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

func NewHub(ledger Ledger, roster Roster, pres presence.Store, blobs BlobStore, maxConns int, maxMessageSize int64, push PushNotifier) *Hub {
	if maxConns <= 0 {
		maxConns = 10000
	}
	if maxMessageSize <= 0 {
		maxMessageSize = 10 << 20
	}
	return &Hub{
		rooms:          make(map[string]map[*Client]struct{}),
		maxConns:       maxConns,
		maxMessageSize: maxMessageSize,
		ledger:         ledger,
		roster:         roster,
		presence:       pres,
		blobs:          blobs,
		push:           push,
		register:       make(chan *Client, 64),
		unregister:     make(chan *Client, 64),
		done:           make(chan struct{}),
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

func (h *Hub) shutdown() {
	// Collect all clients under the lock, do NOT perform I/O under mutex.
	h.mu.Lock()
	allClients := make([]*Client, 0, h.total)
	for _, clients := range h.rooms {
		for c := range clients {
			allClients = append(allClients, c)
		}
	}
	h.rooms = make(map[string]map[*Client]struct{})
	h.total = 0
	h.mu.Unlock()

	for _, c := range allClients {
		c.Close()
	}
	for _, c := range allClients {
		c.Wait()
	}
}

// addClient joins the session to its chamber's live set, flips presence
// online and broadcasts the recomputed online count to the whole chamber.
func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	if h.total >= h.maxConns {
		h.mu.Unlock()
		logger.Errorf("ws connection limit reached (%d), rejecting user=%s", h.maxConns, c.user.ID)
		c.Close()
		return
	}
	if _, ok := h.rooms[c.chamber.ID]; !ok {
		h.rooms[c.chamber.ID] = make(map[*Client]struct{})
	}
	h.rooms[c.chamber.ID][c] = struct{}{}
	h.total++
	h.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.presence.SetOnline(ctx, c.user.ID, true); err != nil {
		logger.Errorf("ws set online user=%s: %v", c.user.ID, err)
	}
	h.broadcastActive(ctx, c.chamber.ID)
}

// removeClient is the single cleanup path for any disconnect cause. The
// membership check makes it idempotent: a second invocation for the same
// client finds nothing to remove and flips no presence.
func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	clients, ok := h.rooms[c.chamber.ID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, exists := clients[c]; !exists {
		h.mu.Unlock()
		return
	}
	delete(clients, c)
	h.total--
	if len(clients) == 0 {
		delete(h.rooms, c.chamber.ID)
	}
	h.mu.Unlock()

	// Network I/O outside the lock.
	c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.presence.SetOnline(ctx, c.user.ID, false); err != nil {
		logger.Errorf("ws set offline user=%s: %v", c.user.ID, err)
	}
	h.broadcastActive(ctx, c.chamber.ID)
}

func (h *Hub) broadcastActive(ctx context.Context, chamberID string) {
	memberIDs, err := h.roster.MemberIDs(ctx, chamberID)
	if err != nil {
		logger.Errorf("ws member ids chamber=%s: %v", chamberID, err)
		return
	}
	count, err := h.presence.CountOnline(ctx, memberIDs)
	if err != nil {
		logger.Errorf("ws online count chamber=%s: %v", chamberID, err)
		return
	}
	h.Broadcast(chamberID, ActiveEvent{Type: EventActive, Content: count})
}

// HandleText dispatches an inbound text frame. Unknown discriminators are
// dropped and the connection stays open.
func (h *Hub) HandleText(ctx context.Context, c *Client, raw []byte) {
	frame, err := decodeTextFrame(raw)
	if err != nil {
		logger.Errorf("ws decode frame user=%s: %v", c.user.ID, err)
		return
	}
	switch frame.MessageType {
	case FrameMessage:
		h.handleMessage(ctx, c, frame)
	case FrameTyping:
		h.handleTyping(c, frame)
	case FrameReply:
		h.handleReply(ctx, c, frame)
	default:
		logger.Errorf("ws unknown message_type %q user=%s", frame.MessageType, c.user.ID)
	}
}

func (h *Hub) handleMessage(ctx context.Context, c *Client, frame *TextFrame) {
	defer logger.DeferLogDuration("ws.handleMessage", time.Now())()
	if frame.Message == "" {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	m, err := h.ledger.CreateText(ctx, c.user.ID, c.chamber.ID, frame.Message)
	if err != nil {
		logger.Errorf("ws save message chamber=%s user=%s: %v", c.chamber.ID, c.user.ID, err)
		return
	}
	h.Broadcast(c.chamber.ID, MessageEvent{
		Type:    EventMessage,
		ID:      m.ID,
		Content: frame.Message,
		Sender:  c.user.Username,
		Created: formatDate(m.CreatedAt),
		Time:    formatTime(m.CreatedAt),
	})
	h.notifyMembers(c, frame.Message)
}

func (h *Hub) handleReply(ctx context.Context, c *Client, frame *TextFrame) {
	defer logger.DeferLogDuration("ws.handleReply", time.Now())()
	if frame.Message == "" || frame.PreviousMessageID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	prev, err := h.ledger.GetByID(ctx, frame.PreviousMessageID, c.chamber.ID)
	if err != nil {
		// Unresolved reference: drop the reply, no broadcast, stay connected.
		if !errors.Is(err, repository.ErrNotFound) {
			logger.Errorf("ws reply lookup chamber=%s: %v", c.chamber.ID, err)
		}
		return
	}
	preview := prev.PreviewContent()
	reply, err := h.ledger.CreateReply(ctx, c.user.ID, c.chamber.ID, model.MessageTypeText, frame.Message,
		prev.ID, prev.SenderName, preview)
	if err != nil {
		logger.Errorf("ws save reply chamber=%s user=%s: %v", c.chamber.ID, c.user.ID, err)
		return
	}
	h.Broadcast(c.chamber.ID, ReplyEvent{
		Type:                   EventReply,
		ReplyFormat:            ReplyFormatText,
		ID:                     reply.ID,
		Content:                frame.Message,
		PreviousSender:         prev.SenderName,
		PreviousMessageContent: preview,
		PreviousMessageID:      prev.ID,
		Sender:                 c.user.Username,
		Created:                formatDate(reply.CreatedAt),
		Time:                   formatTime(reply.CreatedAt),
	})
	h.notifyMembers(c, frame.Message)
}

func (h *Hub) handleTyping(c *Client, frame *TextFrame) {
	content := ""
	if frame.Message == "typing" {
		content = c.user.Username + " is typing..."
	}
	h.Broadcast(c.chamber.ID, TypingEvent{
		Type:     EventTyping,
		Username: c.user.Username,
		Content:  content,
	})
}

// HandleBinary runs the media ingest pipeline on a joined metadata+payload
// frame. Every malformed-frame path drops silently per the error design:
// no broadcast, nothing persisted, connection stays open.
func (h *Hub) HandleBinary(ctx context.Context, c *Client, raw []byte) {
	defer logger.DeferLogDuration("ws.handleBinary", time.Now())()
	meta, payload, err := media.Split(raw)
	if err != nil {
		logger.Errorf("ws binary frame user=%s: %v", c.user.ID, err)
		return
	}
	kind, err := media.Classify(meta.MediaType)
	if err != nil {
		logger.Errorf("ws binary frame user=%s: %v", c.user.ID, err)
		return
	}
	filename := media.RandomFilename(kind)
	encoded := base64.StdEncoding.EncodeToString(payload)

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if meta.MessageType != FrameReply {
		m, err := h.ledger.CreateMediaPlaceholder(ctx, c.user.ID, c.chamber.ID, kind)
		if err != nil {
			logger.Errorf("ws save media chamber=%s user=%s: %v", c.chamber.ID, c.user.ID, err)
			return
		}
		h.Broadcast(c.chamber.ID, MediaEvent{
			Type:     EventMedia,
			ID:       m.ID,
			Content:  encoded,
			Filename: filename,
			Sender:   c.user.Username,
			Created:  formatDate(m.CreatedAt),
			Time:     formatTime(m.CreatedAt),
		})
		h.finalizeMedia(ctx, m.ID, kind, filename, payload)
		h.notifyMembers(c, "Sent "+meta.MediaType)
		return
	}

	if meta.PreviousMessageID == "" {
		return
	}
	prev, err := h.ledger.GetByID(ctx, meta.PreviousMessageID, c.chamber.ID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			logger.Errorf("ws media reply lookup chamber=%s: %v", c.chamber.ID, err)
		}
		return
	}
	preview := prev.PreviewContent()
	reply, err := h.ledger.CreateReply(ctx, c.user.ID, c.chamber.ID, kind, "", prev.ID, prev.SenderName, preview)
	if err != nil {
		logger.Errorf("ws save media reply chamber=%s user=%s: %v", c.chamber.ID, c.user.ID, err)
		return
	}
	h.Broadcast(c.chamber.ID, ReplyEvent{
		Type:                   EventReply,
		ReplyFormat:            ReplyFormatMedia,
		ID:                     reply.ID,
		Content:                encoded,
		Filename:               filename,
		PreviousSender:         prev.SenderName,
		PreviousMessageContent: preview,
		PreviousMessageID:      prev.ID,
		Sender:                 c.user.Username,
		Created:                formatDate(reply.CreatedAt),
		Time:                   formatTime(reply.CreatedAt),
	})
	h.finalizeMedia(ctx, reply.ID, kind, filename, payload)
	h.notifyMembers(c, "Sent "+meta.MediaType)
}

// finalizeMedia is phase two of the media write: store the payload and make
// the ledger row authoritative. Receivers already got the payload in the
// broadcast, so a failure here only affects later history queries.
func (h *Hub) finalizeMedia(ctx context.Context, id string, kind model.MessageType, filename string, payload []byte) {
	path, err := h.blobs.Save(ctx, kind, filename, payload)
	if err != nil {
		logger.Errorf("ws store media %s: %v", id, err)
		return
	}
	if err := h.ledger.FinalizeMedia(ctx, id, kind, path); err != nil {
		logger.Errorf("ws finalize media %s: %v", id, err)
	}
}

// notifyMembers pushes a preview to every chamber member except the sender.
func (h *Hub) notifyMembers(c *Client, body string) {
	if h.push == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	memberIDs, err := h.roster.MemberIDs(ctx, c.chamber.ID)
	if err != nil {
		logger.Errorf("ws push members chamber=%s: %v", c.chamber.ID, err)
		return
	}
	if len(body) > 120 {
		body = body[:117] + "..."
	}
	data := map[string]string{"chamber_id": c.chamber.ID}
	for _, uid := range memberIDs {
		if uid != c.user.ID {
			uid := uid
			go h.push.Notify(context.Background(), uid, c.user.Username, body, data)
		}
	}
}

// Broadcast delivers an event to every session currently joined to the
// chamber, the originator included. A chamber with no live sessions is a
// no-op, not an error.
func (h *Hub) Broadcast(chamberID string, ev Event) {
	h.mu.RLock()
	clients, ok := h.rooms[chamberID]
	if !ok {
		h.mu.RUnlock()
		return
	}
	targets := make([]*Client, 0, len(clients))
	for c := range clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.sendToClient(c, ev)
	}
}

func (h *Hub) sendToClient(c *Client, ev Event) {
	select {
	case c.send <- ev:
	case <-c.done:
	default:
		// Backpressure: send buffer full, close slow client.
		logger.Errorf("ws send buffer full, closing slow client user=%s", c.user.ID)
		c.Close()
	}
}

func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		c.Close()
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
