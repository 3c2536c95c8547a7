package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chamber/internal/logger"
	"github.com/chamber/internal/model"
)

// msgCols is the column list shared by all message SELECTs; sender_name is
// joined from users for reply previews and history.
const msgCols = `m.id, m.chamber_id, m.sender_id, m.message_type, m.state,
	COALESCE(m.text_content,''), COALESCE(m.image_content,''), COALESCE(m.audio_content,''), COALESCE(m.video_content,''),
	m.is_reply, m.previous_message_content, m.previous_message_id, m.previous_sender,
	m.created_at, m.updated_at, u.username`

type MessageRepository struct {
	pool *pgxpool.Pool
}

func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

func scanMessage(s interface{ Scan(dest ...any) error }, m *model.Message) error {
	return s.Scan(&m.ID, &m.ChamberID, &m.SenderID, &m.MessageType, &m.State,
		&m.TextContent, &m.ImageContent, &m.AudioContent, &m.VideoContent,
		&m.IsReply, &m.PreviousMessageContent, &m.PreviousMessageID, &m.PreviousSender,
		&m.CreatedAt, &m.UpdatedAt, &m.SenderName)
}

// CreateText appends a TEXT message and returns it with id and timestamps set.
func (r *MessageRepository) CreateText(ctx context.Context, senderID, chamberID, content string) (*model.Message, error) {
	defer logger.DeferLogDuration("msg.CreateText", time.Now())()
	m := &model.Message{
		ID:          uuid.New().String(),
		ChamberID:   chamberID,
		SenderID:    senderID,
		MessageType: model.MessageTypeText,
		State:       model.MessageStateFinal,
		TextContent: content,
		CreatedAt:   time.Now().UTC(),
	}
	m.UpdatedAt = m.CreatedAt
	_, err := r.pool.Exec(ctx,
		`INSERT INTO messages (id, chamber_id, sender_id, message_type, state, text_content, is_reply, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, false, $7, $7)`,
		m.ID, m.ChamberID, m.SenderID, m.MessageType, m.State, m.TextContent, m.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("msgRepo.CreateText: %w", err)
	}
	return m, nil
}

// CreateReply appends a reply carrying the snapshot of the replied-to
// message. For text replies kind is TXT and content holds the reply text;
// for media replies kind is the media kind, the row starts pending and the
// content slot is written by FinalizeMedia.
func (r *MessageRepository) CreateReply(ctx context.Context, senderID, chamberID string, kind model.MessageType, content string, prevID, prevSender, prevContent string) (*model.Message, error) {
	defer logger.DeferLogDuration("msg.CreateReply", time.Now())()
	state := model.MessageStateFinal
	text := content
	if kind != model.MessageTypeText {
		state = model.MessageStatePending
		text = ""
	}
	m := &model.Message{
		ID:                     uuid.New().String(),
		ChamberID:              chamberID,
		SenderID:               senderID,
		MessageType:            kind,
		State:                  state,
		TextContent:            text,
		IsReply:                true,
		PreviousMessageID:      &prevID,
		PreviousSender:         &prevSender,
		PreviousMessageContent: &prevContent,
		CreatedAt:              time.Now().UTC(),
	}
	m.UpdatedAt = m.CreatedAt
	_, err := r.pool.Exec(ctx,
		`INSERT INTO messages (id, chamber_id, sender_id, message_type, state, text_content, is_reply,
		                       previous_message_content, previous_message_id, previous_sender, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, true, $7, $8, $9, $10, $10)`,
		m.ID, m.ChamberID, m.SenderID, m.MessageType, m.State, m.TextContent,
		prevContent, prevID, prevSender, m.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("msgRepo.CreateReply: %w", err)
	}
	return m, nil
}

// CreateMediaPlaceholder is phase one of the two-phase media write: the row
// exists with its kind but no content, so broadcasts can carry a real id and
// timestamp before the payload hits storage.
func (r *MessageRepository) CreateMediaPlaceholder(ctx context.Context, senderID, chamberID string, kind model.MessageType) (*model.Message, error) {
	defer logger.DeferLogDuration("msg.CreateMediaPlaceholder", time.Now())()
	m := &model.Message{
		ID:          uuid.New().String(),
		ChamberID:   chamberID,
		SenderID:    senderID,
		MessageType: kind,
		State:       model.MessageStatePending,
		CreatedAt:   time.Now().UTC(),
	}
	m.UpdatedAt = m.CreatedAt
	_, err := r.pool.Exec(ctx,
		`INSERT INTO messages (id, chamber_id, sender_id, message_type, state, is_reply, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, false, $6, $6)`,
		m.ID, m.ChamberID, m.SenderID, m.MessageType, m.State, m.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("msgRepo.CreateMediaPlaceholder: %w", err)
	}
	return m, nil
}

// FinalizeMedia is phase two: it writes kind and the stored blob path into
// the matching content slot in one statement and flips the row to final.
func (r *MessageRepository) FinalizeMedia(ctx context.Context, id string, kind model.MessageType, contentPath string) error {
	defer logger.DeferLogDuration("msg.FinalizeMedia", time.Now())()
	var slot string
	switch kind {
	case model.MessageTypeImage:
		slot = "image_content"
	case model.MessageTypeAudio:
		slot = "audio_content"
	case model.MessageTypeVideo:
		slot = "video_content"
	default:
		return fmt.Errorf("msgRepo.FinalizeMedia: kind %q has no content slot", kind)
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE messages SET message_type = $1, `+slot+` = $2, state = $3, updated_at = $4 WHERE id = $5`,
		kind, contentPath, model.MessageStateFinal, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("msgRepo.FinalizeMedia: %w", err)
	}
	return nil
}

// GetByID resolves a message within one chamber; a matching id in another
// chamber is ErrNotFound, which keeps reply references chamber-scoped.
func (r *MessageRepository) GetByID(ctx context.Context, id, chamberID string) (*model.Message, error) {
	defer logger.DeferLogDuration("msg.GetByID", time.Now())()
	m := &model.Message{}
	row := r.pool.QueryRow(ctx,
		`SELECT `+msgCols+`
		 FROM messages m
		 JOIN users u ON u.id = m.sender_id
		 WHERE m.id = $1 AND m.chamber_id = $2`, id, chamberID,
	)
	if err := scanMessage(row, m); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("msgRepo.GetByID: %w", err)
	}
	return m, nil
}

// ListByChamber returns history pages, newest first.
func (r *MessageRepository) ListByChamber(ctx context.Context, chamberID string, limit, offset int) ([]model.Message, error) {
	defer logger.DeferLogDuration("msg.ListByChamber", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT `+msgCols+`
		 FROM messages m
		 JOIN users u ON u.id = m.sender_id
		 WHERE m.chamber_id = $1
		 ORDER BY m.created_at DESC
		 LIMIT $2 OFFSET $3`, chamberID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("msgRepo.ListByChamber query: %w", err)
	}
	defer rows.Close()

	messages := make([]model.Message, 0, limit)
	for rows.Next() {
		var m model.Message
		if err := scanMessage(rows, &m); err != nil {
			return nil, fmt.Errorf("msgRepo.ListByChamber scan: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("msgRepo.ListByChamber rows: %w", err)
	}
	return messages, nil
}
