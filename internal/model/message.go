package model

import "time"

type MessageType string

const (
	MessageTypeText  MessageType = "TXT"
	MessageTypeImage MessageType = "IMG"
	MessageTypeAudio MessageType = "AUD"
	MessageTypeVideo MessageType = "VID"
)

// MessageState tracks the two-phase media write. Text messages and replies
// are final at creation; media rows are created pending (kind set, content
// empty) and finalized once the decoded payload has been stored. Finalize
// always writes kind and content together, never content alone.
type MessageState string

const (
	MessageStatePending MessageState = "pending"
	MessageStateFinal   MessageState = "final"
)

type Message struct {
	ID          string       `json:"id"`
	ChamberID   string       `json:"chamber"`
	SenderID    string       `json:"sender"`
	MessageType MessageType  `json:"message_type"`
	State       MessageState `json:"-"`
	TextContent string       `json:"text_content,omitempty"`

	// Exactly one of these is populated for media kinds; each holds the
	// stored blob path relative to the media dir.
	ImageContent string `json:"image_content,omitempty"`
	AudioContent string `json:"audio_content,omitempty"`
	VideoContent string `json:"video_content,omitempty"`

	// Reply snapshot. PreviousMessageContent is a point-in-time copy of the
	// replied-to message's display content and is never refreshed.
	IsReply                bool    `json:"is_reply"`
	PreviousMessageContent *string `json:"previous_message_content,omitempty"`
	PreviousMessageID      *string `json:"previous_message_id,omitempty"`
	PreviousSender         *string `json:"previous_sender,omitempty"`

	CreatedAt time.Time `json:"created"`
	UpdatedAt time.Time `json:"updated"`

	// SenderName is joined from users on reads; empty on writes.
	SenderName string `json:"sender_name,omitempty"`
}

// PreviewContent returns the normalized reply preview for this message:
// the literal kind name for media messages, the text verbatim for text.
func (m *Message) PreviewContent() string {
	switch m.MessageType {
	case MessageTypeImage:
		return "IMAGE"
	case MessageTypeAudio:
		return "AUDIO"
	case MessageTypeVideo:
		return "VIDEO"
	default:
		return m.TextContent
	}
}
