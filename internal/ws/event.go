package ws

import (
	"strings"
	"time"
)

type EventType string

const (
	EventMessage      EventType = "chat.message"
	EventReply        EventType = "chat.reply"
	EventTyping       EventType = "chat.typing"
	EventMedia        EventType = "chat.media"
	EventActive       EventType = "chat.active"
	EventNotification EventType = "chat.notification"
)

// ReplyFormat distinguishes text replies from media replies on the wire.
const (
	ReplyFormatText  = "text"
	ReplyFormatMedia = "media"
)

// Event is one outbound frame. Every event marshals to a flat JSON object
// whose "type" field carries the EventType discriminator.
type Event interface {
	Kind() EventType
}

// MessageEvent is broadcast for a persisted text message.
type MessageEvent struct {
	Type    EventType `json:"type"`
	ID      string    `json:"id"`
	Content string    `json:"content"`
	Sender  string    `json:"sender"`
	Created string    `json:"created"`
	Time    string    `json:"time"`
}

func (e MessageEvent) Kind() EventType { return e.Type }

// ReplyEvent is broadcast for text and media replies. The previous_* fields
// are the snapshot taken at creation time; Filename is set only for media.
type ReplyEvent struct {
	Type                   EventType `json:"type"`
	ReplyFormat            string    `json:"reply_format"`
	ID                     string    `json:"id"`
	Content                string    `json:"content"`
	Filename               string    `json:"filename,omitempty"`
	PreviousSender         string    `json:"previous_sender"`
	PreviousMessageContent string    `json:"previous_message_content"`
	PreviousMessageID      string    `json:"previous_message_id"`
	Sender                 string    `json:"sender"`
	Created                string    `json:"created"`
	Time                   string    `json:"time"`
}

func (e ReplyEvent) Kind() EventType { return e.Type }

// TypingEvent carries "<username> is typing..." or an empty content, which
// receivers interpret as "stopped typing". Never persisted.
type TypingEvent struct {
	Type     EventType `json:"type"`
	Username string    `json:"username"`
	Content  string    `json:"content"`
}

func (e TypingEvent) Kind() EventType { return e.Type }

// MediaEvent is broadcast for a fresh media message. Content is the base64
// payload so receivers render immediately, before the ledger row finalizes.
type MediaEvent struct {
	Type     EventType `json:"type"`
	ID       string    `json:"id"`
	Content  string    `json:"content"`
	Filename string    `json:"filename"`
	Sender   string    `json:"sender"`
	Created  string    `json:"created"`
	Time     string    `json:"time"`
}

func (e MediaEvent) Kind() EventType { return e.Type }

// ActiveEvent carries the chamber's current online member count.
type ActiveEvent struct {
	Type    EventType `json:"type"`
	Content int       `json:"content"`
}

func (e ActiveEvent) Kind() EventType { return e.Type }

// NotificationEvent carries administrative chamber notices, e.g.
// "<username> was added to the chat."
type NotificationEvent struct {
	Type    EventType `json:"type"`
	Content string    `json:"content"`
}

func (e NotificationEvent) Kind() EventType { return e.Type }

var meridiemReplacer = strings.NewReplacer("am", "a.m.", "pm", "p.m.")

// formatDate renders "Aug. 05, 2026".
func formatDate(t time.Time) string {
	return t.Format("Jan. 02, 2006")
}

// formatTime renders 12-hour clock with an a.m./p.m. marker: "2:30 p.m.".
func formatTime(t time.Time) string {
	return meridiemReplacer.Replace(t.Format("3:04 pm"))
}
