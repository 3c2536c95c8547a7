package ws

import (
	"encoding/json"
	"fmt"
)

// Inbound text-frame discriminators. Unknown values are an explicit case in
// the hub's dispatch and are dropped without closing the connection.
const (
	FrameMessage = "message"
	FrameReply   = "reply"
	FrameTyping  = "typing"
)

// TextFrame is what a client sends on the text channel.
type TextFrame struct {
	MessageType       string `json:"message_type"`
	Message           string `json:"message"`
	PreviousMessageID string `json:"previous_message_id,omitempty"`
}

func decodeTextFrame(raw []byte) (*TextFrame, error) {
	var frame TextFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return nil, fmt.Errorf("decode text frame: %w", err)
	}
	return &frame, nil
}
