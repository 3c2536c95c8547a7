// Package media implements the binary-frame ingest pipeline: splitting the
// joined metadata+payload buffer, classifying the declared media type and
// generating stored filenames.
package media

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/chamber/internal/model"
)

// Delimiter joins the JSON metadata header and the raw payload inside one
// binary frame. The first occurrence is the split point; payload bytes past
// it may validly contain the sequence again.
var Delimiter = []byte("<delimiter>")

var (
	ErrNoDelimiter      = errors.New("media: frame has no delimiter")
	ErrBadMetadata      = errors.New("media: unparseable metadata")
	ErrUnknownMediaType = errors.New("media: unknown media type")
)

// Metadata is the JSON header of a binary frame.
type Metadata struct {
	MessageType       string `json:"message_type"`
	MediaType         string `json:"media_type"`
	PreviousMessageID string `json:"previous_message_id,omitempty"`
}

// Split separates a binary frame into parsed metadata and the raw payload.
// A frame without the delimiter or with malformed metadata is dropped by the
// caller; nothing is persisted for it.
func Split(frame []byte) (*Metadata, []byte, error) {
	idx := bytes.Index(frame, Delimiter)
	if idx < 0 {
		return nil, nil, ErrNoDelimiter
	}
	header := frame[:idx]
	payload := frame[idx+len(Delimiter):]

	meta := &Metadata{}
	if err := json.Unmarshal(header, meta); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrBadMetadata, err)
	}
	return meta, payload, nil
}

// Classify maps a declared media_type onto the closed message-kind set.
// Anything outside {image, audio, video} is a client error.
func Classify(mediaType string) (model.MessageType, error) {
	switch mediaType {
	case "image":
		return model.MessageTypeImage, nil
	case "audio":
		return model.MessageTypeAudio, nil
	case "video":
		return model.MessageTypeVideo, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMediaType, mediaType)
	}
}

// Extension returns the fixed file extension for a classified media kind.
func Extension(kind model.MessageType) string {
	switch kind {
	case model.MessageTypeImage:
		return "png"
	case model.MessageTypeAudio:
		return "wav"
	case model.MessageTypeVideo:
		return "mp4"
	default:
		return "bin"
	}
}

// RandomFilename builds media_<millis>_<rand>.<ext>. Collision-resistant for
// practical chat volumes; uniqueness is not guaranteed and a collision on
// simultaneous sends is an accepted risk.
func RandomFilename(kind model.MessageType) string {
	timestamp := time.Now().UnixMilli()
	return fmt.Sprintf("media_%d_%d.%s", timestamp, rand.Intn(1000000), Extension(kind))
}
