package media_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chamber/internal/media"
	"github.com/chamber/internal/model"
)

func TestSplit(t *testing.T) {
	frame := append([]byte(`{"message_type":"media","media_type":"image"}`), media.Delimiter...)
	payload := []byte{0x01, 0x02, 0x03}
	frame = append(frame, payload...)

	meta, got, err := media.Split(frame)
	require.NoError(t, err)
	assert.Equal(t, "media", meta.MessageType)
	assert.Equal(t, "image", meta.MediaType)
	assert.Equal(t, payload, got)
}

func TestSplit_FirstDelimiterWins(t *testing.T) {
	// Payload bytes may validly contain the delimiter sequence again.
	payload := append([]byte("before"), media.Delimiter...)
	payload = append(payload, []byte("after")...)
	frame := append([]byte(`{"message_type":"media","media_type":"audio"}`), media.Delimiter...)
	frame = append(frame, payload...)

	_, got, err := media.Split(frame)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestSplit_NoDelimiter(t *testing.T) {
	_, _, err := media.Split([]byte(`{"message_type":"media"}payload`))
	assert.ErrorIs(t, err, media.ErrNoDelimiter)
}

func TestSplit_BadMetadata(t *testing.T) {
	frame := append([]byte(`not-json`), media.Delimiter...)
	frame = append(frame, []byte("payload")...)
	_, _, err := media.Split(frame)
	assert.ErrorIs(t, err, media.ErrBadMetadata)
}

func TestClassify(t *testing.T) {
	for declared, want := range map[string]model.MessageType{
		"image": model.MessageTypeImage,
		"audio": model.MessageTypeAudio,
		"video": model.MessageTypeVideo,
	} {
		kind, err := media.Classify(declared)
		require.NoError(t, err)
		assert.Equal(t, want, kind)
	}

	_, err := media.Classify("gif")
	assert.ErrorIs(t, err, media.ErrUnknownMediaType)
	_, err = media.Classify("")
	assert.ErrorIs(t, err, media.ErrUnknownMediaType)
}

func TestRandomFilename(t *testing.T) {
	name := media.RandomFilename(model.MessageTypeImage)
	assert.True(t, strings.HasPrefix(name, "media_"))
	assert.True(t, strings.HasSuffix(name, ".png"))

	assert.True(t, strings.HasSuffix(media.RandomFilename(model.MessageTypeAudio), ".wav"))
	assert.True(t, strings.HasSuffix(media.RandomFilename(model.MessageTypeVideo), ".mp4"))
}
