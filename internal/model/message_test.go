package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chamber/internal/model"
)

func TestPreviewContent(t *testing.T) {
	cases := []struct {
		msg  model.Message
		want string
	}{
		{model.Message{MessageType: model.MessageTypeText, TextContent: "hello there"}, "hello there"},
		{model.Message{MessageType: model.MessageTypeText, TextContent: ""}, ""},
		{model.Message{MessageType: model.MessageTypeImage, TextContent: "ignored"}, "IMAGE"},
		{model.Message{MessageType: model.MessageTypeAudio}, "AUDIO"},
		{model.Message{MessageType: model.MessageTypeVideo}, "VIDEO"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.msg.PreviewContent())
	}
}
