package gateway

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
)

func TestSenderName(t *testing.T) {
	assert.Equal(t, "", senderName(&tgbotapi.Message{Text: "channel post"}))
	assert.Equal(t, "ada", senderName(&tgbotapi.Message{From: &tgbotapi.User{UserName: "ada"}}))
}
