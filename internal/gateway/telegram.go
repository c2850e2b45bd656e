package gateway

import (
	"context"
	"fmt"
	"log"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// telegramLimit stays under Telegram's 4096 character message cap.
const telegramLimit = 4000

type TelegramGateway struct {
	Bot   *tgbotapi.BotAPI
	Relay *Relay

	ctx    context.Context
	cancel context.CancelFunc
}

func NewTelegramGateway(token string, relay *Relay) (*TelegramGateway, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	log.Printf("Authorized on account %s", bot.Self.UserName)

	ctx, cancel := context.WithCancel(context.Background())
	return &TelegramGateway{
		Bot:    bot,
		Relay:  relay,
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

func (tg *TelegramGateway) Start() error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := tg.Bot.GetUpdatesChan(u)

	for update := range updates {
		if update.Message == nil || update.Message.Text == "" {
			continue
		}

		log.Printf("[%s] %s", senderName(update.Message), update.Message.Text)
		tg.Relay.Logger.LogGateway("telegram", strconv.FormatInt(update.Message.Chat.ID, 10), update.Message.Text)

		go tg.handle(update.Message.Chat.ID, update.Message.Text)
	}
	return nil
}

// senderName is empty for channel posts, which carry no From.
func senderName(m *tgbotapi.Message) string {
	if m.From == nil {
		return ""
	}
	return m.From.UserName
}

func (tg *TelegramGateway) handle(chatID int64, text string) {
	userID := fmt.Sprintf("telegram:%d", chatID)
	err := tg.Relay.Handle(tg.ctx, userID, text, telegramLimit, func(msg string) error {
		return tg.Send(strconv.FormatInt(chatID, 10), msg)
	})
	if err != nil {
		log.Printf("telegram relay for %d failed: %v", chatID, err)
	}
}

func (tg *TelegramGateway) Send(chatID string, text string) error {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil || id == 0 {
		return fmt.Errorf("invalid chat ID: %s", chatID)
	}

	msg := tgbotapi.NewMessage(id, text)
	_, err = tg.Bot.Send(msg)
	return err
}

func (tg *TelegramGateway) Stop() error {
	tg.cancel()
	tg.Bot.StopReceivingUpdates()
	return nil
}
