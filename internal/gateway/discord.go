package gateway

import (
	"context"
	"log"

	"github.com/bwmarrin/discordgo"
)

// discordLimit stays under Discord's 2000 character message cap.
const discordLimit = 1900

type DiscordGateway struct {
	Session *discordgo.Session
	Relay   *Relay

	ctx    context.Context
	cancel context.CancelFunc
}

func NewDiscordGateway(token string, relay *Relay) (*DiscordGateway, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	s.Identify.Intents = discordgo.IntentGuildMessages | discordgo.IntentDirectMessages | discordgo.IntentMessageContent

	ctx, cancel := context.WithCancel(context.Background())
	dg := &DiscordGateway{Session: s, Relay: relay, ctx: ctx, cancel: cancel}
	s.AddHandler(dg.onMessage)
	return dg, nil
}

func (dg *DiscordGateway) Start() error {
	if err := dg.Session.Open(); err != nil {
		return err
	}
	log.Println("Discord gateway connected")
	<-dg.ctx.Done()
	return nil
}

func (dg *DiscordGateway) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.Content == "" {
		return
	}
	dg.Relay.Logger.LogGateway("discord", m.ChannelID, m.Content)

	go func() {
		err := dg.Relay.Handle(dg.ctx, "discord:"+m.Author.ID, m.Content, discordLimit, func(msg string) error {
			return dg.Send(m.ChannelID, msg)
		})
		if err != nil {
			log.Printf("discord relay for channel %s failed: %v", m.ChannelID, err)
		}
	}()
}

func (dg *DiscordGateway) Send(chatID string, text string) error {
	_, err := dg.Session.ChannelMessageSend(chatID, text)
	return err
}

func (dg *DiscordGateway) Stop() error {
	dg.cancel()
	return dg.Session.Close()
}
