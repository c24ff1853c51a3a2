// Package discord lets the operator ask for suggestions over Discord DMs and
// carries outbound notifications.
package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/charmbracelet/log"

	"github.com/chris/wingman/internal/db"
	"github.com/chris/wingman/internal/ingest"
)

type Bot struct {
	session *discordgo.Session
	ctrl    *ingest.Controller
	db      *db.DB
	logger  *log.Logger
}

func NewBot(token string, ctrl *ingest.Controller, database *db.DB, logger *log.Logger) (*Bot, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("creating Discord session: %w", err)
	}

	bot := &Bot{session: s, ctrl: ctrl, db: database, logger: logger}
	s.AddHandler(bot.onMessage)
	s.Identify.Intents = discordgo.IntentsDirectMessages | discordgo.IntentsGuildMessages

	if err := s.Open(); err != nil {
		return nil, fmt.Errorf("opening Discord connection: %w", err)
	}

	logger.Info("Discord bot connected", "user", s.State.User.Username)
	return bot, nil
}

// SendDM opens (or reuses) the DM channel with userID and posts content,
// split to Discord's message limit.
func (b *Bot) SendDM(userID, content string) error {
	ch, err := b.session.UserChannelCreate(userID)
	if err != nil {
		return fmt.Errorf("opening DM channel: %w", err)
	}
	for _, chunk := range splitMessage(content, maxMessageLen) {
		if _, err := b.session.ChannelMessageSend(ch.ID, chunk); err != nil {
			return fmt.Errorf("sending DM: %w", err)
		}
	}
	return nil
}

func (b *Bot) Close() {
	b.session.Close()
}
