package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/chris/wingman/internal/db"
	"github.com/chris/wingman/internal/llm"
	"github.com/chris/wingman/internal/notify"
	"github.com/chris/wingman/internal/profile"
)

const maxMessageLen = 2000

const helpText = "Send `<profile-id>: <their message>` and I'll suggest three replies.\n" +
	"`profiles` lists who I know about."

func (b *Bot) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	// Ignore own messages
	if m.Author.ID == s.State.User.ID {
		return
	}

	// Only respond to DMs or when mentioned
	isDM := m.GuildID == ""
	isMentioned := false
	for _, u := range m.Mentions {
		if u.ID == s.State.User.ID {
			isMentioned = true
			break
		}
	}
	if !isDM && !isMentioned {
		return
	}

	if isDM {
		if err := b.db.SetSetting(notify.DMUserSetting, m.Author.ID); err != nil {
			b.logger.Warn("recording DM user", "err", err)
		}
	}

	content := strings.TrimSpace(stripMention(m.Content, s.State.User.ID))
	if content == "" {
		return
	}

	s.ChannelTyping(m.ChannelID)

	reply := b.respond(context.Background(), content)
	for _, chunk := range splitMessage(reply, maxMessageLen) {
		if _, err := s.ChannelMessageSend(m.ChannelID, chunk); err != nil {
			b.logger.Error("sending reply", "channel", m.ChannelID, "err", err)
			return
		}
	}
}

// respond answers one operator command.
func (b *Bot) respond(ctx context.Context, content string) string {
	if strings.EqualFold(content, "profiles") {
		return b.listProfiles()
	}
	id, message, ok := parseCommand(content)
	if !ok {
		return helpText
	}

	p, err := b.db.GetProfile(id)
	if errors.Is(err, db.ErrNotFound) {
		return fmt.Sprintf("I don't know a profile called %q. Try `profiles`.", id)
	}
	if err != nil {
		b.logger.Error("loading profile", "profile", id, "err", err)
		return "Something went wrong. Try again?"
	}

	replies, err := b.ctrl.SuggestReplies(ctx, id, message, profile.PromptContext{})
	if errors.Is(err, llm.ErrNotConfigured) {
		return "No LLM provider is configured, so I can't suggest anything yet."
	}
	if err != nil {
		b.logger.Error("suggesting replies", "profile", id, "err", err)
		return "Something went wrong. Try again?"
	}
	return notify.FormatSuggestions(p.Name, message, replies)
}

func (b *Bot) listProfiles() string {
	profiles, err := b.db.ListProfiles()
	if err != nil {
		b.logger.Error("listing profiles", "err", err)
		return "Something went wrong. Try again?"
	}
	if len(profiles) == 0 {
		return "No profiles yet."
	}
	var sb strings.Builder
	for _, p := range profiles {
		fmt.Fprintf(&sb, "`%s` %s (%d messages)\n", p.ID, p.Name, len(p.PreviousMessages))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// parseCommand splits "<profile-id>: <message>". The id may not contain
// whitespace.
func parseCommand(s string) (id, message string, ok bool) {
	idx := strings.Index(s, ":")
	if idx <= 0 {
		return "", "", false
	}
	id = strings.TrimSpace(s[:idx])
	message = strings.TrimSpace(s[idx+1:])
	if id == "" || message == "" || strings.ContainsAny(id, " \t\n") {
		return "", "", false
	}
	return id, message, true
}

func stripMention(s, userID string) string {
	s = strings.ReplaceAll(s, "<@"+userID+">", "")
	s = strings.ReplaceAll(s, "<@!"+userID+">", "")
	return s
}

// splitMessage cuts s into chunks of at most maxLen, preferring to break
// after a newline.
func splitMessage(s string, maxLen int) []string {
	if len(s) <= maxLen {
		return []string{s}
	}
	var chunks []string
	for len(s) > 0 {
		end := min(maxLen, len(s))
		if end < len(s) {
			if idx := strings.LastIndex(s[:end], "\n"); idx > 0 {
				end = idx + 1
			}
		}
		chunks = append(chunks, s[:end])
		s = s[end:]
	}
	return chunks
}
