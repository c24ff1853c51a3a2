// Package notify delivers suggestions and digests to the operator, by
// Discord DM when a recipient is known and through a webhook otherwise.
package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tidwall/sjson"

	"github.com/chris/wingman/internal/db"
)

// DMUserSetting is the settings key holding the Discord user to DM. The bot
// records whoever last wrote to it.
const DMUserSetting = "discord_user_id"

// ErrNoChannel is returned when neither a DM recipient nor a webhook is set.
var ErrNoChannel = errors.New("no delivery method available")

type Notifier struct {
	db            *db.DB
	webhookURL    string
	defaultUserID string
	http          *http.Client
	logger        *log.Logger

	mu     sync.Mutex
	dmSend func(userID, content string) error
}

func New(database *db.DB, webhookURL, defaultUserID string, logger *log.Logger) *Notifier {
	return &Notifier{
		db:            database,
		webhookURL:    webhookURL,
		defaultUserID: defaultUserID,
		http:          &http.Client{Timeout: 10 * time.Second},
		logger:        logger,
	}
}

// SetDM wires the direct-message sender once a bot session is up.
func (n *Notifier) SetDM(send func(userID, content string) error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.dmSend = send
}

// Enabled reports whether any delivery channel could work.
func (n *Notifier) Enabled() bool {
	if n == nil {
		return false
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.webhookURL != "" || n.dmSend != nil
}

// Deliver tries a DM first and falls back to the webhook.
func (n *Notifier) Deliver(ctx context.Context, label, content string) error {
	n.mu.Lock()
	send := n.dmSend
	n.mu.Unlock()

	if send != nil {
		if userID := n.dmRecipient(); userID != "" {
			err := send(userID, content)
			if err == nil {
				return nil
			}
			n.logger.Warn("DM send failed", "label", label, "err", err)
		}
	}
	if n.webhookURL != "" {
		if err := n.postWebhook(ctx, content); err != nil {
			return fmt.Errorf("%s: %w", label, err)
		}
		return nil
	}
	n.logger.Warn("no delivery method available", "label", label)
	return ErrNoChannel
}

func (n *Notifier) dmRecipient() string {
	if n.db != nil {
		id, err := n.db.GetSetting(DMUserSetting)
		if err != nil {
			n.logger.Warn("reading DM recipient", "err", err)
		}
		if id != "" {
			return id
		}
	}
	return n.defaultUserID
}

// maxWebhookContent is Discord's message length limit.
const maxWebhookContent = 2000

func (n *Notifier) postWebhook(ctx context.Context, content string) error {
	if len(content) > maxWebhookContent {
		content = content[:maxWebhookContent-3] + "..."
	}
	body, err := sjson.SetBytes(nil, "content", content)
	if err != nil {
		return fmt.Errorf("building webhook payload: %w", err)
	}
	body, _ = sjson.SetBytes(body, "username", "wingman")
	body, _ = sjson.SetBytes(body, "allowed_mentions.parse", []string{})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.http.Do(req)
	if err != nil {
		return fmt.Errorf("posting webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// FormatSuggestions renders reply suggestions for a chat message.
func FormatSuggestions(name, lastMessage string, replies [3]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s**: %s\n", name, lastMessage)
	empty := true
	for i, r := range replies {
		if r == "" {
			continue
		}
		empty = false
		fmt.Fprintf(&b, "%d. %s\n", i+1, r)
	}
	if empty {
		b.WriteString("_no suggestions this time_\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
