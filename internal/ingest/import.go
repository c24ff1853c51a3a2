package ingest

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/chris/wingman/internal/profile"
)

const defaultImportName = "Imported Profile"

// Import creates a new profile from an exported conversation. The newest
// MaxMessages entries are kept and one comprehensive extraction seeds the
// profile's facts.
func (c *Controller) Import(ctx context.Context, name string, messages []profile.Message) (*profile.Profile, error) {
	if len(messages) == 0 {
		return nil, ErrEmptyConversation
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultImportName
	}

	p := profile.New(uuid.NewString(), name)
	history := make([]profile.Message, 0, len(messages))
	for _, m := range messages {
		if m.From == "" {
			m.From = "Unknown"
		}
		history = append(history, m)
	}
	p.PreviousMessages = history
	p.Normalize()

	facts := c.extractor.ExtractConversation(ctx, messages, c.selfLabels())
	p.Merge(facts)

	if err := c.db.UpsertProfile(p); err != nil {
		return nil, err
	}
	c.logger.Info("conversation imported", "profile", p.ID, "name", name, "messages", len(messages), "kept", len(p.PreviousMessages))
	return &p, nil
}
