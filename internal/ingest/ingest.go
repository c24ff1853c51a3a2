// Package ingest runs one inbound message through the pipeline: identity
// resolution, history append, fact extraction and, when asked, reply
// suggestions. Append always precedes extraction, which always precedes
// reply generation.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/chris/wingman/internal/db"
	"github.com/chris/wingman/internal/extract"
	"github.com/chris/wingman/internal/llm"
	"github.com/chris/wingman/internal/parse"
	"github.com/chris/wingman/internal/profile"
	"github.com/chris/wingman/internal/prompt"
)

var (
	ErrEmptyMessage      = errors.New("message text is empty")
	ErrMissingIdentity   = errors.New("event has no counterpart identity")
	ErrEmptyConversation = errors.New("conversation has no messages")
)

// Identity tells the controller who the operator is.
type Identity struct {
	SelfID    string // operator account id on the messaging platform
	SelfLabel string // history label for operator messages
	SelfName  string // default self profile name
}

type Controller struct {
	db        *db.DB
	client    llm.Client
	extractor *extract.Extractor
	builder   *prompt.Builder
	self      Identity
	logger    *log.Logger
	locks     *keyedMutex
}

func New(database *db.DB, client llm.Client, builder *prompt.Builder, self Identity, logger *log.Logger) *Controller {
	if self.SelfLabel == "" {
		self.SelfLabel = "Me"
	}
	if builder == nil {
		builder = prompt.New()
	}
	return &Controller{
		db:        database,
		client:    client,
		extractor: extract.New(client, logger),
		builder:   builder,
		self:      self,
		logger:    logger,
		locks:     newKeyedMutex(),
	}
}

// Event is one inbound platform message.
type Event struct {
	SenderID    string
	RecipientID string
	TimestampMs int64
	Text        string
}

type Options struct {
	WantReplies bool
	Context     profile.PromptContext
}

// Result reports what handling an event changed.
type Result struct {
	ProfileID string
	FromSelf  bool
	Profile   *profile.Profile
	Facts     profile.ExtractedFacts
	Replies   [3]string
	// RepliesRequested is set when reply generation ran, even if every
	// suggestion came back empty.
	RepliesRequested bool
}

// Handle processes a platform event. The append is fatal on failure;
// extraction, merge and reply failures are logged and absorbed.
func (c *Controller) Handle(ctx context.Context, ev Event, opts Options) (*Result, error) {
	text := strings.TrimSpace(ev.Text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	fromSelf := c.self.SelfID != "" && ev.SenderID == c.self.SelfID
	counterpart := ev.SenderID
	if fromSelf {
		counterpart = ev.RecipientID
	}
	if counterpart == "" {
		return nil, ErrMissingIdentity
	}

	unlock := c.locks.Lock(counterpart)
	defer unlock()

	label := c.self.SelfLabel
	if !fromSelf {
		existing, err := c.db.GetProfile(counterpart)
		switch {
		case err == nil:
			label = existing.Name
		case errors.Is(err, db.ErrNotFound):
			label = profile.New(counterpart, "").Name
		default:
			return nil, fmt.Errorf("resolving counterpart %s: %w", counterpart, err)
		}
	}

	msg := profile.Message{From: label, Text: text, Timestamp: timestamp(ev.TimestampMs)}
	return c.process(ctx, counterpart, msg, fromSelf, opts)
}

// AddMessage is the manual path: the profile must already exist and the
// message's From label decides whether the operator wrote it.
func (c *Controller) AddMessage(ctx context.Context, profileID string, msg profile.Message, opts Options) (*Result, error) {
	msg.Text = strings.TrimSpace(msg.Text)
	if msg.Text == "" {
		return nil, ErrEmptyMessage
	}
	if profileID == profile.SelfAlias {
		return nil, db.ErrProtectedRecord
	}

	unlock := c.locks.Lock(profileID)
	defer unlock()

	existing, err := c.db.GetProfile(profileID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(msg.From) == "" {
		msg.From = existing.Name
	}
	if msg.Timestamp == "" {
		msg.Timestamp = timestamp(0)
	}
	return c.process(ctx, profileID, msg, c.isSelfLabel(msg.From), opts)
}

// process runs append, extraction and the optional reply step for one
// message. The caller holds the counterpart lock.
func (c *Controller) process(ctx context.Context, counterpart string, msg profile.Message, fromSelf bool, opts Options) (*Result, error) {
	p, err := c.db.AppendMessage(counterpart, msg, "")
	if err != nil {
		return nil, fmt.Errorf("appending message for %s: %w", counterpart, err)
	}
	res := &Result{ProfileID: counterpart, FromSelf: fromSelf, Profile: p}
	c.logger.Info("message stored", "profile", counterpart, "from_self", fromSelf, "text", truncate(msg.Text, 60))

	res.Facts = c.extractor.Extract(ctx, msg.Text, fromSelf)
	if !res.Facts.Empty() {
		if fromSelf {
			if _, err := c.db.MergeSelfFacts(res.Facts, c.self.SelfName); err != nil {
				c.logger.Error("merging self facts", "err", err)
			}
		} else if merged, err := c.db.MergeFacts(counterpart, res.Facts); err != nil {
			c.logger.Error("merging facts", "profile", counterpart, "err", err)
		} else {
			res.Profile = merged
		}
	}

	if opts.WantReplies && !fromSelf {
		res.RepliesRequested = true
		replies, err := c.generateReplies(ctx, *res.Profile, msg.Text, opts.Context)
		if err != nil {
			c.logger.Warn("reply suggestions failed", "profile", counterpart, "err", err)
		}
		res.Replies = replies
	}
	return res, nil
}

// SuggestReplies builds a reply prompt for a stored profile. An unknown
// profile and a missing credential are returned as errors; every other
// backend failure yields three empty suggestions. A blank lastMessage
// defaults to the newest history entry.
func (c *Controller) SuggestReplies(ctx context.Context, profileID, lastMessage string, pc profile.PromptContext) ([3]string, error) {
	p, err := c.profileForPrompt(profileID)
	if err != nil {
		return [3]string{}, err
	}
	if strings.TrimSpace(lastMessage) == "" && len(p.PreviousMessages) > 0 {
		lastMessage = p.PreviousMessages[len(p.PreviousMessages)-1].Text
	}
	replies, err := c.generateReplies(ctx, *p, lastMessage, pc)
	if errors.Is(err, llm.ErrNotConfigured) {
		return replies, err
	}
	if err != nil {
		c.logger.Warn("reply suggestions failed", "profile", profileID, "err", err)
	}
	return replies, nil
}

func (c *Controller) profileForPrompt(profileID string) (*profile.Profile, error) {
	if profileID == profile.SelfAlias {
		self, err := c.db.GetSelf(c.self.SelfName)
		if err != nil {
			return nil, err
		}
		p := self.AsProfile()
		return &p, nil
	}
	return c.db.GetProfile(profileID)
}

func (c *Controller) generateReplies(ctx context.Context, p profile.Profile, lastMessage string, pc profile.PromptContext) ([3]string, error) {
	self, err := c.db.GetSelf(c.self.SelfName)
	if err != nil {
		return [3]string{}, fmt.Errorf("loading self profile: %w", err)
	}
	text := c.builder.Build(p, *self, lastMessage, pc)
	return c.replies(ctx, text, llm.ReplyOptions)
}

func (c *Controller) replies(ctx context.Context, text string, opts llm.Options) ([3]string, error) {
	c.logger.Debug("requesting replies", "prompt_chars", len(text), "prompt_tokens", llm.EstimateTokens(text))
	resp, err := c.client.Generate(ctx, text, opts)
	if err != nil {
		return [3]string{}, err
	}
	out := parse.Replies(resp)
	if out == ([3]string{}) {
		c.logger.Debug("no replies recovered", "raw", resp.Text())
	}
	return out, nil
}

// Regenerate suggests replies for an ad-hoc conversation that is not
// stored anywhere.
func (c *Controller) Regenerate(ctx context.Context, conversation []profile.Message, tone, goal string) ([3]string, error) {
	if len(conversation) == 0 {
		return [3]string{}, ErrEmptyConversation
	}
	self, err := c.db.GetSelf(c.self.SelfName)
	if err != nil {
		return [3]string{}, err
	}
	out, err := c.replies(ctx, c.builder.BuildConversationReplies(*self, conversation, tone, goal), llm.RegenerateOptions)
	if errors.Is(err, llm.ErrNotConfigured) {
		return out, err
	}
	if err != nil {
		c.logger.Warn("regenerate failed", "err", err)
	}
	return out, nil
}

// Polish rewrites a draft for profileID. Backend failures other than a
// missing credential return "".
func (c *Controller) Polish(ctx context.Context, profileID, message, tone, language string) (string, error) {
	if _, err := c.profileForPrompt(profileID); err != nil {
		return "", err
	}
	resp, err := c.client.Generate(ctx, c.builder.BuildPolish(message, tone, language), llm.ReplyOptions)
	if errors.Is(err, llm.ErrNotConfigured) {
		return "", err
	}
	if err != nil {
		c.logger.Warn("polish failed", "profile", profileID, "err", err)
		return "", nil
	}
	return parse.Text(resp), nil
}

// SimulationFallback is answered whenever the backend gives nothing usable.
const SimulationFallback = "Hey! That's interesting. Tell me more!"

type SimulationRequest struct {
	Persona     prompt.Persona    `json:"personality"`
	UserMessage string            `json:"userMessage"`
	History     []profile.Message `json:"conversationHistory"`
	Difficulty  string            `json:"difficulty"`
	Mode        string            `json:"mode"`
}

// Simulate plays the persona for one turn. It always returns text.
func (c *Controller) Simulate(ctx context.Context, req SimulationRequest) string {
	text := c.builder.BuildSimulation(req.Persona, req.UserMessage, req.History, req.Difficulty, req.Mode)
	resp, err := c.client.Generate(ctx, text, llm.SimulateOptions)
	if err != nil {
		c.logger.Warn("simulation failed", "err", err)
		return SimulationFallback
	}
	if out := parse.Text(resp); out != "" {
		return out
	}
	return SimulationFallback
}

func (c *Controller) isSelfLabel(from string) bool {
	from = strings.ToLower(strings.TrimSpace(from))
	for _, l := range c.selfLabels() {
		if from == strings.ToLower(l) {
			return true
		}
	}
	return false
}

func (c *Controller) selfLabels() []string {
	labels := []string{c.self.SelfLabel, profile.SelfAlias, "you"}
	if c.self.SelfName != "" {
		labels = append(labels, c.self.SelfName)
	}
	return labels
}

func timestamp(ms int64) string {
	if ms <= 0 {
		return time.Now().UTC().Format(time.RFC3339)
	}
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
