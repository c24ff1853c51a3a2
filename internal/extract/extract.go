// Package extract asks the generation backend what a message reveals about
// its author. It never mutates profiles; callers route the result.
package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"

	"github.com/chris/wingman/internal/llm"
	"github.com/chris/wingman/internal/parse"
	"github.com/chris/wingman/internal/profile"
)

type Extractor struct {
	client llm.Client
	logger *log.Logger
}

func New(client llm.Client, logger *log.Logger) *Extractor {
	return &Extractor{client: client, logger: logger}
}

// Extract makes one backend call for message. Any failure yields empty
// facts; the error is logged, never returned.
func (e *Extractor) Extract(ctx context.Context, message string, senderIsSelf bool) profile.ExtractedFacts {
	if strings.TrimSpace(message) == "" {
		return profile.ExtractedFacts{}
	}
	return e.run(ctx, "message", BuildExtraction(message, senderIsSelf), llm.ExtractionOptions)
}

// ExtractConversation is the comprehensive variant used on imports. Only
// text not authored under one of selfLabels is analysed, unless that leaves
// nothing.
func (e *Extractor) ExtractConversation(ctx context.Context, messages []profile.Message, selfLabels []string) profile.ExtractedFacts {
	mine := lo.SliceToMap(selfLabels, func(l string) (string, struct{}) {
		return strings.ToLower(strings.TrimSpace(l)), struct{}{}
	})
	theirs := lo.Filter(messages, func(m profile.Message, _ int) bool {
		_, ok := mine[strings.ToLower(strings.TrimSpace(m.From))]
		return !ok
	})
	if len(theirs) == 0 {
		theirs = messages
	}
	text := strings.Join(lo.Map(theirs, func(m profile.Message, _ int) string { return m.Text }), " ")
	if strings.TrimSpace(text) == "" {
		return profile.ExtractedFacts{}
	}
	return e.run(ctx, "conversation", BuildConversationExtraction(text), llm.ImportOptions)
}

func (e *Extractor) run(ctx context.Context, kind, prompt string, opts llm.Options) profile.ExtractedFacts {
	e.logger.Debug("extracting facts", "kind", kind, "prompt_tokens", llm.EstimateTokens(prompt))
	resp, err := e.client.Generate(ctx, prompt, opts)
	if err != nil {
		e.logger.Warn("fact extraction failed", "kind", kind, "err", err)
		return profile.ExtractedFacts{}
	}
	facts := parse.Facts(resp)
	if facts.Empty() {
		e.logger.Debug("no facts recovered", "kind", kind, "raw", resp.Text())
	}
	return facts
}

// BuildExtraction renders the per-message instruction. senderIsSelf only
// changes the wording.
func BuildExtraction(message string, senderIsSelf bool) string {
	who := "they like"
	if senderIsSelf {
		who = "I like"
	}
	var b strings.Builder
	b.WriteString("Analyze the following message and extract any new information about the sender.\n")
	b.WriteString("Return a JSON object with these fields:\n")
	fmt.Fprintf(&b, "- likes: list of things %s (e.g. foods, animals, hobbies)\n", who)
	b.WriteString("- personality_tags: list of personality traits\n")
	b.WriteString("- inside_jokes: list of inside jokes or references\n")
	b.WriteString("- details: dictionary of any other facts (e.g. pet names, favorite places, birthday, etc.)\n")
	b.WriteString("Respond ONLY with a valid JSON object and nothing else.\n")
	fmt.Fprintf(&b, "Message: %q", message)
	return b.String()
}

// BuildConversationExtraction renders the comprehensive instruction, which
// adds conversation goals and a bio.
func BuildConversationExtraction(text string) string {
	var b strings.Builder
	b.WriteString("Analyze this conversation and extract detailed information about the person's personality, preferences, and characteristics.\n\n")
	fmt.Fprintf(&b, "Conversation text: %q\n\n", text)
	b.WriteString("Extract and return a JSON object with these fields:\n")
	b.WriteString("- likes: list of things they like (foods, activities, hobbies, interests, etc.)\n")
	b.WriteString("- personality_tags: list of personality traits and characteristics\n")
	b.WriteString("- inside_jokes: list of inside jokes, references, or recurring themes\n")
	b.WriteString("- details: dictionary of any other facts (favorite places, pet names, birthday, etc.)\n")
	b.WriteString("- conversation_goals: list of their conversation goals or what they want from conversations\n")
	b.WriteString("- bio: a short bio description based on their personality\n\n")
	b.WriteString("Respond ONLY with a valid JSON object and nothing else.")
	return b.String()
}
