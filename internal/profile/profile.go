// Package profile holds the relationship records kept for every counterpart
// and for the operator, and the pure functions that evolve them.
package profile

import "strings"

// MaxMessages is how many history entries a profile retains.
const MaxMessages = 50

// SelfAlias is the reserved identity under which the self profile is
// exposed alongside counterpart profiles. It can never be deleted.
const SelfAlias = "me"

type Message struct {
	From      string `json:"from"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

type Profile struct {
	ID                string            `json:"user_id"`
	Username          string            `json:"username,omitempty"`
	Name              string            `json:"name"`
	TonePreference    string            `json:"tone_preference,omitempty"`
	Bio               string            `json:"bio,omitempty"`
	Likes             []string          `json:"likes"`
	PersonalityTags   []string          `json:"personality_tags"`
	InsideJokes       []string          `json:"inside_jokes"`
	ConversationGoals []string          `json:"conversation_goals"`
	Details           map[string]string `json:"details"`
	PreviousMessages  []Message         `json:"previous_messages"`
	MemoryVectorIDs   []string          `json:"memory_vector_ids"`
}

// SelfProfile is the operator's own record. Personality is the static,
// operator-entered trait list; PersonalityTags is what extraction learns.
type SelfProfile struct {
	Name              string            `json:"name"`
	Gender            string            `json:"gender,omitempty"`
	Age               int               `json:"age,omitempty"`
	Bio               string            `json:"bio,omitempty"`
	Personality       []string          `json:"personality"`
	Likes             []string          `json:"likes"`
	PersonalityTags   []string          `json:"personality_tags"`
	InsideJokes       []string          `json:"inside_jokes"`
	ConversationGoals []string          `json:"conversation_goals"`
	Details           map[string]string `json:"details"`
	PreviousMessages  []Message         `json:"previous_messages"`
	MemoryVectorIDs   []string          `json:"memory_vector_ids"`
}

// PromptContext carries the optional modifiers appended to a reply prompt.
type PromptContext struct {
	Goal     string `json:"goal,omitempty"`
	Tone     string `json:"tone,omitempty"`
	Language string `json:"language,omitempty"`
}

// New returns a default-shaped profile for a counterpart seen for the first
// time. A blank name falls back to "@id".
func New(id, name string) Profile {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "@" + id
	}
	p := Profile{
		ID:             id,
		Username:       name,
		Name:           name,
		TonePreference: "flirty",
	}
	p.Normalize()
	return p
}

// NewSelf returns the self profile created on first access.
func NewSelf(name string) SelfProfile {
	if name == "" {
		name = "Me"
	}
	s := SelfProfile{Name: name}
	s.Normalize()
	return s
}

// Normalize fills nil collections so records always serialize with every
// field present, and restores the set and retention invariants on records
// written by older versions or by hand.
func (p *Profile) Normalize() {
	p.Likes = union(p.Likes)
	p.PersonalityTags = union(p.PersonalityTags)
	p.InsideJokes = union(p.InsideJokes)
	p.ConversationGoals = union(p.ConversationGoals)
	if p.Details == nil {
		p.Details = map[string]string{}
	}
	p.PreviousMessages = capHistory(p.PreviousMessages)
	if p.MemoryVectorIDs == nil {
		p.MemoryVectorIDs = []string{}
	}
}

func (s *SelfProfile) Normalize() {
	if s.Personality == nil {
		s.Personality = []string{}
	}
	s.Likes = union(s.Likes)
	s.PersonalityTags = union(s.PersonalityTags)
	s.InsideJokes = union(s.InsideJokes)
	s.ConversationGoals = union(s.ConversationGoals)
	if s.Details == nil {
		s.Details = map[string]string{}
	}
	s.PreviousMessages = capHistory(s.PreviousMessages)
	if s.MemoryVectorIDs == nil {
		s.MemoryVectorIDs = []string{}
	}
}

// AppendMessage pushes m onto the history and evicts the oldest entries
// beyond MaxMessages.
func (p *Profile) AppendMessage(m Message) {
	p.PreviousMessages = capHistory(append(p.PreviousMessages, m))
}

// AsProfile renders the self record in counterpart shape under SelfAlias.
func (s SelfProfile) AsProfile() Profile {
	return Profile{
		ID:                SelfAlias,
		Name:              s.Name,
		Bio:               s.Bio,
		Likes:             s.Likes,
		PersonalityTags:   s.PersonalityTags,
		InsideJokes:       s.InsideJokes,
		ConversationGoals: s.ConversationGoals,
		Details:           s.Details,
		PreviousMessages:  s.PreviousMessages,
		MemoryVectorIDs:   s.MemoryVectorIDs,
	}
}

// Recent returns at most the last n entries of history.
func Recent(history []Message, n int) []Message {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

func capHistory(history []Message) []Message {
	if history == nil {
		return []Message{}
	}
	if len(history) <= MaxMessages {
		return history
	}
	kept := make([]Message, MaxMessages)
	copy(kept, history[len(history)-MaxMessages:])
	return kept
}
