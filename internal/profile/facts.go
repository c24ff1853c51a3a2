package profile

import (
	"strings"

	"github.com/samber/lo"
)

// ExtractedFacts is what one extraction round learned about a speaker.
// A nil field means "no update"; the merge treats an empty but present list
// the same way.
type ExtractedFacts struct {
	Likes             []string          `json:"likes,omitempty"`
	PersonalityTags   []string          `json:"personality_tags,omitempty"`
	InsideJokes       []string          `json:"inside_jokes,omitempty"`
	Details           map[string]string `json:"details,omitempty"`
	ConversationGoals []string          `json:"conversation_goals,omitempty"`
	Bio               *string           `json:"bio,omitempty"`
}

// Empty reports whether the facts carry no update at all.
func (f ExtractedFacts) Empty() bool {
	return len(f.Likes) == 0 &&
		len(f.PersonalityTags) == 0 &&
		len(f.InsideJokes) == 0 &&
		len(f.Details) == 0 &&
		len(f.ConversationGoals) == 0 &&
		(f.Bio == nil || strings.TrimSpace(*f.Bio) == "")
}

// Merge folds facts into p. List fields are set unions, details are a
// shallow overlay where incoming keys win, and bio is replaced when a
// non-blank one is supplied. Merging the same facts twice is a no-op the
// second time.
func (p *Profile) Merge(f ExtractedFacts) {
	p.Likes = union(p.Likes, f.Likes)
	p.PersonalityTags = union(p.PersonalityTags, f.PersonalityTags)
	p.InsideJokes = union(p.InsideJokes, f.InsideJokes)
	p.ConversationGoals = union(p.ConversationGoals, f.ConversationGoals)
	p.Details = overlay(p.Details, f.Details)
	if f.Bio != nil && strings.TrimSpace(*f.Bio) != "" {
		p.Bio = strings.TrimSpace(*f.Bio)
	}
}

// Merge folds facts into the self profile. Personality is operator-owned and
// is never touched.
func (s *SelfProfile) Merge(f ExtractedFacts) {
	s.Likes = union(s.Likes, f.Likes)
	s.PersonalityTags = union(s.PersonalityTags, f.PersonalityTags)
	s.InsideJokes = union(s.InsideJokes, f.InsideJokes)
	s.ConversationGoals = union(s.ConversationGoals, f.ConversationGoals)
	s.Details = overlay(s.Details, f.Details)
	if f.Bio != nil && strings.TrimSpace(*f.Bio) != "" {
		s.Bio = strings.TrimSpace(*f.Bio)
	}
}

// union returns the deduplicated concatenation of lists with blank entries
// removed. Existing entries keep their relative order ahead of new ones.
func union(lists ...[]string) []string {
	all := lo.Flatten(lists)
	all = lo.Map(all, func(s string, _ int) string { return strings.TrimSpace(s) })
	out := lo.Uniq(lo.Compact(all))
	if out == nil {
		return []string{}
	}
	return out
}

func overlay(existing, incoming map[string]string) map[string]string {
	out := make(map[string]string, len(existing)+len(incoming))
	for k, v := range existing {
		out[k] = v
	}
	for k, v := range incoming {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		out[k] = v
	}
	return out
}
