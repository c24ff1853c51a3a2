package parse

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/chris/wingman/internal/llm"
	"github.com/chris/wingman/internal/profile"
)

// Facts decodes an extraction answer. Keys present with the wrong JSON type
// are treated as absent.
func Facts(resp *llm.Response) profile.ExtractedFacts {
	return FactsFromText(resp.Text())
}

func FactsFromText(raw string) profile.ExtractedFacts {
	text, ok := Object(raw)
	if !ok {
		return profile.ExtractedFacts{}
	}
	obj := gjson.Parse(text)

	f := profile.ExtractedFacts{
		Likes:             stringList(obj.Get("likes")),
		PersonalityTags:   stringList(obj.Get("personality_tags")),
		InsideJokes:       stringList(obj.Get("inside_jokes")),
		ConversationGoals: stringList(obj.Get("conversation_goals")),
		Details:           stringMap(obj.Get("details")),
	}
	if bio := obj.Get("bio"); bio.Type == gjson.String {
		s := bio.Str
		f.Bio = &s
	}
	return f
}

// stringList keeps the non-blank string elements of an array. Anything that
// is not an array is absent (nil).
func stringList(v gjson.Result) []string {
	if !v.IsArray() {
		return nil
	}
	out := []string{}
	for _, e := range v.Array() {
		if e.Type != gjson.String {
			continue
		}
		if s := strings.TrimSpace(e.Str); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// stringMap stringifies the values of an object, skipping nulls.
func stringMap(v gjson.Result) map[string]string {
	if !v.IsObject() {
		return nil
	}
	out := map[string]string{}
	v.ForEach(func(k, e gjson.Result) bool {
		if e.Type != gjson.Null {
			out[k.String()] = e.String()
		}
		return true
	})
	return out
}
