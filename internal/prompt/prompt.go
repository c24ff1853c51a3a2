// Package prompt renders the instructions sent to the generation backend.
// Every builder is deterministic for a given snapshot and keeps the rendered
// text within the character budget by dropping the oldest entries of the
// trimmable lists first.
package prompt

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/chris/wingman/internal/profile"
)

const (
	// MaxLen is the character budget for a rendered prompt, roughly 100k tokens.
	MaxLen = 400000
	// HistoryWindow is how many history entries a reply prompt shows.
	HistoryWindow = 20
	// SimulationWindow is how many history entries a simulation prompt shows.
	SimulationWindow = 6
	// ConversationWindow is how many messages a regenerate prompt shows.
	ConversationWindow = 15
)

type Builder struct {
	MaxLen int
}

func New() *Builder {
	return &Builder{MaxLen: MaxLen}
}

func (b *Builder) limit() int {
	if b == nil || b.MaxLen <= 0 {
		return MaxLen
	}
	return b.MaxLen
}

// fit renders the prompt and, while it exceeds limit, drops the oldest entry
// of the first non-empty list and renders again. History and identity fields
// are never touched; if the lists run out the oversized prompt is returned.
func fit(limit int, lists [][]string, render func(lists [][]string) string) string {
	out := render(lists)
	for len(out) > limit {
		i := slices.IndexFunc(lists, func(l []string) bool { return len(l) > 0 })
		if i < 0 {
			break
		}
		lists[i] = lists[i][1:]
		out = render(lists)
	}
	return out
}

// Build renders the reply prompt for p's last message. Trimming order is
// self personality tags, self likes, counterpart personality tags, then
// counterpart likes. The optional context lines are appended afterwards and
// never count against the budget.
func (b *Builder) Build(p profile.Profile, self profile.SelfProfile, lastMessage string, pc profile.PromptContext) string {
	history := renderHistory(profile.Recent(p.PreviousMessages, HistoryWindow))

	lists := [][]string{self.PersonalityTags, self.Likes, p.PersonalityTags, p.Likes}
	out := fit(b.limit(), lists, func(l [][]string) string {
		var sb strings.Builder
		sb.WriteString("You are the operator's texting assistant.\n")
		sb.WriteString("Respond as if you are a real person texting on Instagram. Be natural, engaging, and authentic. Use emojis, slang, or humor if appropriate. Avoid sounding robotic or generic.\n")

		sb.WriteString("My info:\n")
		fmt.Fprintf(&sb, "Name: %s\n", self.Name)
		fmt.Fprintf(&sb, "Gender: %s\n", self.Gender)
		fmt.Fprintf(&sb, "Age: %s\n", age(self.Age))
		fmt.Fprintf(&sb, "Likes: %s\n", strings.Join(l[1], ", "))
		fmt.Fprintf(&sb, "Personality: %s\n", strings.Join(self.Personality, ", "))
		fmt.Fprintf(&sb, "Personality tags: %s\n", strings.Join(l[0], ", "))
		fmt.Fprintf(&sb, "Inside jokes: %s\n", strings.Join(self.InsideJokes, "; "))
		fmt.Fprintf(&sb, "Details: %s\n", renderDetails(self.Details))
		fmt.Fprintf(&sb, "Bio: %s\n", self.Bio)

		fmt.Fprintf(&sb, "Their name: %s\n", p.Name)
		fmt.Fprintf(&sb, "Likes: %s\n", strings.Join(l[3], ", "))
		fmt.Fprintf(&sb, "Personality: %s\n", strings.Join(l[2], ", "))
		fmt.Fprintf(&sb, "Inside jokes: %s\n", strings.Join(p.InsideJokes, "; "))
		fmt.Fprintf(&sb, "Details: %s\n", renderDetails(p.Details))
		fmt.Fprintf(&sb, "Conversation goals: %s\n", strings.Join(p.ConversationGoals, "; "))
		if p.Bio != "" {
			fmt.Fprintf(&sb, "Bio: %s\n", p.Bio)
		}

		fmt.Fprintf(&sb, "Recent conversation:\n%s\n", history)
		fmt.Fprintf(&sb, "Their last message: '%s'\n", lastMessage)
		sb.WriteString(replyInstruction)
		return sb.String()
	})

	return out + modifiers(pc)
}

const replyInstruction = "Suggest 3 replies. Output as JSON with keys reply_1, reply_2, reply_3, each containing only the reply text. Do not include any explanations or context, only the replies."

func modifiers(pc profile.PromptContext) string {
	var sb strings.Builder
	if g := strings.TrimSpace(pc.Goal); g != "" {
		fmt.Fprintf(&sb, "\nConversation goal: %s\n", g)
	}
	if t := strings.TrimSpace(pc.Tone); t != "" {
		fmt.Fprintf(&sb, "\nTone preference: %s\n", t)
	}
	if l := strings.TrimSpace(pc.Language); l != "" {
		fmt.Fprintf(&sb, "\nReply in this language: %s\n", l)
	}
	return sb.String()
}

// BuildConversationReplies renders a reply prompt from an ad-hoc
// conversation that has no stored profile behind it.
func (b *Builder) BuildConversationReplies(self profile.SelfProfile, conversation []profile.Message, tone, goal string) string {
	conversation = profile.Recent(conversation, ConversationWindow)

	var sb strings.Builder
	sb.WriteString("You are an AI assistant. Here is a chat conversation between the operator and someone they are talking to. ")
	fmt.Fprintf(&sb, "My info: Name: %s, Gender: %s, Age: %s, Bio: %s. ", self.Name, self.Gender, age(self.Age), self.Bio)
	sb.WriteString("The conversation is in the correct order. ")
	if tone = strings.TrimSpace(tone); tone != "" {
		fmt.Fprintf(&sb, "The desired tone for the reply is: %s. ", tone)
	}
	if goal = strings.TrimSpace(goal); goal != "" {
		fmt.Fprintf(&sb, "The conversation goal is: %s. ", goal)
	}
	sb.WriteString("Generate 3 completely different and unique replies for me to send back. ")
	fmt.Fprintf(&sb, "Conversation:\n%s\n\n", renderHistory(conversation))
	sb.WriteString("IMPORTANT: Output ONLY a valid JSON object in this exact format with no additional text:\n")
	sb.WriteString(`{"reply_1": "first reply here", "reply_2": "second reply here", "reply_3": "third reply here"}` + "\n\n")
	sb.WriteString("Make sure all 3 replies are different, creative, and engaging. Each reply should offer a different conversation direction or tone.")

	return sb.String()
}

// BuildPolish renders the rewrite instruction for a draft message.
func (b *Builder) BuildPolish(message, tone, language string) string {
	var sb strings.Builder
	sb.WriteString("Rewrite the following message to be more attractive, clear, and engaging. Keep the meaning, but improve the style.")
	if tone = strings.TrimSpace(tone); tone != "" {
		fmt.Fprintf(&sb, "\nTone: %s.", tone)
	}
	if language = strings.TrimSpace(language); language != "" {
		fmt.Fprintf(&sb, "\nLanguage: %s.", language)
	}
	fmt.Fprintf(&sb, "\nMessage: %q", message)
	sb.WriteString("\nOutput only the improved message, nothing else.")
	return sb.String()
}

func renderHistory(history []profile.Message) string {
	lines := lo.Map(history, func(m profile.Message, _ int) string {
		return m.From + ": " + m.Text
	})
	return strings.Join(lines, "\n")
}

// renderDetails joins details sorted by key so the output is stable.
func renderDetails(details map[string]string) string {
	keys := lo.Keys(details)
	slices.Sort(keys)
	return strings.Join(lo.Map(keys, func(k string, _ int) string {
		return k + ": " + details[k]
	}), "; ")
}

func age(n int) string {
	if n <= 0 {
		return ""
	}
	return strconv.Itoa(n)
}
