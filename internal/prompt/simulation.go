package prompt

import (
	"fmt"
	"strings"

	"github.com/chris/wingman/internal/profile"
)

// Persona is the character the simulator plays.
type Persona struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Likes       []string `json:"likes"`
	Personality []string `json:"personality"`
}

type difficultyPreset struct {
	style      string
	engagement string
	complexity string
}

var difficulties = map[string]difficultyPreset{
	"easy":   {"friendly and encouraging", "high", "simple and direct"},
	"medium": {"balanced and natural", "moderate", "normal conversation flow"},
	"hard":   {"challenging and selective", "low", "complex and nuanced"},
}

var modes = map[string]string{
	"practice": "Respond naturally as this personality would in a real conversation.",
	"training": "Provide helpful responses with occasional challenges to help the user improve.",
	"advanced": "Create complex scenarios and challenging responses to test advanced skills.",
}

// Difficulty normalizes a difficulty name; unknown values become "medium".
func Difficulty(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if _, ok := difficulties[s]; ok {
		return s
	}
	return "medium"
}

// Mode normalizes a mode name; unknown values become "practice".
func Mode(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if _, ok := modes[s]; ok {
		return s
	}
	return "practice"
}

// BuildSimulation renders the role-play prompt. Persona likes are trimmed
// first, then persona traits.
func (b *Builder) BuildSimulation(persona Persona, userMessage string, history []profile.Message, difficulty, mode string) string {
	difficulty, mode = Difficulty(difficulty), Mode(mode)
	preset := difficulties[difficulty]
	name := strings.TrimSpace(persona.Name)
	if name == "" {
		name = "Match"
	}
	conversation := renderHistory(profile.Recent(history, SimulationWindow))

	return fit(b.limit(), [][]string{persona.Likes, persona.Personality}, func(l [][]string) string {
		var sb strings.Builder
		sb.WriteString("You are roleplaying as someone with the following personality:\n\n")
		fmt.Fprintf(&sb, "Name: %s\n", name)
		fmt.Fprintf(&sb, "Description: %s\n", persona.Description)
		fmt.Fprintf(&sb, "Likes: %s\n", strings.Join(l[0], ", "))
		fmt.Fprintf(&sb, "Personality Traits: %s\n\n", strings.Join(l[1], ", "))

		fmt.Fprintf(&sb, "Difficulty Level: %s\n", difficulty)
		fmt.Fprintf(&sb, "- Response Style: %s\n", preset.style)
		fmt.Fprintf(&sb, "- Engagement Level: %s\n", preset.engagement)
		fmt.Fprintf(&sb, "- Complexity: %s\n\n", preset.complexity)

		fmt.Fprintf(&sb, "Mode: %s\n%s\n\n", mode, modes[mode])
		fmt.Fprintf(&sb, "Recent conversation:\n%s\n\n", conversation)
		fmt.Fprintf(&sb, "User's message: %q\n\n", userMessage)
		sb.WriteString("Respond as this personality would naturally respond. Keep responses authentic to the personality traits and difficulty level.\n")
		sb.WriteString("Respond in 1-3 sentences maximum, as if you're texting on Instagram.\n\nResponse:")
		return sb.String()
	})
}
