package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/chris/wingman/internal/ingest"
	"github.com/chris/wingman/internal/llm"
	"github.com/chris/wingman/internal/profile"
	"github.com/chris/wingman/internal/prompt"
)

var (
	suggestTone     string
	suggestGoal     string
	suggestLanguage string
	suggestRecord   bool

	simName        string
	simDescription string
	simLikes       []string
	simPersonality []string
	simDifficulty  string
	simMode        string
)

var suggestCmd = &cobra.Command{
	Use:   "suggest <profile-id>",
	Short: "Paste their messages and get three reply suggestions each",
	Long: `Reads one message per line and prints three suggested replies for it.
With --record each message is stored in the profile's history and mined for
facts first, exactly as if it had arrived through the webhook.`,
	Args: cobra.ExactArgs(1),
	RunE: runSuggest,
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Practice a conversation against a simulated persona",
	RunE:  runSimulate,
}

func init() {
	suggestCmd.Flags().StringVar(&suggestTone, "tone", "", "tone preference for the replies")
	suggestCmd.Flags().StringVar(&suggestGoal, "goal", "", "conversation goal")
	suggestCmd.Flags().StringVar(&suggestLanguage, "language", "", "reply language")
	suggestCmd.Flags().BoolVar(&suggestRecord, "record", false, "store each message before suggesting")

	simulateCmd.Flags().StringVar(&simName, "name", "Match", "persona name")
	simulateCmd.Flags().StringVar(&simDescription, "description", "", "persona description")
	simulateCmd.Flags().StringSliceVar(&simLikes, "likes", nil, "persona likes")
	simulateCmd.Flags().StringSliceVar(&simPersonality, "personality", nil, "persona traits")
	simulateCmd.Flags().StringVar(&simDifficulty, "difficulty", "medium", "easy, medium or hard")
	simulateCmd.Flags().StringVar(&simMode, "mode", "practice", "practice, training or advanced")
}

// repl reads lines from in and hands each to fn until EOF or "exit". The
// prompt is only printed when stdin is a terminal.
func repl(in io.Reader, out io.Writer, prefix string, fn func(line string) error) {
	interactive := isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
	scanner := bufio.NewScanner(in)

	for {
		if interactive {
			fmt.Fprint(out, prefix+"> ")
		}
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}
		if err := fn(line); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", explain(err))
		}
	}
}

func runSuggest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	id := args[0]
	pc := profile.PromptContext{Goal: suggestGoal, Tone: suggestTone, Language: suggestLanguage}
	out := cmd.OutOrStdout()

	repl(cmd.InOrStdin(), out, id, func(line string) error {
		replies, err := suggest(ctx, a.ctrl, id, line, pc)
		if err != nil {
			return err
		}
		for i, r := range replies {
			if r != "" {
				fmt.Fprintf(out, "%d. %s\n", i+1, r)
			}
		}
		if replies == ([3]string{}) {
			fmt.Fprintln(out, "(no suggestions)")
		}
		return nil
	})
	return nil
}

func suggest(ctx context.Context, ctrl *ingest.Controller, id, line string, pc profile.PromptContext) ([3]string, error) {
	if !suggestRecord {
		return ctrl.SuggestReplies(ctx, id, line, pc)
	}
	res, err := ctrl.AddMessage(ctx, id, profile.Message{Text: line}, ingest.Options{WantReplies: true, Context: pc})
	if err != nil {
		return [3]string{}, err
	}
	return res.Replies, nil
}

func runSimulate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	persona := prompt.Persona{
		Name:        simName,
		Description: simDescription,
		Likes:       simLikes,
		Personality: simPersonality,
	}
	out := cmd.OutOrStdout()
	var history []profile.Message

	repl(cmd.InOrStdin(), out, "you", func(line string) error {
		reply := a.ctrl.Simulate(ctx, ingest.SimulationRequest{
			Persona:     persona,
			UserMessage: line,
			History:     history,
			Difficulty:  simDifficulty,
			Mode:        simMode,
		})
		fmt.Fprintf(out, "%s: %s\n", persona.Name, reply)
		history = append(history,
			profile.Message{From: a.cfg.SelfLabel, Text: line},
			profile.Message{From: persona.Name, Text: reply},
		)
		return nil
	})
	return nil
}

// explain turns pipeline errors into operator-facing hints.
func explain(err error) error {
	if errors.Is(err, llm.ErrNotConfigured) {
		return fmt.Errorf("%w (set the API key for LLM_PROVIDER)", err)
	}
	return err
}
