package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chris/wingman/internal/ingest"
)

var importName string

var importCmd = &cobra.Command{
	Use:   "import <file.json>",
	Short: "Create a profile from an exported conversation",
	Long: `Reads a JSON file holding either a message list or {"messages": [...]}
where every message has a text field and optionally from and timestamp. The
newest messages are kept and the whole conversation is analysed once to seed
the new profile.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importName, "name", "", "name for the new profile")
}

func runImport(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}
	messages, err := ingest.ParseMessages(raw, "messages")
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.ctrl.Import(cmd.Context(), importName, messages)
	if err != nil {
		return explain(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created profile %s (%s) with %d messages, %d likes, %d traits\n",
		p.ID, p.Name, len(p.PreviousMessages), len(p.Likes), len(p.PersonalityTags))
	return nil
}
