package main

import (
	"cmp"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paperpress/internal/treat"
	"github.com/pdiddy/paperpress/pkg/types"
)

var treatCmd = &cobra.Command{
	Use:   "treat [markdown-file]",
	Short: "Clean up a converted Markdown file",
	Long: `Treat applies the cleanup pass to a Markdown file: AI-driven when a
Gemini API key is configured, rule-based otherwise. The result goes to
--out, or to stdout when --out is omitted.`,
	RunE: runTreat,
}

func init() {
	treatCmd.Flags().String("instruction", "", "cleanup instructions (default: the standard ruleset)")
	treatCmd.Flags().Bool("no-ai", false, "force the rule-based treatment")
	treatCmd.Flags().String("api-key", "", "Gemini API key (default: secrets or environment)")
	treatCmd.Flags().String("model", "", "Gemini model (default gemini-2.5-pro)")
	treatCmd.Flags().String("out", "", "output file (default: stdout)")

	rootCmd.AddCommand(treatCmd)
}

func runTreat(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("provide exactly one Markdown file")
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}

	instruction, _ := cmd.Flags().GetString("instruction")

	treated, fallback, err := treat.Apply(cmd.Context(), treatBackend(cmd), string(data), instruction)
	if err != nil {
		return err
	}
	if fallback {
		fmt.Fprintln(os.Stderr, "AI treatment unavailable; applied basic cleanup instead.")
	}

	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		_, err := os.Stdout.WriteString(treated)
		return err
	}
	if err := os.WriteFile(out, []byte(treated), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}
	fmt.Printf("Wrote %s\n", out)
	return nil
}

// treatBackend builds the AI backend, or returns nil when --no-ai is set
// or no API key is configured.
func treatBackend(cmd *cobra.Command) treat.Backend {
	if noAI, _ := cmd.Flags().GetBool("no-ai"); noAI {
		return nil
	}

	apiKey, _ := cmd.Flags().GetString("api-key")
	apiKey = geminiKey(apiKey)
	if apiKey == "" {
		return nil
	}

	defaults := types.DefaultConfig().Treatment
	model, _ := cmd.Flags().GetString("model")
	maxRetries := viper.GetInt("treatment.max_retries")
	if maxRetries <= 0 {
		maxRetries = defaults.MaxRetries
	}

	return &treat.GeminiBackend{
		APIKey:     apiKey,
		Model:      cmp.Or(model, viper.GetString("treatment.model"), defaults.Model),
		MaxRetries: maxRetries,
	}
}
