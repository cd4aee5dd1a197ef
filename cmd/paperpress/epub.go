package main

import (
	"cmp"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paperpress/internal/convert"
	"github.com/pdiddy/paperpress/internal/epub"
	"github.com/pdiddy/paperpress/pkg/types"
)

var epubCmd = &cobra.Command{
	Use:   "epub [markdown-file]",
	Short: "Package a Markdown file as an EPUB",
	Long: `Epub renders a Markdown file into an EPUB book. The title comes from
--title, or from the first heading in the file.`,
	RunE: runEpub,
}

func init() {
	epubCmd.Flags().String("title", "", "book title (default: first heading in the file)")
	epubCmd.Flags().String("author", "", `metadata author (default "Academic Paper")`)
	epubCmd.Flags().String("language", "", `metadata language (default "en")`)
	epubCmd.Flags().String("out", "", "output file (default: derived from the title)")

	rootCmd.AddCommand(epubCmd)
}

func runEpub(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("provide exactly one Markdown file")
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}
	markdown := string(data)

	title, _ := cmd.Flags().GetString("title")
	if title == "" {
		title = convert.ExtractTitle(markdown)
	}

	defaults := types.DefaultConfig().EPUB
	author, _ := cmd.Flags().GetString("author")
	language, _ := cmd.Flags().GetString("language")

	book, err := epub.Build(markdown, title, epub.Options{
		Author:   cmp.Or(author, viper.GetString("epub.author"), defaults.Author),
		Language: cmp.Or(language, viper.GetString("epub.language"), defaults.Language),
	})
	if err != nil {
		return err
	}

	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		out = epub.Filename(title)
	}
	if err := os.WriteFile(out, book, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}

	fmt.Printf("Wrote %s (%d bytes)\n", out, len(book))
	return nil
}
