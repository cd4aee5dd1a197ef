// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paperpress/internal/client"
	"github.com/pdiddy/paperpress/internal/workflow"
	"github.com/pdiddy/paperpress/pkg/types"
)

var pressCmd = &cobra.Command{
	Use:   "press [pdf-or-url]",
	Short: "Convert a paper end to end against a running server",
	Long: `Press uploads a PDF (local path or direct URL) to a running paperpress
server, converts it to Markdown, applies the cleanup treatment, and saves
the packaged EPUB. Start the server first with "paperpress serve".`,
	RunE: runPress,
}

func init() {
	pressCmd.Flags().String("server", "", "server base URL (default http://localhost:8000)")
	pressCmd.Flags().Duration("timeout", 0, "request timeout (default 10m)")
	pressCmd.Flags().String("instruction", "", "cleanup instructions (default: the standard ruleset)")
	pressCmd.Flags().Bool("no-treat", false, "skip the cleanup treatment")
	pressCmd.Flags().String("title", "", "book title (default: the file name)")
	pressCmd.Flags().String("out", ".", "output directory for the EPUB")

	rootCmd.AddCommand(pressCmd)
}

func runPress(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("provide exactly one PDF path or URL")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	cfg := clientConfig(cmd)
	ctrl := workflow.New(client.New(cfg), workflow.Events{
		Progress: func(msg string) { fmt.Fprintln(os.Stderr, msg) },
		Notice:   func(msg string) { fmt.Fprintln(os.Stderr, msg) },
	})

	pdfPath := args[0]
	if isURL(pdfPath) {
		fmt.Printf("Fetching %s\n", pdfPath)
		local, cleanup, err := fetchPDF(ctx, pdfPath, cfg)
		if err != nil {
			return err
		}
		defer cleanup()
		pdfPath = local
	}

	fmt.Printf("Uploading %s\n", filepath.Base(pdfPath))
	if err := ctrl.SelectFile(ctx, pdfPath); err != nil {
		return err
	}

	fmt.Println("Converting to Markdown")
	if err := ctrl.Convert(ctx); err != nil {
		return err
	}

	if noTreat, _ := cmd.Flags().GetBool("no-treat"); !noTreat {
		fmt.Println("Applying treatment")
		instruction, _ := cmd.Flags().GetString("instruction")
		if err := ctrl.ApplyTreatment(ctx, instruction); err != nil {
			return err
		}
	}

	fmt.Println("Generating EPUB")
	title, _ := cmd.Flags().GetString("title")
	if err := ctrl.Generate(ctx, title); err != nil {
		return err
	}

	outDir, _ := cmd.Flags().GetString("out")
	saved, err := ctrl.Download(outDir)
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", saved)
	return nil
}

func clientConfig(cmd *cobra.Command) types.ClientConfig {
	cfg := types.DefaultConfig().Client

	if v := viper.GetString("client.server_url"); v != "" {
		cfg.ServerURL = v
	}
	if v := viper.GetDuration("client.timeout"); v > 0 {
		cfg.Timeout = v
	}
	if v := viper.GetString("client.user_agent"); v != "" {
		cfg.UserAgent = v
	}

	if v, _ := cmd.Flags().GetString("server"); v != "" {
		cfg.ServerURL = v
	}
	if v, _ := cmd.Flags().GetDuration("timeout"); v > 0 {
		cfg.Timeout = v
	}
	return cfg
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// fetchPDF downloads rawURL into a fresh temp directory, keeping the URL's
// file name so the title fallback stays meaningful. The returned cleanup
// removes the directory.
func fetchPDF(ctx context.Context, rawURL string, cfg types.ClientConfig) (string, func(), error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", nil, fmt.Errorf("parsing URL: %w", err)
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		name = "paper.pdf"
	}
	if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
		name += ".pdf"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)
	req.Header.Set("Accept", "application/pdf")

	httpClient := &http.Client{Timeout: cfg.Timeout}
	resp, err := httpClient.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, rawURL)
	}

	dir, err := os.MkdirTemp("", "paperpress-*")
	if err != nil {
		return "", nil, fmt.Errorf("creating temp directory: %w", err)
	}
	cleanup := func() { os.RemoveAll(dir) }

	dest := filepath.Join(dir, name)
	f, err := os.Create(dest)
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("creating %s: %w", dest, err)
	}
	_, copyErr := io.Copy(f, resp.Body)
	closeErr := f.Close()
	if copyErr != nil {
		cleanup()
		return "", nil, fmt.Errorf("writing download: %w", copyErr)
	}
	if closeErr != nil {
		cleanup()
		return "", nil, fmt.Errorf("closing download: %w", closeErr)
	}
	return dest, cleanup, nil
}
