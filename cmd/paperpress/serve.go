// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paperpress/internal/server"
	"github.com/pdiddy/paperpress/pkg/types"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the paperpress web server",
	Long: `Serve starts the HTTP server hosting the browser UI and the conversion
API. Uploads live in a transient work directory that is swept periodically
and removed on shutdown unless --work-dir points at a persistent location.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default :8000)")
	serveCmd.Flags().String("work-dir", "", "working directory for uploads (default: fresh temp dir)")
	serveCmd.Flags().String("backend", "", "conversion backend: fitz or marker (default fitz)")
	serveCmd.Flags().String("api-key", "", "Gemini API key for AI treatment (default: secrets or environment)")
	serveCmd.Flags().String("model", "", "Gemini model for AI treatment (default gemini-2.5-pro)")
	serveCmd.Flags().Int64("max-upload-mb", 0, "upload size limit in MiB (default 100)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := serverConfig(cmd)

	verbose, _ := cmd.Flags().GetBool("verbose")
	logger := newLogger(verbose)

	srv, err := server.New(cfg, logger)
	if err != nil {
		return err
	}
	defer srv.Close()

	if cfg.Treatment.APIKey == "" {
		logger.Warn("no Gemini API key configured, AI treatment disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Start(ctx)
}

// serverConfig layers the config file, environment, and flags over the
// defaults. Flags win.
func serverConfig(cmd *cobra.Command) types.Config {
	cfg := types.DefaultConfig()

	if v := viper.GetString("server.addr"); v != "" {
		cfg.Server.Addr = v
	}
	if v := viper.GetString("server.work_dir"); v != "" {
		cfg.Server.WorkDir = v
	}
	if v := viper.GetInt64("server.max_upload_mb"); v > 0 {
		cfg.Server.MaxUploadMB = v
	}
	if v := viper.GetDuration("server.sweep_ttl"); v > 0 {
		cfg.Server.SweepTTL = v
	}
	if v := viper.GetDuration("server.sweep_interval"); v > 0 {
		cfg.Server.SweepInterval = v
	}
	if v := viper.GetString("conversion.backend"); v != "" {
		cfg.Conversion.Backend = types.ConversionBackend(v)
	}
	if v := viper.GetString("treatment.model"); v != "" {
		cfg.Treatment.Model = v
	}
	if v := viper.GetInt("treatment.max_retries"); v > 0 {
		cfg.Treatment.MaxRetries = v
	}
	if v := viper.GetString("epub.author"); v != "" {
		cfg.EPUB.Author = v
	}
	if v := viper.GetString("epub.language"); v != "" {
		cfg.EPUB.Language = v
	}

	if v, _ := cmd.Flags().GetString("addr"); v != "" {
		cfg.Server.Addr = v
	}
	if v, _ := cmd.Flags().GetString("work-dir"); v != "" {
		cfg.Server.WorkDir = v
	}
	if v, _ := cmd.Flags().GetInt64("max-upload-mb"); v > 0 {
		cfg.Server.MaxUploadMB = v
	}
	if v, _ := cmd.Flags().GetString("backend"); v != "" {
		cfg.Conversion.Backend = types.ConversionBackend(v)
	}
	if v, _ := cmd.Flags().GetString("model"); v != "" {
		cfg.Treatment.Model = v
	}

	apiKey, _ := cmd.Flags().GetString("api-key")
	cfg.Treatment.APIKey = geminiKey(apiKey)

	return cfg
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))

	slog.SetDefault(logger)
	return logger
}
