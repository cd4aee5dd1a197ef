// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the paperpress CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paperpress/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns the secret value for key if it exists, or fallback otherwise.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the paperpress CLI.
var rootCmd = &cobra.Command{
	Use:   "paperpress",
	Short: "Turn academic PDF papers into e-reader friendly EPUBs",
	Long: `paperpress converts academic papers from PDF to EPUB. The serve command
hosts the browser workflow (upload, edit, download); press drives the same
workflow from the terminal against a running server. The convert, treat,
and epub commands run the individual stages locally.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A .env next to the binary is the smallest way to carry an API key.
		_ = godotenv.Load()

		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./paperpress.yaml or ~/.config/paperpress/config.yaml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("paperpress")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "paperpress"))
		}
	}

	viper.SetEnvPrefix("PAPERPRESS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// geminiKey resolves the treatment API key: explicit value first, then the
// config file and environment, then .secrets/.
func geminiKey(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := viper.GetString("treatment.api_key"); v != "" {
		return v
	}
	if v := secretDefault("gemini_api_key", ""); v != "" {
		return v
	}
	for _, name := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"} {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
