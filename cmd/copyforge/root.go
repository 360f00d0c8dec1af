package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/copyforge/copyforge/internal/api"
	"github.com/copyforge/copyforge/internal/config"
	"github.com/copyforge/copyforge/internal/home"
	"github.com/copyforge/copyforge/internal/providers"
	"github.com/copyforge/copyforge/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "copyforge",
	Short: "LLM-backed marketing copy generation",
	Long: `copyforge researches products and competitors and writes marketing copy
with large language models.

It provides:
  - Product analysis (USPs, pain points, target persona)
  - Copy generation by tone and format with word-count control
  - Competitor analysis across product, customer, marketing and distribution
  - Document-grounded analysis and copy from PDF, DOCX and TXT uploads

Model calls fall back across an ordered list of model variants with
exponential backoff when a model is overloaded.`,
	Version:       version.GitRelease,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.copyforge/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "copyforge home directory (default: ~/.copyforge)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", string(api.DefaultOutput), "output format: yaml or json",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "info", "log level: debug, info, warn or error",
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}

// newLogger builds the process logger at the --log-level threshold.
func newLogger() (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", logLevel, err)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})), nil
}

// loadDotEnv loads API keys from ./.env and the home directory's .env.
// Variables already set in the environment win.
func loadDotEnv(h *home.Dir) error {
	for _, path := range []string{".env", filepath.Join(h.Path(), ".env")} {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// loadConfig resolves the config file, preferring --config, then the home
// directory's config.yaml, then the default search path.
func loadConfig(h *home.Dir, logger *slog.Logger) (*config.Manager, error) {
	if err := loadDotEnv(h); err != nil {
		return nil, err
	}
	path := cfgFile
	if path == "" && h.ConfigExists() {
		path = h.ConfigPath()
	}
	return config.NewManager(path, logger)
}

// mockRegistry returns a registry holding only the offline mock client.
func mockRegistry() *providers.Registry {
	reg := providers.NewRegistry()
	reg.Register(providers.MockClientName, providers.NewMockClient())
	return reg
}
